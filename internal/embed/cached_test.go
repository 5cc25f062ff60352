package embed

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder counts inner calls and can return nil vectors.
type countingEmbedder struct {
	calls      atomic.Int64
	batchCalls atomic.Int64
	returnNil  bool
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls.Add(1)
	if c.returnNil {
		return nil, nil
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.batchCalls.Add(1)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (c *countingEmbedder) Dimensions() int                    { return 2 }
func (c *countingEmbedder) ModelName() string                  { return "counting" }
func (c *countingEmbedder) Available(_ context.Context) bool   { return true }
func (c *countingEmbedder) Close() error                       { return nil }

func TestCachedEmbedder_RepeatedQueryHitsCache(t *testing.T) {
	// Given: a cached embedder
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, 10)

	// When: embedding the same text twice
	first, err := c.Embed(context.Background(), "mercury")
	require.NoError(t, err)
	second, err := c.Embed(context.Background(), "mercury")
	require.NoError(t, err)

	// Then: the inner embedder ran once and both results match
	assert.Equal(t, int64(1), inner.calls.Load())
	assert.Equal(t, first, second)
}

func TestCachedEmbedder_NilVectorIsNotCached(t *testing.T) {
	// Given: an inner provider in outage, returning nil vectors
	inner := &countingEmbedder{returnNil: true}
	c := NewCachedEmbedder(inner, 10)

	vec, err := c.Embed(context.Background(), "mercury")
	require.NoError(t, err)
	assert.Nil(t, vec)

	// When: the provider recovers
	inner.returnNil = false
	vec, err = c.Embed(context.Background(), "mercury")
	require.NoError(t, err)

	// Then: the second call reached the provider and got a real vector
	assert.NotNil(t, vec)
	assert.Equal(t, int64(2), inner.calls.Load())
}

func TestCachedEmbedder_BatchReusesCachedEntries(t *testing.T) {
	// Given: one text already cached
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, 10)
	_, err := c.Embed(context.Background(), "mercury")
	require.NoError(t, err)
	callsBefore := inner.calls.Load()

	// When: embedding a batch containing it
	vecs, err := c.EmbedBatch(context.Background(), []string{"mercury", "venus", "mars"})
	require.NoError(t, err)

	// Then: only the two uncached texts reached the provider
	require.Len(t, vecs, 3)
	assert.Equal(t, callsBefore+2, inner.calls.Load())
}

func TestCachedEmbedder_EvictsBeyondCapacity(t *testing.T) {
	inner := &countingEmbedder{}
	c := NewCachedEmbedder(inner, 2)

	for _, text := range []string{"sun", "moon", "rising"} {
		_, err := c.Embed(context.Background(), text)
		require.NoError(t, err)
	}

	// "sun" was evicted by LRU, so it embeds again.
	_, err := c.Embed(context.Background(), "sun")
	require.NoError(t, err)
	assert.Equal(t, int64(4), inner.calls.Load())
}
