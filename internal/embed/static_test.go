package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticEmbedder_Deterministic(t *testing.T) {
	e := NewStaticEmbedder()

	a, err := e.Embed(context.Background(), "mercury communication")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "mercury communication")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestStaticEmbedder_UnitLength(t *testing.T) {
	e := NewStaticEmbedder()

	vec, err := e.Embed(context.Background(), "saturn structure discipline")
	require.NoError(t, err)
	require.Len(t, vec, StaticDimensions)

	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSquares), 1e-5)
}

func TestStaticEmbedder_SimilarTextsAreCloser(t *testing.T) {
	e := NewStaticEmbedder()

	mercury1, _ := e.Embed(context.Background(), "mercury rules communication and writing")
	mercury2, _ := e.Embed(context.Background(), "mercury rules communication and speech")
	venus, _ := e.Embed(context.Background(), "venus rules beauty and harmony in love")

	assert.Greater(t, cosine(mercury1, mercury2), cosine(mercury1, venus))
}

func TestStaticEmbedder_EmptyTextIsZeroVector(t *testing.T) {
	e := NewStaticEmbedder()

	vec, err := e.Embed(context.Background(), "   ")
	require.NoError(t, err)
	require.Len(t, vec, StaticDimensions)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestStaticEmbedder_ClosedEmbedderFails(t *testing.T) {
	e := NewStaticEmbedder()
	require.NoError(t, e.Close())

	_, err := e.Embed(context.Background(), "anything")
	assert.Error(t, err)
	assert.False(t, e.Available(context.Background()))
}

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
