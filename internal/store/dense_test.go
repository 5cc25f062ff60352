package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/siderealab/ephemeris/internal/errors"
)

func newTestDenseIndex(t *testing.T) *DenseIndex {
	t.Helper()
	idx := NewDenseIndex(DefaultDenseConfig(4))
	require.True(t, idx.Enabled())
	return idx
}

func TestDenseIndex_UpsertAndSearch_Basic(t *testing.T) {
	// Given: three orthogonal-ish vectors
	idx := newTestDenseIndex(t)
	err := idx.Upsert(context.Background(),
		[]string{"a", "b", "c"},
		[][]float32{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
			{0, 0, 1, 0},
		},
		nil,
	)
	require.NoError(t, err)

	// When: querying near "a"
	results, err := idx.Search(context.Background(), []float32{0.9, 0.1, 0, 0}, 2, 0, nil)
	require.NoError(t, err)

	// Then: "a" is the closest match with the highest score
	require.NotEmpty(t, results)
	assert.Equal(t, "a", results[0].ID)
	assert.Greater(t, results[0].Score, float32(0.9))
}

func TestDenseIndex_Upsert_DimensionMismatchFails(t *testing.T) {
	idx := newTestDenseIndex(t)

	err := idx.Upsert(context.Background(),
		[]string{"a"}, [][]float32{{1, 0}}, nil)

	require.Error(t, err)
	assert.Equal(t, ferrors.ErrCodeDimensionMismatch, ferrors.GetCode(err))
}

func TestDenseIndex_Upsert_ReplacesExistingID(t *testing.T) {
	// Given: an indexed vector
	idx := newTestDenseIndex(t)
	require.NoError(t, idx.Upsert(context.Background(),
		[]string{"a"}, [][]float32{{1, 0, 0, 0}}, nil))

	// When: upserting the same id with a different vector
	require.NoError(t, idx.Upsert(context.Background(),
		[]string{"a"}, [][]float32{{0, 0, 0, 1}}, nil))

	// Then: the id resolves to the new vector and count stays 1
	results, err := idx.Search(context.Background(), []float32{0, 0, 0, 1}, 1, 0, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, 1, idx.CollectionInfo().Count)
}

func TestDenseIndex_Search_FiltersByPayload(t *testing.T) {
	// Given: vectors tagged with document types
	idx := newTestDenseIndex(t)
	require.NoError(t, idx.Upsert(context.Background(),
		[]string{"p1", "h1"},
		[][]float32{
			{1, 0, 0, 0},
			{0.9, 0.1, 0, 0},
		},
		[]map[string]string{
			{"type": "planet"},
			{"type": "house"},
		},
	))

	// When: filtering to houses only
	results, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 10, 0,
		[]Filter{{Field: "type", Equals: "house"}})
	require.NoError(t, err)

	// Then: only the house document comes back
	require.Len(t, results, 1)
	assert.Equal(t, "h1", results[0].ID)

	// And: AnyOf admits either
	results, err = idx.Search(context.Background(), []float32{1, 0, 0, 0}, 10, 0,
		[]Filter{{Field: "type", AnyOf: []string{"planet", "house"}}})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDenseIndex_Search_MinScoreFilters(t *testing.T) {
	idx := newTestDenseIndex(t)
	require.NoError(t, idx.Upsert(context.Background(),
		[]string{"far"}, [][]float32{{0, 0, 0, 1}}, nil))

	// Orthogonal query: cosine score 0.5, below the floor.
	results, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 10, 0.9, nil)
	require.NoError(t, err)

	assert.Empty(t, results)
}

func TestDenseIndex_Delete_LazyRemoval(t *testing.T) {
	idx := newTestDenseIndex(t)
	require.NoError(t, idx.Upsert(context.Background(),
		[]string{"a", "b"},
		[][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}}, nil))

	require.NoError(t, idx.Delete(context.Background(), []string{"a"}))

	results, err := idx.Search(context.Background(), []float32{1, 0, 0, 0}, 10, 0, nil)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ID)
	}
	assert.Equal(t, 1, idx.CollectionInfo().Count)
}

func TestDenseIndex_Disabled_NoOps(t *testing.T) {
	// Given: an index that failed construction (invalid dimensions)
	idx := NewDenseIndex(DenseConfig{Collection: "broken", Dimensions: 0})

	// Then: it is disabled and every call degrades to a no-op
	assert.False(t, idx.Enabled())
	require.Error(t, idx.Health())
	assert.Equal(t, ferrors.ErrCodeIndexUnavailable, ferrors.GetCode(idx.Health()))
	assert.Nil(t, idx.CollectionInfo())

	err := idx.Upsert(context.Background(), []string{"a"}, [][]float32{{1}}, nil)
	assert.NoError(t, err)

	results, err := idx.Search(context.Background(), []float32{1}, 10, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.NoError(t, idx.Save())
}

func TestDenseIndex_SaveAndLoad_Roundtrip(t *testing.T) {
	// Given: a persisted collection
	path := filepath.Join(t.TempDir(), "vectors", "reference.hnsw")
	cfg := DefaultDenseConfig(4)
	cfg.Path = path

	idx := NewDenseIndex(cfg)
	require.True(t, idx.Enabled())
	require.NoError(t, idx.Upsert(context.Background(),
		[]string{"a", "b"},
		[][]float32{{1, 0, 0, 0}, {0, 1, 0, 0}},
		[]map[string]string{{"type": "planet"}, {"type": "house"}}))
	require.NoError(t, idx.Save())

	// When: reopening from the same path
	reopened := NewDenseIndex(cfg)
	require.True(t, reopened.Enabled())

	// Then: vectors and payloads survive
	assert.Equal(t, 2, reopened.CollectionInfo().Count)
	results, err := reopened.Search(context.Background(), []float32{1, 0, 0, 0}, 1, 0, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "planet", results[0].Payload["type"])
}

func TestDistanceToScore_Mapping(t *testing.T) {
	// Cosine: identical vectors (distance 0) map to 1.0, opposite
	// vectors (distance 2) map to 0.0.
	assert.InDelta(t, 1.0, distanceToScore(0, "cos"), 1e-6)
	assert.InDelta(t, 0.0, distanceToScore(2, "cos"), 1e-6)

	// L2: zero distance maps to 1.0 and decays with distance.
	assert.InDelta(t, 1.0, distanceToScore(0, "l2"), 1e-6)
	assert.InDelta(t, 0.5, distanceToScore(1, "l2"), 1e-6)
}
