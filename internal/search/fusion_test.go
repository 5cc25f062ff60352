package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "github.com/siderealab/ephemeris/internal/errors"
	"github.com/siderealab/ephemeris/internal/store"
)

func denseList(ids ...string) []*store.VectorResult {
	out := make([]*store.VectorResult, len(ids))
	for i, id := range ids {
		out[i] = &store.VectorResult{ID: id, Score: float32(1.0) - float32(i)*0.1}
	}
	return out
}

func sparseList(ids ...string) []store.LexicalResult {
	out := make([]store.LexicalResult, len(ids))
	for i, id := range ids {
		out[i] = store.LexicalResult{DocID: id, Score: 10.0 - float64(i)}
	}
	return out
}

func TestRRF_WorkedExample(t *testing.T) {
	// Given: dense [a, b], sparse [b, c], k=60
	dense := denseList("a", "b")
	sparse := sparseList("b", "c")

	// When: fusing
	results := ReciprocalRankFusion(dense, sparse, 60)

	// Then: b wins with contributions from both lists
	// b: 1/62 + 1/61, a: 1/61, c: 1/62
	require.Len(t, results, 3)
	assert.Equal(t, "b", results[0].DocID)
	assert.Equal(t, "a", results[1].DocID)
	assert.Equal(t, "c", results[2].DocID)

	assert.InDelta(t, 1.0/62+1.0/61, results[0].Score, 1e-9)
	assert.InDelta(t, 1.0/61, results[1].Score, 1e-9)
	assert.InDelta(t, 1.0/62, results[2].Score, 1e-9)

	assert.True(t, results[0].InBothLists)
	assert.False(t, results[1].InBothLists)
	assert.False(t, results[2].InBothLists)
}

func TestRRF_PreservesOriginalScoresAndRanks(t *testing.T) {
	dense := denseList("a", "b")
	sparse := sparseList("b")

	results := ReciprocalRankFusion(dense, sparse, 60)

	byID := make(map[string]*FusedResult, len(results))
	for _, r := range results {
		byID[r.DocID] = r
	}

	assert.Equal(t, 1, byID["a"].DenseRank)
	assert.Equal(t, 0, byID["a"].SparseRank)
	assert.Equal(t, 2, byID["b"].DenseRank)
	assert.Equal(t, 1, byID["b"].SparseRank)
	assert.InDelta(t, 10.0, byID["b"].SparseScore, 1e-9)
	assert.InDelta(t, 0.9, byID["b"].DenseScore, 1e-6)
}

func TestRRF_OneEmptyList_PreservesOrderOfTheOther(t *testing.T) {
	// Given: only a sparse list
	sparse := sparseList("x", "y", "z")

	// When: fusing against an empty dense list
	results := ReciprocalRankFusion(nil, sparse, 60)

	// Then: the sparse ordering is reproduced exactly
	require.Len(t, results, 3)
	assert.Equal(t, "x", results[0].DocID)
	assert.Equal(t, "y", results[1].DocID)
	assert.Equal(t, "z", results[2].DocID)

	// And: the mirror case holds for dense
	results = ReciprocalRankFusion(denseList("x", "y", "z"), nil, 60)
	require.Len(t, results, 3)
	assert.Equal(t, "x", results[0].DocID)
	assert.Equal(t, "y", results[1].DocID)
	assert.Equal(t, "z", results[2].DocID)
}

func TestRRF_BothEmpty_ReturnsEmpty(t *testing.T) {
	results := ReciprocalRankFusion(nil, nil, 60)

	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRRF_NonPositiveK_UsesDefault(t *testing.T) {
	dense := denseList("a")

	results := ReciprocalRankFusion(dense, nil, 0)

	require.Len(t, results, 1)
	assert.InDelta(t, 1.0/float64(DefaultRRFConstant+1), results[0].Score, 1e-9)
}

func TestRRF_TiesBreakByFirstSeen(t *testing.T) {
	// Given: disjoint lists whose rank-1 entries tie exactly
	dense := denseList("d1")
	sparse := sparseList("s1")

	results := ReciprocalRankFusion(dense, sparse, 60)

	// Then: the dense entry wins because the dense list is scanned first
	require.Len(t, results, 2)
	assert.Equal(t, "d1", results[0].DocID)
	assert.Equal(t, "s1", results[1].DocID)
}

func TestWeightedFusion_AlphaOutOfRangeFails(t *testing.T) {
	for _, alpha := range []float64{-0.1, 1.1, 2.0} {
		_, err := WeightedFusion(denseList("a"), sparseList("b"), alpha)
		require.Error(t, err)
		assert.Equal(t, ferrors.ErrCodeInvalidParameter, ferrors.GetCode(err))
	}
}

func TestWeightedFusion_BoundaryAlphas(t *testing.T) {
	dense := denseList("a", "b")
	sparse := sparseList("c", "d")

	// alpha=1: only dense contributes; sparse-only docs score zero.
	results, err := WeightedFusion(dense, sparse, 1.0)
	require.NoError(t, err)
	require.Len(t, results, 4)
	assert.Equal(t, "a", results[0].DocID)

	byID := make(map[string]float64)
	for _, r := range results {
		byID[r.DocID] = r.Score
	}
	assert.Equal(t, 0.0, byID["c"])
	assert.Equal(t, 0.0, byID["d"])

	// alpha=0: only sparse contributes.
	results, err = WeightedFusion(dense, sparse, 0.0)
	require.NoError(t, err)
	assert.Equal(t, "c", results[0].DocID)
}

func TestWeightedFusion_ScoresAreNormalizedPerList(t *testing.T) {
	// Given: raw score scales that differ by orders of magnitude
	dense := []*store.VectorResult{
		{ID: "a", Score: 0.99},
		{ID: "b", Score: 0.01},
	}
	sparse := []store.LexicalResult{
		{DocID: "a", Score: 900},
		{DocID: "b", Score: 100},
	}

	// When: fusing with alpha=0.5
	results, err := WeightedFusion(dense, sparse, 0.5)
	require.NoError(t, err)

	// Then: each list was min-max normalized, so the top doc scores
	// 0.5*1 + 0.5*1 and the bottom doc 0.
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].DocID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.InDelta(t, 0.0, results[1].Score, 1e-9)
}

func TestWeightedFusion_DegenerateListNormalizesToHalf(t *testing.T) {
	// Given: a dense list where every score is identical
	dense := []*store.VectorResult{
		{ID: "a", Score: 0.7},
		{ID: "b", Score: 0.7},
	}

	results, err := WeightedFusion(dense, nil, 1.0)
	require.NoError(t, err)

	require.Len(t, results, 2)
	for _, r := range results {
		assert.InDelta(t, 0.5, r.Score, 1e-9)
	}
}

func TestWeightedFusion_BothEmpty_ReturnsEmpty(t *testing.T) {
	results, err := WeightedFusion(nil, nil, 0.5)

	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestMinMax_Degenerate(t *testing.T) {
	assert.Equal(t, 0.5, minMax(3, 3, 3))
	assert.Equal(t, 0.0, minMax(1, 1, 2))
	assert.Equal(t, 1.0, minMax(2, 1, 2))
}
