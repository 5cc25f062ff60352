// Package search provides hybrid retrieval combining the lexical index and
// the dense index adapter. Ranked lists are fused with Reciprocal Rank
// Fusion (RRF) or weighted normalized-score fusion.
package search

import (
	"sort"

	ferrors "github.com/siderealab/ephemeris/internal/errors"
	"github.com/siderealab/ephemeris/internal/store"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
// k=60 is empirically validated across domains (used by Azure AI Search,
// OpenSearch, etc.).
const DefaultRRFConstant = 60

// FusedResult is a single result after fusion. Original per-source scores
// are preserved where the document appeared in that source.
type FusedResult struct {
	DocID       string
	Score       float64 // Fused score (RRF accumulation or weighted sum)
	DenseScore  float64 // Original dense similarity (0 if absent)
	DenseRank   int     // Position in dense list (1-indexed, 0 if absent)
	SparseScore float64 // Original lexical score (0 if absent)
	SparseRank  int     // Position in sparse list (1-indexed, 0 if absent)
	InBothLists bool    // Document appeared in both result lists

	// firstSeen is the order in which the id was first encountered, dense
	// list scanned before sparse. Ties sort by it, making output
	// deterministic for identical inputs.
	firstSeen int
}

// ReciprocalRankFusion merges a dense and a sparse ranked list.
//
// For each list, the item at 1-based rank r contributes 1/(k+r) to the
// accumulated score of its document id; an id present in both lists sums
// both contributions. Results sort descending by accumulated score, ties
// broken by first-seen order.
func ReciprocalRankFusion(dense []*store.VectorResult, sparse []store.LexicalResult, k int) []*FusedResult {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	if len(dense) == 0 && len(sparse) == 0 {
		return []*FusedResult{}
	}

	scores := make(map[string]*FusedResult, len(dense)+len(sparse))
	order := 0

	getOrCreate := func(id string) *FusedResult {
		if r, ok := scores[id]; ok {
			return r
		}
		r := &FusedResult{DocID: id, firstSeen: order}
		order++
		scores[id] = r
		return r
	}

	for rank, r := range dense {
		result := getOrCreate(r.ID)
		result.DenseScore = float64(r.Score)
		result.DenseRank = rank + 1
		result.Score += 1.0 / float64(k+rank+1)
	}

	for rank, r := range sparse {
		result := getOrCreate(r.DocID)
		result.SparseScore = r.Score
		result.SparseRank = rank + 1
		result.Score += 1.0 / float64(k+rank+1)

		if result.DenseRank > 0 {
			result.InBothLists = true
		}
	}

	return toSortedSlice(scores)
}

// WeightedFusion merges a dense and a sparse ranked list by normalizing
// each list's raw scores independently to [0,1] via min-max and combining
// them as alpha*dense + (1-alpha)*sparse, a missing side contributing zero.
// If a list's min equals its max, every normalized score in that list is
// 0.5. alpha outside [0,1] fails with an invalid-parameter error.
func WeightedFusion(dense []*store.VectorResult, sparse []store.LexicalResult, alpha float64) ([]*FusedResult, error) {
	if alpha < 0 || alpha > 1 {
		return nil, ferrors.InvalidParameter("fusion alpha must be in [0,1]")
	}
	if len(dense) == 0 && len(sparse) == 0 {
		return []*FusedResult{}, nil
	}

	denseNorm := normalizeDense(dense)
	sparseNorm := normalizeSparse(sparse)

	scores := make(map[string]*FusedResult, len(dense)+len(sparse))
	order := 0

	getOrCreate := func(id string) *FusedResult {
		if r, ok := scores[id]; ok {
			return r
		}
		r := &FusedResult{DocID: id, firstSeen: order}
		order++
		scores[id] = r
		return r
	}

	for rank, r := range dense {
		result := getOrCreate(r.ID)
		result.DenseScore = float64(r.Score)
		result.DenseRank = rank + 1
		result.Score += alpha * denseNorm[rank]
	}

	for rank, r := range sparse {
		result := getOrCreate(r.DocID)
		result.SparseScore = r.Score
		result.SparseRank = rank + 1
		result.Score += (1 - alpha) * sparseNorm[rank]

		if result.DenseRank > 0 {
			result.InBothLists = true
		}
	}

	return toSortedSlice(scores), nil
}

// normalizeDense min-max normalizes dense scores to [0,1] by rank position.
func normalizeDense(results []*store.VectorResult) []float64 {
	norm := make([]float64, len(results))
	if len(results) == 0 {
		return norm
	}

	minScore := float64(results[0].Score)
	maxScore := minScore
	for _, r := range results {
		s := float64(r.Score)
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	for i, r := range results {
		norm[i] = minMax(float64(r.Score), minScore, maxScore)
	}
	return norm
}

// normalizeSparse min-max normalizes sparse scores to [0,1] by rank position.
func normalizeSparse(results []store.LexicalResult) []float64 {
	norm := make([]float64, len(results))
	if len(results) == 0 {
		return norm
	}

	minScore := results[0].Score
	maxScore := minScore
	for _, r := range results {
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}

	for i, r := range results {
		norm[i] = minMax(r.Score, minScore, maxScore)
	}
	return norm
}

// minMax maps score into [0,1]. A degenerate list (min == max) maps every
// score to 0.5.
func minMax(score, minScore, maxScore float64) float64 {
	if maxScore == minScore {
		return 0.5
	}
	return (score - minScore) / (maxScore - minScore)
}

// toSortedSlice converts the score map to a slice sorted descending by
// fused score with the first-seen tie-break.
func toSortedSlice(m map[string]*FusedResult) []*FusedResult {
	results := make([]*FusedResult, 0, len(m))
	for _, r := range m {
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].firstSeen < results[j].firstSeen
	})

	return results
}
