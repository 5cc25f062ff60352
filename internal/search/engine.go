package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/siderealab/ephemeris/internal/embed"
	"github.com/siderealab/ephemeris/internal/store"
)

// Method selects the fusion strategy.
type Method string

const (
	// MethodRRF fuses by reciprocal rank.
	MethodRRF Method = "rrf"
	// MethodWeighted fuses by weighted min-max normalized scores.
	MethodWeighted Method = "weighted"
)

// Options configures one hybrid search call.
type Options struct {
	// Limit caps the number of fused results (default 10).
	Limit int

	// Method is the fusion strategy (default MethodRRF).
	Method Method

	// Alpha is the dense weight for MethodWeighted.
	Alpha float64

	// RRFConstant is the smoothing parameter for MethodRRF.
	RRFConstant int

	// MinScore filters lexical results below this score.
	MinScore float64

	// Filters restrict dense results by payload.
	Filters []store.Filter
}

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Engine runs hybrid retrieval: sparse search always (for non-empty query
// text), dense search when a query vector is available and the adapter is
// enabled, then fusion. One-sided results skip fusion entirely.
type Engine struct {
	lexical  *store.LexicalIndex
	dense    *store.DenseIndex
	embedder embed.Embedder
}

// NewEngine creates a hybrid search engine. The embedder may be nil when
// callers always supply query vectors themselves.
func NewEngine(lexical *store.LexicalIndex, dense *store.DenseIndex, embedder embed.Embedder) (*Engine, error) {
	if lexical == nil {
		return nil, fmt.Errorf("%w: lexical index is required", ErrNilDependency)
	}
	if dense == nil {
		return nil, fmt.Errorf("%w: dense index is required", ErrNilDependency)
	}
	return &Engine{lexical: lexical, dense: dense, embedder: embedder}, nil
}

// SearchText embeds the query text and runs Search. A nil embedding (or no
// embedder) degrades the call to lexical-only, never fails it.
func (e *Engine) SearchText(ctx context.Context, query string, opts Options) ([]*FusedResult, error) {
	var vector []float32
	if e.embedder != nil && e.dense.Enabled() {
		vec, err := e.embedder.Embed(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			slog.Warn("query_embedding_failed", slog.String("error", err.Error()))
		} else {
			vector = vec
		}
	}
	return e.Search(ctx, query, vector, opts)
}

// Search runs sparse and dense retrieval and fuses the two ranked lists.
// Both sides are asked for 2x limit so the fusion step has enough
// candidates. If only one side produced results that side is returned
// directly, truncated to limit; if neither produced results the result is
// empty.
func (e *Engine) Search(ctx context.Context, query string, vector []float32, opts Options) ([]*FusedResult, error) {
	opts = applyDefaults(opts)

	query = strings.TrimSpace(query)
	fetchLimit := opts.Limit * 2

	var (
		sparseResults []store.LexicalResult
		denseResults  []*store.VectorResult
	)

	g, gctx := errgroup.WithContext(ctx)

	if query != "" {
		g.Go(func() error {
			sparseResults = e.lexical.Search(query, fetchLimit, opts.MinScore)
			return nil
		})
	}

	if vector != nil && e.dense.Enabled() {
		g.Go(func() error {
			results, err := e.dense.Search(gctx, vector, fetchLimit, 0, opts.Filters)
			if err != nil {
				// Dense outage degrades to lexical-only.
				slog.Warn("dense_search_failed", slog.String("error", err.Error()))
				return nil
			}
			denseResults = results
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch {
	case len(sparseResults) == 0 && len(denseResults) == 0:
		return []*FusedResult{}, nil
	case len(denseResults) == 0:
		return truncate(sparseOnly(sparseResults), opts.Limit), nil
	case len(sparseResults) == 0:
		return truncate(denseOnly(denseResults), opts.Limit), nil
	}

	var fused []*FusedResult
	switch opts.Method {
	case MethodWeighted:
		var err error
		fused, err = WeightedFusion(denseResults, sparseResults, opts.Alpha)
		if err != nil {
			return nil, err
		}
	default:
		fused = ReciprocalRankFusion(denseResults, sparseResults, opts.RRFConstant)
	}

	return truncate(fused, opts.Limit), nil
}

// applyDefaults fills zero-valued options.
func applyDefaults(opts Options) Options {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	if opts.Method == "" {
		opts.Method = MethodRRF
	}
	if opts.RRFConstant <= 0 {
		opts.RRFConstant = DefaultRRFConstant
	}
	return opts
}

// sparseOnly converts a lexical list to fused results, order unchanged.
func sparseOnly(results []store.LexicalResult) []*FusedResult {
	out := make([]*FusedResult, len(results))
	for i, r := range results {
		out[i] = &FusedResult{
			DocID:       r.DocID,
			Score:       r.Score,
			SparseScore: r.Score,
			SparseRank:  i + 1,
		}
	}
	return out
}

// denseOnly converts a dense list to fused results, order unchanged.
func denseOnly(results []*store.VectorResult) []*FusedResult {
	out := make([]*FusedResult, len(results))
	for i, r := range results {
		out[i] = &FusedResult{
			DocID:      r.ID,
			Score:      float64(r.Score),
			DenseScore: float64(r.Score),
			DenseRank:  i + 1,
		}
	}
	return out
}

func truncate(results []*FusedResult, limit int) []*FusedResult {
	if limit > 0 && len(results) > limit {
		return results[:limit]
	}
	return results
}
