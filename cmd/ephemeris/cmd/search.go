package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/siderealab/ephemeris/internal/search"
	"github.com/siderealab/ephemeris/internal/store"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit   int
	method  string // "rrf", "weighted"
	alpha   float64
	docType string
	format  string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the reference corpus",
		Long: `Search the reference corpus using hybrid retrieval.

Combines BM25 (keyword) and semantic (embedding) search with Reciprocal
Rank Fusion or weighted score fusion.

Examples:
  ephemeris search "mercury retrograde communication"
  ephemeris search "saturn discipline" --method weighted --alpha 0.7
  ephemeris search "seventh house" --type house --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVarP(&opts.method, "method", "m", "rrf", "Fusion method: rrf, weighted")
	cmd.Flags().Float64VarP(&opts.alpha, "alpha", "a", 0.6, "Dense weight for weighted fusion (0.0-1.0)")
	cmd.Flags().StringVarP(&opts.docType, "type", "t", "", "Filter by document type (e.g. planet, house, aspect)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

// searchResultOutput is the JSON output format for one result.
type searchResultOutput struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Score       float64 `json:"score"`
	SparseScore float64 `json:"sparse_score,omitempty"`
	DenseScore  float64 `json:"dense_score,omitempty"`
	InBothLists bool    `json:"in_both_lists"`
	Snippet     string  `json:"snippet,omitempty"`
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := newRetrieval(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	var filters []store.Filter
	if opts.docType != "" {
		filters = append(filters, store.Filter{Field: "type", Equals: opts.docType})
	}

	results, err := app.engine.SearchText(ctx, query, search.Options{
		Limit:       opts.limit,
		Method:      search.Method(opts.method),
		Alpha:       opts.alpha,
		RRFConstant: cfg.Search.RRFConstant,
		MinScore:    cfg.Search.MinScore,
		Filters:     filters,
	})
	if err != nil {
		return err
	}

	out := make([]searchResultOutput, 0, len(results))
	for _, r := range results {
		item := searchResultOutput{
			ID:          r.DocID,
			Score:       r.Score,
			SparseScore: r.SparseScore,
			DenseScore:  r.DenseScore,
			InBothLists: r.InBothLists,
		}
		if doc := app.corpus.Get(r.DocID); doc != nil {
			item.Title = doc.Title
			item.Snippet = snippet(doc.Content, 120)
		}
		out = append(out, item)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(out) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No results.")
		return nil
	}
	for i, item := range out {
		fmt.Fprintf(cmd.OutOrStdout(), "%2d. %-40s %.4f\n", i+1, item.Title, item.Score)
		if item.Snippet != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "    %s\n", item.Snippet)
		}
	}
	return nil
}

// snippet truncates content to at most n runes on a rune boundary.
func snippet(content string, n int) string {
	content = strings.Join(strings.Fields(content), " ")
	runes := []rune(content)
	if len(runes) <= n {
		return content
	}
	return string(runes[:n]) + "..."
}
