package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// statsOutput is the JSON output format for stats.
type statsOutput struct {
	Documents    int     `json:"documents"`
	UniqueTerms  int     `json:"unique_terms"`
	TotalTerms   int     `json:"total_terms"`
	AvgDocLength float64 `json:"avg_doc_length"`
	K1           float64 `json:"k1"`
	B            float64 `json:"b"`

	DenseEnabled bool   `json:"dense_enabled"`
	Collection   string `json:"collection,omitempty"`
	Vectors      int    `json:"vectors,omitempty"`
	Dimensions   int    `json:"dimensions,omitempty"`
	Metric       string `json:"metric,omitempty"`
}

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus and index statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := newRetrieval(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	lex := app.lexical.Stats()
	out := statsOutput{
		Documents:    lex.DocumentCount,
		UniqueTerms:  lex.UniqueTerms,
		TotalTerms:   lex.TotalTerms,
		AvgDocLength: lex.AvgDocLength,
		K1:           lex.K1,
		B:            lex.B,
		DenseEnabled: app.dense.Enabled(),
	}
	if info := app.dense.CollectionInfo(); info != nil {
		out.Collection = info.Name
		out.Vectors = info.Count
		out.Dimensions = info.Dimensions
		out.Metric = info.Metric
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Documents:      %d\n", out.Documents)
	fmt.Fprintf(w, "Unique terms:   %d\n", out.UniqueTerms)
	fmt.Fprintf(w, "Avg doc length: %.1f\n", out.AvgDocLength)
	fmt.Fprintf(w, "BM25:           k1=%.2f b=%.2f\n", out.K1, out.B)
	if out.DenseEnabled {
		fmt.Fprintf(w, "Dense:          %q %d vectors (%d dims, %s)\n",
			out.Collection, out.Vectors, out.Dimensions, out.Metric)
	} else {
		fmt.Fprintln(w, "Dense:          disabled (lexical-only)")
	}
	return nil
}
