package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/siderealab/ephemeris/internal/astro"
	"github.com/siderealab/ephemeris/internal/interp"
)

// interpretOptions holds CLI flags for interpret.
type interpretOptions struct {
	language   string
	regenerate []string
	format     string // "text", "json"
}

func newInterpretCmd() *cobra.Command {
	var opts interpretOptions

	cmd := &cobra.Command{
		Use:   "interpret <chart.json>",
		Short: "Generate interpretations for a natal chart",
		Long: `Resolve every subject of a chart (planets, houses, aspects, angles, and
the chart summary) through the tiered interpretation engine. Cached
content is reused; missing content is generated and persisted.

Examples:
  ephemeris interpret chart.json
  ephemeris interpret chart.json --language es
  ephemeris interpret chart.json --regenerate planet --regenerate summary`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInterpret(cmd.Context(), cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.language, "language", "l", "", "Interpretation language (overrides config)")
	cmd.Flags().StringSliceVarP(&opts.regenerate, "regenerate", "r", nil, "Kinds to force-regenerate (repeatable)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "json", "Output format: text, json")

	return cmd
}

func runInterpret(ctx context.Context, cmd *cobra.Command, chartPath string, opts interpretOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	language := opts.language
	if language == "" {
		language = cfg.Interp.Language
	}

	chart, err := astro.LoadChart(chartPath)
	if err != nil {
		return err
	}

	app, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	resp, err := app.service.GetAll(ctx, interp.Request{
		ChartID:    chart.ID,
		Language:   language,
		Types:      astro.BuildTypeSpecs(chart),
		Regenerate: opts.regenerate,
	})
	if err != nil {
		return err
	}

	slog.Info("interpret_complete",
		slog.String("chart_id", chart.ID),
		slog.Int("items", resp.Metadata.TotalItems),
		slog.Int("durable_hits", resp.Metadata.DurableHits),
		slog.Int("shared_hits", resp.Metadata.SharedHits),
		slog.Int("generations", resp.Metadata.Generations),
		slog.Duration("elapsed", resp.Metadata.Elapsed))

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	return printInterpretText(cmd, resp)
}

// printInterpretText renders a human-readable report.
func printInterpretText(cmd *cobra.Command, resp *interp.Response) error {
	w := cmd.OutOrStdout()

	for kind, subjects := range resp.Groups {
		fmt.Fprintf(w, "== %s ==\n", kind)
		for name, r := range subjects {
			marker := ""
			if r.Outdated {
				marker = " (outdated)"
			}
			fmt.Fprintf(w, "[%s] %s%s\n%s\n\n", r.Source, name, marker, r.Content)
		}
	}
	for kind, r := range resp.Singles {
		fmt.Fprintf(w, "== %s ==\n[%s]\n%s\n\n", kind, r.Source, r.Content)
	}
	for _, e := range resp.Errors {
		fmt.Fprintf(w, "ERROR %s/%s: %s\n", e.Kind, e.Subject, e.Message)
	}

	m := resp.Metadata
	fmt.Fprintf(w, "%d items: %d durable, %d shared, %d generated, %d outdated (%s)\n",
		m.TotalItems, m.DurableHits, m.SharedHits, m.Generations, m.OutdatedCount, m.Elapsed)
	return nil
}
