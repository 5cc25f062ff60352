package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

func newIndexCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Ingest the reference corpus",
		Long: `Load reference documents from the corpus directory, build the lexical
index, embed the documents into the dense index, and persist the dense
collection when a path is configured.

Examples:
  ephemeris index
  ephemeris index --dir ./corpus`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, dir)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Corpus directory (overrides config)")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, dir string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dir != "" {
		cfg.Corpus.Dir = dir
	}
	if cfg.Corpus.Dir == "" {
		return fmt.Errorf("no corpus directory configured; set corpus.dir or pass --dir")
	}

	app, err := newRetrieval(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.dense.Save(); err != nil {
		slog.Warn("dense_save_failed", slog.String("error", err.Error()))
	}

	stats := app.lexical.Stats()
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents (%d unique terms, avg length %.1f)\n",
		stats.DocumentCount, stats.UniqueTerms, stats.AvgDocLength)
	if info := app.dense.CollectionInfo(); info != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Dense collection %q: %d vectors (%d dims, %s)\n",
			info.Name, info.Count, info.Dimensions, info.Metric)
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Dense index disabled; lexical-only mode")
	}
	return nil
}
