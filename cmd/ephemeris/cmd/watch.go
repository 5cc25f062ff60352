package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/siderealab/ephemeris/internal/corpus"
)

func newWatchCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the corpus directory and re-index on change",
		Long: `Load the reference corpus and keep the indexes current while corpus
files are edited. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), cmd, dir)
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Corpus directory (overrides config)")

	return cmd
}

func runWatch(ctx context.Context, cmd *cobra.Command, dir string) error {
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

	reload := func(ctx context.Context) error {
		n, err := app.corpus.LoadDir(ctx, cfg.Corpus.Dir)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reloaded %d documents\n", n)
		return nil
	}

	watcher := corpus.NewWatcher(cfg.Corpus.Dir, cfg.Corpus.WatchDebounce, reload)
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "watching %s (%d documents)\n", cfg.Corpus.Dir, app.corpus.Count())

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()
	return nil
}
