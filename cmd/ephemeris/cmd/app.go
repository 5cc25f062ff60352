package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/siderealab/ephemeris/internal/config"
	"github.com/siderealab/ephemeris/internal/corpus"
	"github.com/siderealab/ephemeris/internal/embed"
	"github.com/siderealab/ephemeris/internal/interp"
	"github.com/siderealab/ephemeris/internal/search"
	"github.com/siderealab/ephemeris/internal/store"
)

// app is the composition root shared by the commands: retrieval stack plus,
// when wired with newApp, the interpretation tiers.
type app struct {
	cfg      *config.Config
	lexical  *store.LexicalIndex
	dense    *store.DenseIndex
	embedder embed.Embedder
	corpus   *corpus.Manager
	engine   *search.Engine

	durable  store.InterpretationStore
	shared   store.SharedCache
	backfill *interp.BackfillQueue
	service  *interp.Service
}

// newRetrieval wires the search half: embedder, lexical and dense indexes,
// corpus manager, hybrid engine. The corpus directory is loaded when
// configured.
func newRetrieval(ctx context.Context, cfg *config.Config) (*app, error) {
	embedder := newEmbedder(cfg)

	lexical := store.NewLexicalIndex(store.LexicalConfig{
		K1: cfg.Search.K1,
		B:  cfg.Search.B,
	})

	dense := store.NewDenseIndex(store.DenseConfig{
		Path:       cfg.Vector.Path,
		Collection: cfg.Vector.Collection,
		Dimensions: embedder.Dimensions(),
		Metric:     cfg.Vector.Metric,
		M:          cfg.Vector.M,
		EfSearch:   cfg.Vector.EfSearch,
	})

	corpusMgr := corpus.NewManager(lexical, dense, embedder)
	if cfg.Corpus.Dir != "" {
		n, err := corpusMgr.LoadDir(ctx, cfg.Corpus.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to load corpus from %s: %w", cfg.Corpus.Dir, err)
		}
		slog.Info("corpus_loaded",
			slog.String("dir", cfg.Corpus.Dir),
			slog.Int("documents", n))
	}

	engine, err := search.NewEngine(lexical, dense, embedder)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		lexical:  lexical,
		dense:    dense,
		embedder: embedder,
		corpus:   corpusMgr,
		engine:   engine,
	}, nil
}

// newApp wires the full engine: retrieval plus durable store, shared
// cache, backfill queue, orchestrator, and facade.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a, err := newRetrieval(ctx, cfg)
	if err != nil {
		return nil, err
	}

	durable, err := store.NewSQLiteInterpretationStore(cfg.Durable.Path)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.durable = durable

	if cfg.Cache.Addr != "" {
		a.shared = store.NewRedisSharedCache(store.RedisCacheConfig{
			Addr:     cfg.Cache.Addr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Cache.TTL,
			Prefix:   cfg.Cache.Prefix,
		})
		a.backfill = interp.NewBackfillQueue(durable, cfg.Interp.BackfillQueueSize, cfg.Interp.BackfillWorkers)
		a.backfill.Start()
	}

	generator := interp.NewRetrievalGenerator(
		a.engine, a.corpus, newCompleter(cfg), cfg.Interp.Model, cfg.Interp.ContextLimit)

	orchestrator := interp.NewOrchestrator(interp.OrchestratorConfig{
		Durable:        durable,
		Shared:         a.shared,
		Generator:      generator,
		Backfill:       a.backfill,
		Model:          cfg.Interp.Model,
		ContentVersion: cfg.Interp.ContentVersion,
	})

	a.service = interp.NewService(orchestrator, cfg.Interp.Workers)
	return a, nil
}

// newEmbedder builds the configured embedding provider behind an LRU cache.
func newEmbedder(cfg *config.Config) embed.Embedder {
	var inner embed.Embedder
	switch cfg.Embedding.Provider {
	case "ollama":
		inner = embed.NewOllamaEmbedder(embed.OllamaConfig{
			Host:       cfg.Embedding.OllamaHost,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Vector.Dimensions,
		})
	default:
		inner = embed.NewStaticEmbedder()
	}
	return embed.NewCachedEmbedder(inner, cfg.Embedding.CacheSize)
}

// newCompleter builds the text-generation collaborator. The static
// provider doubles as offline mode and gets the template completer.
func newCompleter(cfg *config.Config) interp.Completer {
	if cfg.Embedding.Provider == "ollama" {
		return interp.NewOllamaCompleter(cfg.Embedding.OllamaHost, cfg.Interp.Model, 0)
	}
	return interp.NewTemplateCompleter()
}

// Close releases resources in reverse wiring order.
func (a *app) Close() {
	if a.backfill != nil {
		a.backfill.Stop()
	}
	if a.shared != nil {
		_ = a.shared.Close()
	}
	if a.durable != nil {
		_ = a.durable.Close()
	}
	if a.embedder != nil {
		_ = a.embedder.Close()
	}
}
