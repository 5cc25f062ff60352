package interp

import (
	"context"
	"log/slog"
	"time"

	ferrors "github.com/siderealab/ephemeris/internal/errors"
	"github.com/siderealab/ephemeris/internal/store"
)

// Orchestrator resolves one subject through the tier ladder:
// durable store, then shared cache, then generation.
//
// Storage outages degrade to "always generate", never to "always fail":
// lookup errors on either tier are logged and treated as misses.
type Orchestrator struct {
	durable   store.InterpretationStore
	shared    store.SharedCache // nil disables the shared tier
	generator Generator
	backfill  *BackfillQueue // nil disables backfill

	model          string
	contentVersion string
}

// OrchestratorConfig wires an Orchestrator.
type OrchestratorConfig struct {
	Durable   store.InterpretationStore
	Shared    store.SharedCache
	Generator Generator
	Backfill  *BackfillQueue

	// Model is the generator model id recorded on results and in keys.
	Model string

	// ContentVersion is the process-global content version. A durable
	// record with a different stored version is served flagged outdated.
	ContentVersion string
}

// NewOrchestrator creates a tiered orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{
		durable:        cfg.Durable,
		shared:         cfg.Shared,
		generator:      cfg.Generator,
		backfill:       cfg.Backfill,
		model:          cfg.Model,
		contentVersion: cfg.ContentVersion,
	}
}

// ContentVersion returns the process-global content version.
func (o *Orchestrator) ContentVersion() string {
	return o.contentVersion
}

// FetchOrGenerate resolves one (chart, kind, subject, language) tuple.
// params are the subject's normalized parameters extracted from the
// chart's live data; the shared-cache key is derived from them, while the
// durable staleness check compares the stored record's version. When
// forceRegenerate is set both cache checks are skipped.
func (o *Orchestrator) FetchOrGenerate(ctx context.Context, chartID, kind string, subject Subject, language string, forceRegenerate bool) (*FetchResult, error) {
	if !forceRegenerate {
		if result := o.checkDurable(ctx, chartID, kind, subject.Name, language); result != nil {
			return result, nil
		}
		if result := o.checkShared(ctx, chartID, kind, subject, language); result != nil {
			return result, nil
		}
	}
	return o.generate(ctx, chartID, kind, subject, language)
}

// checkDurable looks up the unique durable record. A stored version
// different from the current one is served anyway, flagged outdated, so
// the caller can decide whether to force-regenerate later. Lookup errors
// are logged misses.
func (o *Orchestrator) checkDurable(ctx context.Context, chartID, kind, subjectName, language string) *FetchResult {
	rec, err := o.durable.Get(ctx, chartID, kind, subjectName, language)
	if err != nil {
		slog.Warn("durable_lookup_failed",
			slog.String("chart_id", chartID),
			slog.String("kind", kind),
			slog.String("subject", subjectName),
			slog.String("error", err.Error()))
		return nil
	}
	if rec == nil {
		return nil
	}

	return &FetchResult{
		Kind:           kind,
		Subject:        subjectName,
		Content:        rec.Content,
		Source:         SourceDurable,
		Outdated:       rec.ContentVersion != o.contentVersion,
		ContentVersion: rec.ContentVersion,
		Model:          rec.Model,
	}
}

// checkShared looks up the shared cache under the key derived from the
// subject's live parameters and the current content version. A hit
// schedules a best-effort durable backfill and returns immediately.
func (o *Orchestrator) checkShared(ctx context.Context, chartID, kind string, subject Subject, language string) *FetchResult {
	if o.shared == nil {
		return nil
	}

	key := CacheKey(kind, subject.Params, o.model, o.contentVersion, language)
	entry, err := o.shared.Get(ctx, key)
	if err != nil {
		slog.Warn("shared_lookup_failed",
			slog.String("kind", kind),
			slog.String("subject", subject.Name),
			slog.String("error", err.Error()))
		return nil
	}
	if entry == nil {
		return nil
	}

	if o.backfill != nil {
		o.backfill.Enqueue(&store.Interpretation{
			ChartID:        chartID,
			Kind:           kind,
			Subject:        subject.Name,
			Content:        entry.Content,
			Model:          entry.Model,
			ContentVersion: entry.ContentVersion,
			Language:       language,
			CreatedAt:      time.Now().UTC(),
		})
	}

	return &FetchResult{
		Kind:           kind,
		Subject:        subject.Name,
		Content:        entry.Content,
		Source:         SourceShared,
		ContentVersion: entry.ContentVersion,
		Model:          entry.Model,
	}
}

// generate invokes the generation collaborator and synchronously persists
// a durable record before returning, so the next request for the tuple is
// guaranteed a durable hit. Persist failures are logged but do not fail an
// already-successful generation. The shared cache is populated best effort.
func (o *Orchestrator) generate(ctx context.Context, chartID, kind string, subject Subject, language string) (*FetchResult, error) {
	gen, err := o.generator.Generate(ctx, GenerateRequest{
		ChartID:  chartID,
		Kind:     kind,
		Subject:  subject.Name,
		Params:   subject.Params,
		Language: language,
	})
	if err != nil {
		return nil, ferrors.GenerationError("generation failed for "+kind+"/"+subject.Name, err)
	}

	// A cancelled task must not leave a partial durable write.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model := gen.Model
	if model == "" {
		model = o.model
	}

	rec := &store.Interpretation{
		ChartID:        chartID,
		Kind:           kind,
		Subject:        subject.Name,
		Content:        gen.Content,
		Model:          model,
		ContentVersion: o.contentVersion,
		Language:       language,
		CreatedAt:      time.Now().UTC(),
	}
	if err := o.durable.Save(ctx, rec); err != nil {
		slog.Warn("durable_persist_failed",
			slog.String("chart_id", chartID),
			slog.String("kind", kind),
			slog.String("subject", subject.Name),
			slog.String("error", err.Error()))
	}

	if o.shared != nil {
		key := CacheKey(kind, subject.Params, model, o.contentVersion, language)
		entry := &store.CacheEntry{
			Kind:           kind,
			Subject:        subject.Name,
			Content:        gen.Content,
			Model:          model,
			ContentVersion: o.contentVersion,
			Language:       language,
			LastAccessedAt: time.Now().UTC(),
		}
		if err := o.shared.Set(ctx, key, entry); err != nil {
			slog.Warn("shared_store_failed",
				slog.String("kind", kind),
				slog.String("subject", subject.Name),
				slog.String("error", err.Error()))
		}
	}

	return &FetchResult{
		Kind:           kind,
		Subject:        subject.Name,
		Content:        gen.Content,
		Source:         SourceGenerated,
		ReferenceDocs:  len(gen.ReferenceDocs),
		ContentVersion: o.contentVersion,
		Model:          model,
	}, nil
}
