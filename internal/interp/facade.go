package interp

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Service fans the orchestrator out across every subject of a request and
// aggregates the results. Fan-out / fan-in: all tasks run concurrently and
// the call blocks until every one completes; no partial or streaming
// response.
type Service struct {
	orchestrator *Orchestrator
	workers      int
}

// NewService creates the parallel orchestration facade. workers caps
// concurrent per-subject tasks; zero or negative means NumCPU*4.
func NewService(orchestrator *Orchestrator, workers int) *Service {
	if workers <= 0 {
		workers = runtime.NumCPU() * 4
	}
	return &Service{orchestrator: orchestrator, workers: workers}
}

// taskResult is the fan-in envelope for one subject.
type taskResult struct {
	kind     string
	subject  string
	singular bool
	result   *FetchResult
	err      error
}

// GetAll resolves every subject of the request concurrently and groups the
// results by kind. One subject's failure becomes an error entry; the rest
// of the batch proceeds. The caller's context propagates to every task.
func (s *Service) GetAll(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	forced := make(map[string]bool, len(req.Regenerate))
	for _, kind := range req.Regenerate {
		forced[kind] = true
	}

	var (
		mu      sync.Mutex
		results []taskResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, spec := range req.Types {
		for _, subject := range spec.Subjects {
			spec, subject := spec, subject
			g.Go(func() error {
				res := s.runOne(gctx, req, spec, subject, forced[spec.Kind])
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
				// Task failures are carried as values; returning an error
				// here would cancel sibling tasks.
				return nil
			})
		}
	}

	_ = g.Wait()

	resp := &Response{
		Groups:  make(map[string]map[string]*FetchResult),
		Singles: make(map[string]*FetchResult),
	}
	for _, spec := range req.Types {
		if !spec.Singular {
			resp.Groups[spec.Kind] = make(map[string]*FetchResult)
		}
	}

	meta := RunMetadata{TotalItems: len(results)}
	for _, r := range results {
		if r.err != nil {
			resp.Errors = append(resp.Errors, SubjectError{
				Kind:    r.kind,
				Subject: r.subject,
				Err:     r.err,
				Message: r.err.Error(),
			})
			continue
		}

		if r.singular {
			resp.Singles[r.kind] = r.result
		} else {
			resp.Groups[r.kind][r.subject] = r.result
		}

		switch r.result.Source {
		case SourceDurable:
			meta.DurableHits++
		case SourceShared:
			meta.SharedHits++
		case SourceGenerated:
			meta.Generations++
		}
		if r.result.Outdated {
			meta.OutdatedCount++
		}
		meta.DocumentsUsed += r.result.ReferenceDocs
	}

	// The content version is process-global, so any successful result
	// carries it; fall back to the orchestrator's own when all failed.
	meta.ContentVersion = s.orchestrator.ContentVersion()
	meta.Elapsed = time.Since(start)
	resp.Metadata = meta

	return resp, nil
}

// runOne executes one subject task. A panic inside the orchestrator or a
// collaborator becomes an error value rather than aborting the batch.
func (s *Service) runOne(ctx context.Context, req Request, spec TypeSpec, subject Subject, force bool) (res taskResult) {
	res = taskResult{kind: spec.Kind, subject: subject.Name, singular: spec.Singular}

	defer func() {
		if r := recover(); r != nil {
			res.result = nil
			res.err = fmt.Errorf("panic in %s/%s: %v", spec.Kind, subject.Name, r)
		}
	}()

	if err := ctx.Err(); err != nil {
		res.err = err
		return res
	}

	result, err := s.orchestrator.FetchOrGenerate(ctx, req.ChartID, spec.Kind, subject, req.Language, force)
	if err != nil {
		res.err = err
		return res
	}
	res.result = result
	return res
}
