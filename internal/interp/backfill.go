package interp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/siderealab/ephemeris/internal/store"
)

// backfillTimeout bounds one backfill write. Backfill runs detached from
// the originating request, so it carries its own deadline.
const backfillTimeout = 10 * time.Second

// BackfillQueue copies shared-cache hits into the durable store out of
// line. Fire-and-forget: the originating task never waits on it and its
// failures are logged, never propagated.
type BackfillQueue struct {
	durable store.InterpretationStore
	tasks   chan *store.Interpretation
	workers int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewBackfillQueue creates a bounded backfill queue.
func NewBackfillQueue(durable store.InterpretationStore, queueSize, workers int) *BackfillQueue {
	if queueSize <= 0 {
		queueSize = 256
	}
	if workers <= 0 {
		workers = 2
	}
	return &BackfillQueue{
		durable: durable,
		tasks:   make(chan *store.Interpretation, queueSize),
		workers: workers,
		stopCh:  make(chan struct{}),
	}
}

// Start launches the worker goroutines. Non-blocking.
func (q *BackfillQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}
	q.running = true

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.run()
	}
}

func (q *BackfillQueue) run() {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopCh:
			return
		case rec := <-q.tasks:
			ctx, cancel := context.WithTimeout(context.Background(), backfillTimeout)
			if err := q.durable.Save(ctx, rec); err != nil {
				slog.Warn("backfill_failed",
					slog.String("chart_id", rec.ChartID),
					slog.String("kind", rec.Kind),
					slog.String("subject", rec.Subject),
					slog.String("error", err.Error()))
			} else {
				slog.Debug("backfill_saved",
					slog.String("chart_id", rec.ChartID),
					slog.String("kind", rec.Kind),
					slog.String("subject", rec.Subject))
			}
			cancel()
		}
	}
}

// Enqueue schedules a record for backfill without blocking. A full queue
// drops the record; the durable copy is best effort by contract.
func (q *BackfillQueue) Enqueue(rec *store.Interpretation) bool {
	q.mu.Lock()
	running := q.running
	q.mu.Unlock()
	if !running {
		return false
	}

	select {
	case q.tasks <- rec:
		return true
	default:
		slog.Warn("backfill_queue_full",
			slog.String("chart_id", rec.ChartID),
			slog.String("kind", rec.Kind),
			slog.String("subject", rec.Subject))
		return false
	}
}

// Stop signals the workers to stop and waits for them to finish. Queued
// records that have not started are abandoned.
func (q *BackfillQueue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.mu.Unlock()

	close(q.stopCh)
	q.wg.Wait()
}
