package queue

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/leadforge/leadforge/internal/observability/metrics"
)

// Start launches the polling loop and the terminal-job cleanup loop. It
// returns immediately; call Stop to shut down.
func (q *Queue) Start(ctx context.Context) {
	q.runMu.Lock()
	defer q.runMu.Unlock()
	if q.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	q.cancel = cancel

	q.logger.InfoContext(ctx, "starting queue",
		slog.String("worker_id", q.workerID),
		slog.Int("concurrency", cap(q.slots)),
		slog.Duration("tick", q.tickInterval))

	q.loopsWG.Add(2)
	go func() {
		defer q.loopsWG.Done()
		q.pollLoop(runCtx)
	}()
	go func() {
		defer q.loopsWG.Done()
		q.cleanupLoop(runCtx)
	}()
}

// Stop cancels the loops and waits for in-flight handlers to settle.
func (q *Queue) Stop() {
	q.runMu.Lock()
	cancel := q.cancel
	q.cancel = nil
	q.runMu.Unlock()
	if cancel == nil {
		return
	}

	cancel()
	q.loopsWG.Wait()
	q.inflight.Wait()
	q.logger.Info("queue stopped")
}

// pollLoop dispatches jobs on every tick. After processing a job it loops
// again immediately so a deep backlog drains at the concurrency and rate
// limits rather than one job per tick.
func (q *Queue) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(q.tickInterval)
	defer ticker.Stop()

	for {
		processed, err := q.ProcessNext(ctx)
		if err != nil && ctx.Err() == nil {
			q.logger.ErrorContext(ctx, "process next", slog.Any("error", err))
		}
		if processed && ctx.Err() == nil {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// cleanupLoop prunes terminal jobs past the retention window. The first run
// is jittered so multiple workers do not sweep in lockstep.
func (q *Queue) cleanupLoop(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(jitterDuration(q.cleanupEvery / 10)):
	}

	ticker := time.NewTicker(q.cleanupEvery)
	defer ticker.Stop()

	for {
		q.runCleanup(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (q *Queue) runCleanup(ctx context.Context) {
	start := time.Now()
	deleted, err := q.store.CleanupTerminal(ctx, q.retention, q.cleanupBatch)
	metrics.EmitSweep(q.metrics, metrics.SweepMetric{
		Check:   "cleanup_terminal",
		Count:   deleted,
		Elapsed: time.Since(start),
		Err:     err,
	})
	if err != nil {
		if ctx.Err() == nil {
			q.logger.ErrorContext(ctx, "cleanup terminal jobs", slog.Any("error", err))
		}
		return
	}
	if deleted > 0 {
		q.logger.InfoContext(ctx, "pruned terminal jobs", slog.Int64("deleted", deleted))
	}
}

func jitterDuration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}
