package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/leadforge/leadforge/internal/core"
	"github.com/leadforge/leadforge/internal/domain/model"
	"github.com/leadforge/leadforge/internal/domain/retry"
	"github.com/leadforge/leadforge/internal/observability/metrics"
)

// ProcessNext claims at most one job and dispatches it to a worker goroutine.
// It returns true when a job was claimed, and false when every concurrency
// slot is busy, the rate window is full, or nothing is eligible. The claimed
// job settles in the background; Stop waits for it.
func (q *Queue) ProcessNext(ctx context.Context) (bool, error) {
	// Slot first so a saturated worker does not consume rate budget.
	select {
	case q.slots <- struct{}{}:
	default:
		return false, nil
	}
	release := func() { <-q.slots }

	allowed, err := q.limiter.Allow(ctx)
	if err != nil {
		release()
		return false, fmt.Errorf("rate limiter: %w", err)
	}
	if !allowed {
		release()
		return false, nil
	}

	job, err := q.store.Claim(ctx, q.workerID)
	if errors.Is(err, model.ErrNoJobsAvailable) {
		release()
		return false, nil
	}
	if err != nil {
		release()
		return false, fmt.Errorf("claim job: %w", err)
	}

	q.inflight.Add(1)
	go func() {
		defer q.inflight.Done()
		defer release()
		q.execute(ctx, job)
	}()
	return true, nil
}

type handlerOutcome struct {
	result json.RawMessage
	err    error
}

// execute runs the job's handler and settles the outcome against the store.
func (q *Queue) execute(ctx context.Context, job *model.Job) {
	start := time.Now()
	logger := q.logger.With(
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.Type)),
		slog.Int("attempt", job.Attempts))

	h, ok := q.handlerFor(job.Type)
	if !ok {
		msg := fmt.Sprintf("no handler registered for job type %s", job.Type)
		logger.ErrorContext(ctx, "missing handler")
		q.settleFailure(ctx, job, msg, start)
		return
	}

	q.appendEvent(ctx, job.ID, "started", "attempt "+strconv.Itoa(job.Attempts))

	outcome := q.invoke(ctx, job, h)
	if outcome.err != nil {
		logger.WarnContext(ctx, "job handler failed",
			slog.Any("error", outcome.err),
			slog.Duration("elapsed", time.Since(start)))
		q.settleFailure(ctx, job, outcome.err.Error(), start)
		return
	}

	done, err := q.store.Complete(ctx, job.ID, outcome.result)
	if err != nil {
		logger.ErrorContext(ctx, "complete job", slog.Any("error", err))
		q.emitJob(job, "completed", metrics.ResultError, start, err)
		return
	}
	if !done {
		// Cancelled while running; discard the result.
		logger.InfoContext(ctx, "job no longer running, result discarded")
		q.emitJob(job, "completed", metrics.ResultNoop, start, nil)
		return
	}

	q.appendEvent(ctx, job.ID, "completed", "")
	logger.InfoContext(ctx, "job completed", slog.Duration("elapsed", time.Since(start)))
	q.emitJob(job, "completed", metrics.ResultSuccess, start, nil)
}

// invoke races the handler against the execution timeout. A handler that
// outlives the deadline keeps running on its (cancelled) context, but its
// outcome is replaced by a timeout failure.
func (q *Queue) invoke(ctx context.Context, job *model.Job, h HandlerFunc) handlerOutcome {
	execCtx, cancel := context.WithTimeout(ctx, q.execTimeout)
	defer cancel()

	done := make(chan handlerOutcome, 1)
	go func() {
		result, err := h(execCtx, job)
		done <- handlerOutcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out
	case <-execCtx.Done():
		if errors.Is(execCtx.Err(), context.DeadlineExceeded) {
			return handlerOutcome{err: fmt.Errorf("execution timeout after %ds", int(q.execTimeout.Seconds()))}
		}
		return handlerOutcome{err: fmt.Errorf("execution cancelled: %w", execCtx.Err())}
	}
}

// settleFailure applies the retry policy to a failed execution: schedule a
// retry, or fail terminally and hand the job to the dead letter queue.
func (q *Queue) settleFailure(ctx context.Context, job *model.Job, errMsg string, start time.Time) {
	pol := q.policyFor(job.Type)
	if job.MaxAttempts > 0 {
		pol.MaxAttempts = job.MaxAttempts
	}

	decision := retry.Decide(pol, errMsg, job.Attempts)
	if decision.Retry {
		delay := retry.NextDelay(pol, job.Attempts)
		retryAt := q.tp.Now().UTC().Add(delay)
		ok, err := q.store.ScheduleRetry(ctx, core.ScheduleRetryParams{
			ID:      job.ID,
			ErrMsg:  errMsg,
			RetryAt: retryAt,
		})
		if err != nil {
			q.logger.ErrorContext(ctx, "schedule retry",
				slog.String("job_id", job.ID), slog.Any("error", err))
			return
		}
		if ok {
			q.appendEvent(ctx, job.ID, "retry_scheduled",
				fmt.Sprintf("attempt %d in %s", job.Attempts+1, delay.Round(time.Millisecond)))
		}
		q.emitJob(job, "retry_scheduled", metrics.ResultError, start, errors.New(errMsg))
		return
	}

	ok, err := q.store.MarkFailed(ctx, job.ID, errMsg)
	if err != nil {
		q.logger.ErrorContext(ctx, "mark job failed",
			slog.String("job_id", job.ID), slog.Any("error", err))
		return
	}
	if !ok {
		// Already cancelled; nothing to dead-letter.
		q.emitJob(job, "failed", metrics.ResultNoop, start, nil)
		return
	}

	q.appendEvent(ctx, job.ID, "failed", decision.Reason)
	q.deadLetter(ctx, job, errMsg, decision)
	q.emitJob(job, "failed", metrics.ResultError, start, errors.New(errMsg))
}

// deadLetter records the terminal failure and raises a job_failed alert.
// Exhausted retryable errors point at infrastructure trouble and alert at
// critical; terminal input errors alert at warning.
func (q *Queue) deadLetter(ctx context.Context, job *model.Job, errMsg string, decision retry.Decision) {
	item := &model.DeadLetterItem{
		JobID:     job.ID,
		JobType:   job.Type,
		Payload:   job.Payload,
		LastError: errMsg,
		Attempts:  job.Attempts,
		FailedAt:  q.tp.Now().UTC(),
	}
	if err := q.store.AddDeadLetter(ctx, item); err != nil {
		q.logger.ErrorContext(ctx, "add dead letter",
			slog.String("job_id", job.ID), slog.Any("error", err))
	}

	if q.alerts == nil {
		return
	}
	severity := model.AlertSeverityWarning
	if decision.Reason == retry.ReasonExhausted && !retry.Terminal(errMsg) {
		severity = model.AlertSeverityCritical
	}
	q.alerts.Send(ctx, core.SendAlertParams{
		Type:     model.AlertTypeJobFailed,
		Severity: severity,
		Title:    fmt.Sprintf("%s job failed permanently", job.Type),
		Message:  errMsg,
		Data: map[string]string{
			"job_id":   job.ID,
			"job_type": string(job.Type),
			"attempts": strconv.Itoa(job.Attempts),
			"reason":   decision.Reason,
		},
	})
}

func (q *Queue) emitJob(job *model.Job, transition, result string, start time.Time, err error) {
	metrics.EmitJobLifecycle(q.metrics, metrics.JobMetric{
		JobType:    string(job.Type),
		Transition: transition,
		Result:     result,
		Duration:   time.Since(start),
		Err:        err,
	})
}
