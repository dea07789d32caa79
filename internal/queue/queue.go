// Package queue drives job execution: it accepts work, claims it from the
// store, runs registered handlers with retry and timeout discipline, and
// routes permanent failures to the dead letter queue.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/leadforge/leadforge/internal/core"
	"github.com/leadforge/leadforge/internal/data"
	"github.com/leadforge/leadforge/internal/domain/model"
	"github.com/leadforge/leadforge/internal/domain/retry"
	"github.com/leadforge/leadforge/internal/observability/statsd"
)

// HandlerFunc executes one job. A nil error completes the job with the
// returned result; a non-nil error triggers the retry policy.
type HandlerFunc func(ctx context.Context, job *model.Job) (json.RawMessage, error)

const (
	defaultConcurrency   = 4
	defaultTickInterval  = 500 * time.Millisecond
	defaultExecTimeout   = 2 * time.Minute
	defaultRetention     = 7 * 24 * time.Hour
	defaultCleanupEvery  = time.Hour
	defaultCleanupBatch  = 500
	defaultRatePerMinute = 120
)

// Options configures a Queue.
type Options struct {
	Store  core.JobStore
	Alerts core.AlertSender

	Logger       *slog.Logger
	Metrics      statsd.Sink
	TimeProvider data.TimeProvider

	// Policies overrides the per-type retry defaults. Nil uses the defaults.
	Policies *retry.Table

	// RateLimiter gates dispatch. Nil builds a local sliding-window limiter
	// from RatePerMinute.
	RateLimiter   RateLimiter
	RatePerMinute int

	// Concurrency bounds in-flight handlers. ExecTimeout bounds one handler
	// invocation.
	Concurrency int
	ExecTimeout time.Duration

	TickInterval    time.Duration
	Retention       time.Duration
	CleanupInterval time.Duration
	CleanupBatch    int

	// WorkerID identifies this process in claims. Defaults to hostname-pid.
	WorkerID string
}

// Queue coordinates handlers, the job store, the retry policy, and the alert
// manager. Construct with New, register handlers, then either drive it
// manually with ProcessNext or let Start run the polling loop.
type Queue struct {
	store    core.JobStore
	alerts   core.AlertSender
	logger   *slog.Logger
	metrics  statsd.Sink
	tp       data.TimeProvider
	policies *retry.Table
	limiter  RateLimiter

	workerID     string
	execTimeout  time.Duration
	tickInterval time.Duration
	retention    time.Duration
	cleanupEvery time.Duration
	cleanupBatch int

	mu       sync.RWMutex
	handlers map[model.JobType]HandlerFunc

	slots    chan struct{}
	inflight sync.WaitGroup

	runMu   sync.Mutex
	cancel  context.CancelFunc
	loopsWG sync.WaitGroup
}

// New constructs a Queue. Store is required.
func New(opts Options) (*Queue, error) {
	if opts.Store == nil {
		return nil, errors.New("queue: store is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	execTimeout := opts.ExecTimeout
	if execTimeout <= 0 {
		execTimeout = defaultExecTimeout
	}
	tick := opts.TickInterval
	if tick <= 0 {
		tick = defaultTickInterval
	}
	retention := opts.Retention
	if retention <= 0 {
		retention = defaultRetention
	}
	cleanupEvery := opts.CleanupInterval
	if cleanupEvery <= 0 {
		cleanupEvery = defaultCleanupEvery
	}
	cleanupBatch := opts.CleanupBatch
	if cleanupBatch <= 0 {
		cleanupBatch = defaultCleanupBatch
	}

	limiter := opts.RateLimiter
	if limiter == nil {
		rate := opts.RatePerMinute
		if rate == 0 {
			rate = defaultRatePerMinute
		}
		limiter = NewSlidingWindowLimiter(rate, time.Minute, tp)
	}

	workerID := opts.WorkerID
	if workerID == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "worker"
		}
		workerID = fmt.Sprintf("%s-%d", host, os.Getpid())
	}

	return &Queue{
		store:        opts.Store,
		alerts:       opts.Alerts,
		logger:       logger.With(slog.String("component", "queue")),
		metrics:      opts.Metrics,
		tp:           tp,
		policies:     opts.Policies,
		limiter:      limiter,
		workerID:     workerID,
		execTimeout:  execTimeout,
		tickInterval: tick,
		retention:    retention,
		cleanupEvery: cleanupEvery,
		cleanupBatch: cleanupBatch,
		handlers:     make(map[model.JobType]HandlerFunc),
		slots:        make(chan struct{}, concurrency),
	}, nil
}

// RegisterHandler binds a handler to a job type, replacing any previous one.
func (q *Queue) RegisterHandler(jobType model.JobType, h HandlerFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = h
}

func (q *Queue) handlerFor(jobType model.JobType) (HandlerFunc, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	h, ok := q.handlers[jobType]
	return h, ok
}

// EnqueueOptions carries the optional fields of Enqueue.
type EnqueueOptions struct {
	Priority     int
	ScheduledFor *time.Time
	MaxAttempts  int
}

// Enqueue validates and persists a new job. MaxAttempts defaults to the
// retry policy for the job type when the caller leaves it zero.
func (q *Queue) Enqueue(ctx context.Context, jobType model.JobType, payload json.RawMessage, opts EnqueueOptions) (*model.Job, error) {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = q.policyFor(jobType).MaxAttempts
	}

	job, err := q.store.Enqueue(ctx, &model.EnqueueRequest{
		Type:         jobType,
		Payload:      payload,
		Priority:     opts.Priority,
		ScheduledFor: opts.ScheduledFor,
		MaxAttempts:  maxAttempts,
	})
	if err != nil {
		return nil, err
	}

	q.appendEvent(ctx, job.ID, "enqueued", string(job.Status))
	q.logger.InfoContext(ctx, "job enqueued",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.Type)),
		slog.Int("priority", job.Priority))
	return job, nil
}

// Cancel requests cancellation of a job. Running jobs are not interrupted,
// but their outcome is discarded once the handler returns.
func (q *Queue) Cancel(ctx context.Context, id string) (bool, error) {
	ok, err := q.store.Cancel(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		q.appendEvent(ctx, id, "cancelled", "")
		q.logger.InfoContext(ctx, "job cancelled", slog.String("job_id", id))
	}
	return ok, nil
}

// RetryFromDeadLetter clones a dead letter item into a fresh pending job.
// The item itself stays on the dead letter queue until resolved.
func (q *Queue) RetryFromDeadLetter(ctx context.Context, dlqID string) (*model.Job, error) {
	item, err := q.store.GetDeadLetter(ctx, dlqID)
	if err != nil {
		return nil, err
	}

	job, err := q.Enqueue(ctx, item.JobType, item.Payload, EnqueueOptions{})
	if err != nil {
		return nil, err
	}
	q.appendEvent(ctx, job.ID, "retried_from_dead_letter", dlqID)
	return job, nil
}

// ResolveDeadLetter stamps a dead letter item resolved with operator notes.
func (q *Queue) ResolveDeadLetter(ctx context.Context, dlqID, notes string) (bool, error) {
	return q.store.ResolveDeadLetter(ctx, dlqID, notes)
}

// GetJob retrieves a job by ID.
func (q *Queue) GetJob(ctx context.Context, id string) (*model.Job, error) {
	return q.store.GetByID(ctx, id)
}

// ListJobs returns jobs matching the filter.
func (q *Queue) ListJobs(ctx context.Context, filter model.JobFilter) ([]*model.Job, error) {
	return q.store.List(ctx, filter)
}

// Stats returns aggregate job counts.
func (q *Queue) Stats(ctx context.Context) (*model.JobStats, error) {
	return q.store.Stats(ctx)
}

// ListDeadLetters returns dead letter items matching the filter.
func (q *Queue) ListDeadLetters(ctx context.Context, filter model.DeadLetterFilter) ([]*model.DeadLetterItem, error) {
	return q.store.ListDeadLetters(ctx, filter)
}

func (q *Queue) policyFor(jobType model.JobType) retry.Policy {
	if q.policies != nil {
		return q.policies.For(jobType)
	}
	return retry.PolicyFor(jobType)
}

// appendEvent records an informational lifecycle event. Event log failures
// are logged and swallowed; the log never blocks the state machine.
func (q *Queue) appendEvent(ctx context.Context, jobID, event, detail string) {
	err := q.store.AppendJobEvent(ctx, &core.JobEvent{
		JobID:      jobID,
		Event:      event,
		Detail:     detail,
		OccurredAt: q.tp.Now().UTC(),
	})
	if err != nil {
		q.logger.WarnContext(ctx, "append job event",
			slog.String("job_id", jobID),
			slog.String("event", event),
			slog.Any("error", err))
	}
}
