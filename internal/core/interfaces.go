// Package core contains the contracts between the queue layer and its
// collaborators (ports in hexagonal architecture). Services depend on these
// interfaces, never on concrete store implementations.
package core

import (
	"context"
	"time"

	"github.com/leadforge/leadforge/internal/domain/model"
)

// JobStore is the durable record of every job and the single source of truth
// for job status. Two implementations exist: a Postgres-backed store for
// multi-worker deployments and a file-backed store for single-process use.
// The backend is selected explicitly at construction time.
type JobStore interface {
	// Enqueue persists a new job. The returned job carries its assigned ID
	// and initial status (pending, or scheduled when ScheduledFor is future).
	Enqueue(ctx context.Context, req *model.EnqueueRequest) (*model.Job, error)

	// Claim atomically transitions the highest-priority eligible job to
	// running, binds it to workerID, and increments its attempt counter.
	// No two concurrent claims ever return the same job. Returns
	// model.ErrNoJobsAvailable when nothing is eligible.
	Claim(ctx context.Context, workerID string) (*model.Job, error)

	// Complete marks a running job completed with an optional result payload.
	Complete(ctx context.Context, id string, result []byte) (bool, error)

	// ScheduleRetry moves a running job back to scheduled with the given
	// eligibility time and failure message. Attempts are not touched here;
	// they were consumed at claim time.
	ScheduleRetry(ctx context.Context, params ScheduleRetryParams) (bool, error)

	// MarkFailed transitions a running job to terminal failure.
	MarkFailed(ctx context.Context, id, errMsg string) (bool, error)

	// Cancel transitions a pending, scheduled, or running job to cancelled.
	// Cancelling a running job is cooperative: the in-flight handler is not
	// aborted, but its outcome is discarded.
	Cancel(ctx context.Context, id string) (bool, error)

	// ResetStuck returns running jobs whose StartedAt is older than the
	// threshold to pending, stamping an explanatory error. It returns the
	// jobs that were reset.
	ResetStuck(ctx context.Context, olderThan time.Duration) ([]*model.Job, error)

	GetByID(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, filter model.JobFilter) ([]*model.Job, error)
	Stats(ctx context.Context) (*model.JobStats, error)

	// Backlog counts eligible-but-unexecuted jobs (pending plus scheduled).
	Backlog(ctx context.Context) (*model.Backlog, error)

	// CleanupTerminal deletes terminal jobs older than maxAge, up to batch
	// rows per call, and returns the number deleted.
	CleanupTerminal(ctx context.Context, maxAge time.Duration, batch int) (int64, error)

	DeadLetterStore
	JobEventAppender
}

// ScheduleRetryParams groups parameters for JobStore.ScheduleRetry.
type ScheduleRetryParams struct {
	ID      string
	ErrMsg  string
	RetryAt time.Time
}

// DeadLetterStore owns DeadLetterItem persistence.
type DeadLetterStore interface {
	AddDeadLetter(ctx context.Context, item *model.DeadLetterItem) error
	GetDeadLetter(ctx context.Context, id string) (*model.DeadLetterItem, error)
	ListDeadLetters(ctx context.Context, filter model.DeadLetterFilter) ([]*model.DeadLetterItem, error)

	// ResolveDeadLetter stamps ResolvedAt and notes. Returns false when the
	// item was already resolved.
	ResolveDeadLetter(ctx context.Context, id, notes string) (bool, error)

	CountUnresolvedDeadLetters(ctx context.Context) (int, error)
}

// JobEventAppender records informational job lifecycle events. The event log
// is append-only and never read back into the state machine.
type JobEventAppender interface {
	AppendJobEvent(ctx context.Context, event *JobEvent) error
}

// JobEvent is one row in the append-only job history log.
type JobEvent struct {
	JobID      string
	Event      string
	Detail     string
	OccurredAt time.Time
}

// AlertSender raises operator alerts. Implemented by the alerting manager;
// consumed by the queue and the monitor.
type AlertSender interface {
	Send(ctx context.Context, params SendAlertParams) *model.Alert
}

// SendAlertParams groups the fields of an outgoing alert.
type SendAlertParams struct {
	Type     model.AlertType
	Severity model.AlertSeverity
	Title    string
	Message  string
	Data     map[string]string
}
