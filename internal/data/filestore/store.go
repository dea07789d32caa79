// Package filestore implements a single-process, file-backed job store. State
// lives in memory behind a mutex and is snapshotted to disk as JSON after
// every mutation. It trades multi-worker coordination for zero infrastructure,
// so it suits local development and single-binary deployments.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leadforge/leadforge/internal/core"
	"github.com/leadforge/leadforge/internal/data"
	"github.com/leadforge/leadforge/internal/domain/model"
)

const (
	defaultMaxAttempts = 3
	snapshotFileMode   = 0o600

	restartErrorMsg = "reset after process restart (execution interrupted)"
	stuckErrorMsg   = "reset after stuck execution (worker presumed crashed)"
)

// Config holds construction options for the file store.
type Config struct {
	// Path is the snapshot file location. Required.
	Path string

	DefaultMaxAttempts int
	Logger             *slog.Logger
	TimeProvider       data.TimeProvider
}

// Store is the file-backed core.JobStore implementation. All methods are safe
// for concurrent use within one process; the file itself is not shared across
// processes.
type Store struct {
	mu sync.Mutex

	path        string
	jobs        map[string]*model.Job
	deadLetters map[string]*model.DeadLetterItem
	events      []core.JobEvent

	cfg          Config
	timeProvider data.TimeProvider
	logger       *slog.Logger
}

var _ core.JobStore = (*Store)(nil)

// snapshot is the on-disk representation of the whole store.
type snapshot struct {
	Jobs        []*model.Job            `json:"jobs"`
	DeadLetters []*model.DeadLetterItem `json:"dead_letters"`
	Events      []core.JobEvent         `json:"events"`
	SavedAt     time.Time               `json:"saved_at"`
}

// Open loads the snapshot at cfg.Path (if present) and returns a ready store.
// Jobs found in running status were interrupted by a crash or restart; they
// are returned to pending with their consumed attempt intact.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("filestore: path is required")
	}
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	if cfg.DefaultMaxAttempts <= 0 {
		cfg.DefaultMaxAttempts = defaultMaxAttempts
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		path:         cfg.Path,
		jobs:         make(map[string]*model.Job),
		deadLetters:  make(map[string]*model.DeadLetterItem),
		cfg:          cfg,
		timeProvider: tp,
		logger:       logger.With(slog.String("component", "filestore")),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("filestore: read snapshot: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}

	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Errorf("filestore: decode snapshot: %w", err)
	}

	now := s.timeProvider.Now().UTC()
	recovered := 0
	for _, job := range snap.Jobs {
		if job.Status == model.JobStatusRunning {
			job.Status = model.JobStatusPending
			job.StartedAt = nil
			job.WorkerID = nil
			job.LastError = strPtr(restartErrorMsg)
			job.UpdatedAt = now
			recovered++
		}
		s.jobs[job.ID] = job
	}
	for _, item := range snap.DeadLetters {
		s.deadLetters[item.ID] = item
	}
	s.events = snap.Events

	if recovered > 0 {
		s.logger.Info("recovered interrupted jobs on load",
			slog.Int("count", recovered))
	}
	return nil
}

// persist writes the snapshot to a temp file and renames it into place.
// Callers must hold s.mu.
func (s *Store) persist() error {
	snap := snapshot{
		Jobs:        make([]*model.Job, 0, len(s.jobs)),
		DeadLetters: make([]*model.DeadLetterItem, 0, len(s.deadLetters)),
		Events:      s.events,
		SavedAt:     s.timeProvider.Now().UTC(),
	}
	for _, job := range s.jobs {
		snap.Jobs = append(snap.Jobs, job)
	}
	for _, item := range s.deadLetters {
		snap.DeadLetters = append(snap.DeadLetters, item)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("filestore: encode snapshot: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("filestore: create snapshot dir: %w", err)
	}
	if err := os.WriteFile(tmp, raw, snapshotFileMode); err != nil {
		return fmt.Errorf("filestore: write snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("filestore: replace snapshot: %w", err)
	}
	return nil
}

// Enqueue persists a new job. Jobs with a future ScheduledFor start out
// scheduled; everything else starts pending.
func (s *Store) Enqueue(_ context.Context, req *model.EnqueueRequest) (*model.Job, error) {
	if req == nil {
		return nil, errors.New("enqueue request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate job id: %w", err)
	}

	now := s.timeProvider.Now().UTC()
	scheduledFor := now
	status := model.JobStatusPending
	if req.ScheduledFor != nil && req.ScheduledFor.After(now) {
		scheduledFor = req.ScheduledFor.UTC()
		status = model.JobStatusScheduled
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = s.cfg.DefaultMaxAttempts
	}

	job := &model.Job{
		ID:           id.String(),
		Type:         req.Type,
		Status:       status,
		Priority:     req.Priority,
		Payload:      cloneJSON(req.Payload),
		MaxAttempts:  maxAttempts,
		ScheduledFor: scheduledFor,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	if err := s.persist(); err != nil {
		delete(s.jobs, job.ID)
		return nil, err
	}
	return cloneJob(job), nil
}

// Claim picks the highest-priority eligible job, marks it running, and
// consumes one attempt. The mutex makes the pick-and-mark atomic, so no two
// callers ever win the same job.
func (s *Store) Claim(_ context.Context, workerID string) (*model.Job, error) {
	now := s.timeProvider.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	var best *model.Job
	for _, job := range s.jobs {
		if !job.Eligible(now) {
			continue
		}
		if best == nil || claimOrderBefore(job, best) {
			best = job
		}
	}
	if best == nil {
		return nil, model.ErrNoJobsAvailable
	}

	best.Status = model.JobStatusRunning
	best.Attempts++
	best.StartedAt = timePtr(now)
	best.WorkerID = strPtr(workerID)
	best.UpdatedAt = now
	if err := s.persist(); err != nil {
		return nil, err
	}
	return cloneJob(best), nil
}

// claimOrderBefore reports whether a should be claimed before b.
func claimOrderBefore(a, b *model.Job) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

// Complete marks a running job completed with an optional result payload.
func (s *Store) Complete(_ context.Context, id string, result []byte) (bool, error) {
	return s.transition(id, model.JobStatusRunning, func(job *model.Job, now time.Time) {
		job.Status = model.JobStatusCompleted
		job.CompletedAt = timePtr(now)
		job.Result = cloneJSON(result)
		job.LastError = nil
		job.WorkerID = nil
	})
}

// ScheduleRetry moves a running job back to scheduled for a later attempt.
// Attempts are untouched; the claim already consumed one.
func (s *Store) ScheduleRetry(_ context.Context, params core.ScheduleRetryParams) (bool, error) {
	return s.transition(params.ID, model.JobStatusRunning, func(job *model.Job, _ time.Time) {
		job.Status = model.JobStatusScheduled
		job.ScheduledFor = params.RetryAt.UTC()
		job.LastError = strPtr(params.ErrMsg)
		job.StartedAt = nil
		job.WorkerID = nil
	})
}

// MarkFailed transitions a running job to terminal failure.
func (s *Store) MarkFailed(_ context.Context, id, errMsg string) (bool, error) {
	return s.transition(id, model.JobStatusRunning, func(job *model.Job, now time.Time) {
		job.Status = model.JobStatusFailed
		job.CompletedAt = timePtr(now)
		job.LastError = strPtr(errMsg)
		job.WorkerID = nil
	})
}

// transition applies mutate to the job when it is in the expected status,
// persisting on success. Returns false when the job is missing or not in the
// expected status.
func (s *Store) transition(id string, expect model.JobStatus, mutate func(*model.Job, time.Time)) (bool, error) {
	now := s.timeProvider.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status != expect {
		return false, nil
	}
	mutate(job, now)
	job.UpdatedAt = now
	if err := s.persist(); err != nil {
		return false, err
	}
	return true, nil
}

// Cancel transitions a pending, scheduled, or running job to cancelled.
func (s *Store) Cancel(_ context.Context, id string) (bool, error) {
	now := s.timeProvider.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok || job.Status.Terminal() {
		return false, nil
	}
	job.Status = model.JobStatusCancelled
	job.CompletedAt = timePtr(now)
	job.WorkerID = nil
	job.UpdatedAt = now
	if err := s.persist(); err != nil {
		return false, err
	}
	return true, nil
}

// ResetStuck returns running jobs started before now-olderThan to pending.
func (s *Store) ResetStuck(_ context.Context, olderThan time.Duration) ([]*model.Job, error) {
	now := s.timeProvider.Now().UTC()
	cutoff := now.Add(-olderThan)

	s.mu.Lock()
	defer s.mu.Unlock()

	var reset []*model.Job
	for _, job := range s.jobs {
		if job.Status != model.JobStatusRunning {
			continue
		}
		if job.StartedAt == nil || job.StartedAt.After(cutoff) {
			continue
		}
		job.Status = model.JobStatusPending
		job.StartedAt = nil
		job.WorkerID = nil
		job.LastError = strPtr(stuckErrorMsg)
		job.UpdatedAt = now
		reset = append(reset, cloneJob(job))
	}
	if len(reset) == 0 {
		return nil, nil
	}
	if err := s.persist(); err != nil {
		return nil, err
	}
	sort.Slice(reset, func(i, j int) bool { return reset[i].ID < reset[j].ID })
	return reset, nil
}

// GetByID retrieves a job by its ID.
func (s *Store) GetByID(_ context.Context, id string) (*model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, data.ErrJobNotFound
	}
	return cloneJob(job), nil
}

// List returns jobs matching the filter, newest first.
func (s *Store) List(_ context.Context, filter model.JobFilter) ([]*model.Job, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*model.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		if filter.Type != "" && job.Type != filter.Type {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		matched = append(matched, job)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*model.Job, len(matched))
	for i, job := range matched {
		out[i] = cloneJob(job)
	}
	return out, nil
}

// Stats returns aggregate job counts by status and type.
func (s *Store) Stats(_ context.Context) (*model.JobStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := &model.JobStats{ByType: make(map[model.JobType]int)}
	for _, job := range s.jobs {
		stats.Total++
		stats.ByType[job.Type]++
		switch job.Status {
		case model.JobStatusPending:
			stats.Pending++
		case model.JobStatusScheduled:
			stats.Scheduled++
		case model.JobStatusRunning:
			stats.Running++
		case model.JobStatusCompleted:
			stats.Completed++
		case model.JobStatusFailed:
			stats.Failed++
		case model.JobStatusCancelled:
			stats.Cancelled++
		}
	}
	return stats, nil
}

// Backlog counts pending and scheduled jobs, overall and per type.
func (s *Store) Backlog(_ context.Context) (*model.Backlog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	backlog := &model.Backlog{ByType: make(map[model.JobType]int)}
	for _, job := range s.jobs {
		if job.Status != model.JobStatusPending && job.Status != model.JobStatusScheduled {
			continue
		}
		backlog.Total++
		backlog.ByType[job.Type]++
	}
	return backlog, nil
}

// CleanupTerminal deletes terminal jobs finished more than maxAge ago, up to
// batch per call.
func (s *Store) CleanupTerminal(_ context.Context, maxAge time.Duration, batch int) (int64, error) {
	if batch <= 0 {
		batch = 100
	}
	cutoff := s.timeProvider.Now().UTC().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, job := range s.jobs {
		if deleted >= int64(batch) {
			break
		}
		if !job.Status.Terminal() {
			continue
		}
		finished := job.UpdatedAt
		if job.CompletedAt != nil {
			finished = *job.CompletedAt
		}
		if finished.After(cutoff) {
			continue
		}
		delete(s.jobs, id)
		deleted++
	}
	if deleted == 0 {
		return 0, nil
	}
	if err := s.persist(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

func cloneJob(job *model.Job) *model.Job {
	out := *job
	out.Payload = cloneJSON(job.Payload)
	out.Result = cloneJSON(job.Result)
	out.StartedAt = cloneTimePtr(job.StartedAt)
	out.CompletedAt = cloneTimePtr(job.CompletedAt)
	out.LastError = cloneStrPtr(job.LastError)
	out.WorkerID = cloneStrPtr(job.WorkerID)
	return &out
}

func cloneJSON(raw []byte) json.RawMessage {
	if raw == nil {
		return nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneStrPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }
