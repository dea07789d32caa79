// Package model defines the core data types and structures used throughout the leadforge job system.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// JobType represents the pipeline stage a job belongs to.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobType string

// JobStatus represents the current status of a job.
type JobStatus string

const (
	// JobTypeDiscover represents a listing-site discovery job.
	JobTypeDiscover JobType = "discover"
	// JobTypeCapture represents a website capture and scoring job.
	JobTypeCapture JobType = "capture"
	// JobTypeGenerate represents a preview-site generation job.
	JobTypeGenerate JobType = "generate"
	// JobTypeDeploy represents a preview-site deployment job.
	JobTypeDeploy JobType = "deploy"
	// JobTypeEmail represents an outreach email delivery job.
	JobTypeEmail JobType = "email"
	// JobTypeFollowup represents a campaign followup email job.
	JobTypeFollowup JobType = "followup"
	// JobTypeScore represents a website scoring job.
	JobTypeScore JobType = "score"

	// JobStatusPending indicates a job is eligible for execution now.
	JobStatusPending JobStatus = "pending"
	// JobStatusScheduled indicates a job becomes eligible once ScheduledFor passes.
	JobStatusScheduled JobStatus = "scheduled"
	// JobStatusRunning indicates a job is currently being processed.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates a job has finished successfully.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates a job has exhausted retries or hit a terminal error.
	JobStatusFailed JobStatus = "failed"
	// JobStatusCancelled indicates a job was cancelled by an operator.
	JobStatusCancelled JobStatus = "cancelled"
)

// ErrNoJobsAvailable is returned when no jobs are eligible for claiming.
var ErrNoJobsAvailable = errors.New("no jobs available")

// JobTypes returns all valid job types in pipeline order.
func JobTypes() []JobType {
	return []JobType{
		JobTypeDiscover,
		JobTypeCapture,
		JobTypeGenerate,
		JobTypeDeploy,
		JobTypeEmail,
		JobTypeFollowup,
		JobTypeScore,
	}
}

// UnmarshalText implements encoding.TextUnmarshaler for JobType to allow env parsing.
func (t *JobType) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	jt := JobType(v)
	if jt.Valid() {
		*t = jt
		return nil
	}
	return fmt.Errorf("invalid JobType: %q", v)
}

// Valid returns true if the JobType is valid.
func (t JobType) Valid() bool {
	switch t {
	case JobTypeDiscover, JobTypeCapture, JobTypeGenerate, JobTypeDeploy,
		JobTypeEmail, JobTypeFollowup, JobTypeScore:
		return true
	default:
		return false
	}
}

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusPending, JobStatusScheduled, JobStatusRunning,
		JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status can never transition again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job represents one unit of asynchronous work with all its metadata and lifecycle state.
type Job struct {
	ID           string          `json:"id"                      db:"id"`
	Type         JobType         `json:"type"                    db:"type"`
	Status       JobStatus       `json:"status"                  db:"status"`
	Priority     int             `json:"priority"                db:"priority"`
	Payload      json.RawMessage `json:"payload"                 db:"payload"`
	Attempts     int             `json:"attempts"                db:"attempts"`
	MaxAttempts  int             `json:"max_attempts"            db:"max_attempts"`
	ScheduledFor time.Time       `json:"scheduled_for"           db:"scheduled_for"`
	StartedAt    *time.Time      `json:"started_at,omitempty"    db:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"  db:"completed_at"`
	LastError    *string         `json:"last_error,omitempty"    db:"last_error"`
	Result       json.RawMessage `json:"result,omitempty"        db:"result"`
	WorkerID     *string         `json:"worker_id,omitempty"     db:"worker_id"`
	CreatedAt    time.Time       `json:"created_at"              db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"              db:"updated_at"`
}

// Eligible reports whether the job may be claimed at the given time.
func (j *Job) Eligible(now time.Time) bool {
	switch j.Status {
	case JobStatusPending:
		return true
	case JobStatusScheduled:
		return !j.ScheduledFor.After(now)
	default:
		return false
	}
}

// EnqueueRequest represents a request to create a new job.
type EnqueueRequest struct {
	Type         JobType         `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	Priority     int             `json:"priority,omitempty"`
	ScheduledFor *time.Time      `json:"scheduled_for,omitempty"`
	MaxAttempts  int             `json:"max_attempts,omitempty"`
}

// Validate validates the EnqueueRequest fields.
func (r *EnqueueRequest) Validate() error {
	if !r.Type.Valid() {
		return errors.New("invalid job type")
	}
	if len(r.Payload) == 0 {
		return errors.New("payload is required")
	}
	if r.Priority < 0 || r.Priority > 100 {
		return errors.New("priority must be between 0 and 100")
	}
	if r.MaxAttempts < 0 {
		return errors.New("max attempts must be >= 0")
	}
	return nil
}

// JobStats represents aggregate counts of jobs grouped by status and type.
type JobStats struct {
	Total     int             `json:"total"`
	Pending   int             `json:"pending"`
	Scheduled int             `json:"scheduled"`
	Running   int             `json:"running"`
	Completed int             `json:"completed"`
	Failed    int             `json:"failed"`
	Cancelled int             `json:"cancelled"`
	ByType    map[JobType]int `json:"by_type"`
}

// Backlog counts jobs eligible but not yet executed, overall and per type.
type Backlog struct {
	Total  int             `json:"total"`
	ByType map[JobType]int `json:"by_type"`
}

// JobFilter narrows List queries. Zero values mean "any".
type JobFilter struct {
	Type   JobType
	Status JobStatus
	Limit  int
}
