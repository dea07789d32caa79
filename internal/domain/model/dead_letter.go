package model

import (
	"encoding/json"
	"time"
)

// DeadLetterItem is the durable quarantine record for a job that reached terminal failure.
// The row is history: an operator retry creates a brand-new job and leaves the item in place.
type DeadLetterItem struct {
	ID              string          `json:"id"                         db:"id"`
	JobID           string          `json:"job_id"                     db:"job_id"`
	JobType         JobType         `json:"job_type"                   db:"job_type"`
	Payload         json.RawMessage `json:"payload"                    db:"payload"`
	LastError       string          `json:"last_error"                 db:"last_error"`
	Attempts        int             `json:"attempts"                   db:"attempts"`
	FailedAt        time.Time       `json:"failed_at"                  db:"failed_at"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"      db:"resolved_at"`
	ResolutionNotes *string         `json:"resolution_notes,omitempty" db:"resolution_notes"`
}

// Resolved reports whether an operator has closed out this item.
func (d *DeadLetterItem) Resolved() bool {
	return d.ResolvedAt != nil
}

// DeadLetterFilter narrows dead-letter listings.
type DeadLetterFilter struct {
	UnresolvedOnly bool
	JobType        JobType
	Limit          int
}
