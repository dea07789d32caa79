package data

import (
	"context"
	"errors"
	"fmt"

	"github.com/leadforge/leadforge/internal/core"
)

// AppendJobEvent records one row in the append-only job history log.
// The log is informational; failures here must not fail the job itself,
// so callers log and continue.
func (s *PostgresStore) AppendJobEvent(ctx context.Context, event *core.JobEvent) error {
	if event == nil {
		return errors.New("job event is required")
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.timeProvider.Now()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO job_events(job_id, event, detail, occurred_at)
		VALUES ($1,$2,$3,$4)
	`, event.JobID, event.Event, event.Detail, occurredAt.UTC())
	if IsForeignKeyViolation(err) {
		// The job was pruned between settle and the event write.
		return fmt.Errorf("append job event for %s: %w", event.JobID, ErrJobNotFound)
	}
	if err != nil {
		return fmt.Errorf("append job event: %w", err)
	}
	return nil
}
