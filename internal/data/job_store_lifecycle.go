package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/leadforge/leadforge/internal/core"
	"github.com/leadforge/leadforge/internal/data/pgxutil"
	"github.com/leadforge/leadforge/internal/domain/model"
)

// SQL used by Claim to atomically claim the next eligible job. The CTE with
// FOR UPDATE SKIP LOCKED guarantees two workers racing for the same row never
// both win: the loser skips the locked row and sees the next candidate.
// Attempts increments here, at claim time, so every execution (including one
// cut short by a crash) consumes exactly one attempt.
const claimNextSQL = `
  WITH cte AS (
    SELECT id FROM jobs
    WHERE (status = 'pending' OR (status = 'scheduled' AND scheduled_for <= $1))
    ORDER BY priority DESC, created_at ASC
    LIMIT 1
    FOR UPDATE SKIP LOCKED
  )
  UPDATE jobs j
  SET
    status = 'running',
    started_at = $1,
    attempts = j.attempts + 1,
    worker_id = $2,
    updated_at = $1
  FROM cte
  WHERE j.id = cte.id
  RETURNING ` + jobColumnsQualified

const jobColumnsQualified = `
  j.id, j.type, j.status, j.priority, j.payload, j.attempts, j.max_attempts,
  j.scheduled_for, j.started_at, j.completed_at, j.last_error, j.result,
  j.worker_id, j.created_at, j.updated_at`

// Claim atomically claims the highest-priority eligible job for workerID.
func (s *PostgresStore) Claim(ctx context.Context, workerID string) (*model.Job, error) {
	var job *model.Job
	err := pgxutil.WithPgxTx(ctx, s.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{Isolation: sql.LevelReadCommitted},
		Fn: func(tx pgx.Tx) error {
			now := s.timeProvider.Now().UTC()
			rows, qerr := tx.Query(ctx, claimNextSQL, now, workerID)
			if qerr != nil {
				return fmt.Errorf("claim job: %w", qerr)
			}
			defer rows.Close()

			j, cerr := collectJobFromRows(rows)
			if errors.Is(cerr, pgx.ErrNoRows) {
				return model.ErrNoJobsAvailable
			}
			if cerr != nil {
				return fmt.Errorf("claim job: %w", cerr)
			}
			job = j
			return nil
		},
	})
	if err != nil {
		if errors.Is(err, model.ErrNoJobsAvailable) {
			return nil, model.ErrNoJobsAvailable
		}
		return nil, err
	}
	return job, nil
}

// Complete marks a running job as completed successfully.
func (s *PostgresStore) Complete(ctx context.Context, id string, result []byte) (bool, error) {
	now := s.timeProvider.Now().UTC()

	if len(result) == 0 {
		result = nil
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'completed',
		    completed_at = $2,
		    result = $3,
		    worker_id = NULL,
		    last_error = NULL,
		    updated_at = $2
		WHERE id = $1 AND status = 'running'
	`, id, now, result)
	if err != nil {
		return false, fmt.Errorf("complete job: %w", err)
	}
	return oneRowAffected(res)
}

// ScheduleRetry moves a running job back to scheduled for a later attempt.
func (s *PostgresStore) ScheduleRetry(ctx context.Context, params core.ScheduleRetryParams) (bool, error) {
	now := s.timeProvider.Now().UTC()

	res, err := s.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'scheduled',
		    scheduled_for = $2,
		    last_error = $3,
		    worker_id = NULL,
		    started_at = NULL,
		    updated_at = $4
		WHERE id = $1 AND status = 'running'
	`, params.ID, params.RetryAt.UTC(), params.ErrMsg, now)
	if err != nil {
		return false, fmt.Errorf("schedule retry: %w", err)
	}
	return oneRowAffected(res)
}

// MarkFailed transitions a running job to terminal failure.
func (s *PostgresStore) MarkFailed(ctx context.Context, id, errMsg string) (bool, error) {
	now := s.timeProvider.Now().UTC()

	res, err := s.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'failed',
		    completed_at = $2,
		    last_error = $3,
		    worker_id = NULL,
		    updated_at = $2
		WHERE id = $1 AND status = 'running'
	`, id, now, errMsg)
	if err != nil {
		return false, fmt.Errorf("mark job failed: %w", err)
	}
	return oneRowAffected(res)
}

// Cancel transitions a pending, scheduled, or running job to cancelled.
func (s *PostgresStore) Cancel(ctx context.Context, id string) (bool, error) {
	now := s.timeProvider.Now().UTC()

	res, err := s.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = 'cancelled',
		    completed_at = $2,
		    worker_id = NULL,
		    updated_at = $2
		WHERE id = $1 AND status IN ('pending', 'scheduled', 'running')
	`, id, now)
	if err != nil {
		return false, fmt.Errorf("cancel job: %w", err)
	}
	return oneRowAffected(res)
}

// ResetStuck requeues running jobs whose started_at is older than the
// threshold. The crashed claim already consumed an attempt, so attempts are
// not touched here.
func (s *PostgresStore) ResetStuck(ctx context.Context, olderThan time.Duration) ([]*model.Job, error) {
	now := s.timeProvider.Now().UTC()
	cutoff := now.Add(-olderThan)

	var jobs []*model.Job
	err := pgxutil.WithPgxTx(ctx, s.DB, pgxutil.TxConfig{
		Fn: func(tx pgx.Tx) error {
			rows, qerr := tx.Query(ctx, `
				UPDATE jobs j
				SET status = 'pending',
				    last_error = 'reset after stuck execution (worker presumed crashed)',
				    worker_id = NULL,
				    started_at = NULL,
				    updated_at = $1
				WHERE j.status = 'running' AND j.started_at < $2
				RETURNING `+jobColumnsQualified, now, cutoff)
			if qerr != nil {
				return fmt.Errorf("reset stuck jobs: %w", qerr)
			}
			defer rows.Close()
			for rows.Next() {
				job, serr := scanJobFromRow(rows)
				if serr != nil {
					return serr
				}
				jobs = append(jobs, job)
			}
			return rows.Err()
		},
	})
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

// Stats returns aggregate job counts by status and type.
func (s *PostgresStore) Stats(ctx context.Context) (*model.JobStats, error) {
	stats := &model.JobStats{ByType: make(map[model.JobType]int)}

	err := s.DB.QueryRowContext(ctx, `
	  SELECT
	    count(*),
	    count(*) FILTER (WHERE status = 'pending'),
	    count(*) FILTER (WHERE status = 'scheduled'),
	    count(*) FILTER (WHERE status = 'running'),
	    count(*) FILTER (WHERE status = 'completed'),
	    count(*) FILTER (WHERE status = 'failed'),
	    count(*) FILTER (WHERE status = 'cancelled')
	  FROM jobs
	`).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Scheduled,
		&stats.Running,
		&stats.Completed,
		&stats.Failed,
		&stats.Cancelled,
	)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT type, count(*) FROM jobs GROUP BY type`)
	if err != nil {
		return nil, fmt.Errorf("job stats by type: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var jt model.JobType
		var n int
		if scanErr := rows.Scan(&jt, &n); scanErr != nil {
			return nil, fmt.Errorf("scan job stats: %w", scanErr)
		}
		stats.ByType[jt] = n
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}

	return stats, nil
}

// Backlog counts eligible-but-unexecuted jobs overall and per type.
func (s *PostgresStore) Backlog(ctx context.Context) (*model.Backlog, error) {
	backlog := &model.Backlog{ByType: make(map[model.JobType]int)}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT type, count(*)
		FROM jobs
		WHERE status IN ('pending', 'scheduled')
		GROUP BY type
	`)
	if err != nil {
		return nil, fmt.Errorf("backlog counts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		var jt model.JobType
		var n int
		if scanErr := rows.Scan(&jt, &n); scanErr != nil {
			return nil, fmt.Errorf("scan backlog: %w", scanErr)
		}
		backlog.ByType[jt] = n
		backlog.Total += n
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}

	return backlog, nil
}

// Advisory lock namespace for cleanup to avoid concurrent sweeps colliding.
const (
	advisoryLockCleanupMajor = 2000
	advisoryLockCleanupMinor = 1
)

// CleanupTerminal deletes terminal jobs older than maxAge, up to batch rows per call.
func (s *PostgresStore) CleanupTerminal(ctx context.Context, maxAge time.Duration, batch int) (int64, error) {
	if batch <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}

	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, s.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)",
				advisoryLockCleanupMajor, advisoryLockCleanupMinor).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				rowsAffected = 0
				return nil
			}

			cutoff := s.timeProvider.Now().Add(-maxAge).UTC()
			res, err := tx.ExecContext(ctx, `
				DELETE FROM jobs
				WHERE id IN (
					SELECT id FROM jobs
					WHERE status IN ('completed', 'failed', 'cancelled')
					  AND COALESCE(completed_at, updated_at) < $1
					ORDER BY COALESCE(completed_at, updated_at)
					LIMIT $2
				)
			`, cutoff, batch)
			if err != nil {
				return fmt.Errorf("cleanup terminal jobs: %w", err)
			}
			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

func oneRowAffected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}
