package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/leadforge/leadforge/internal/domain/model"
)

const deadLetterColumns = `
  id, job_id, job_type, payload, last_error, attempts, failed_at, resolved_at, resolution_notes
`

// AddDeadLetter persists a dead-letter item. A missing ID or FailedAt is filled in.
func (s *PostgresStore) AddDeadLetter(ctx context.Context, item *model.DeadLetterItem) error {
	if item == nil {
		return errors.New("dead letter item is required")
	}

	if item.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate dead letter id: %w", err)
		}
		item.ID = id.String()
	}
	if item.FailedAt.IsZero() {
		item.FailedAt = s.timeProvider.Now().UTC()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO dead_letters(id, job_id, job_type, payload, last_error, attempts, failed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, item.ID, item.JobID, item.JobType, []byte(item.Payload), item.LastError, item.Attempts, item.FailedAt.UTC())
	if IsUniqueViolation(err) {
		return fmt.Errorf("insert dead letter %s: %w", item.ID, ErrDeadLetterExists)
	}
	if err != nil {
		return fmt.Errorf("insert dead letter: %w", err)
	}
	return nil
}

// GetDeadLetter retrieves a dead-letter item by ID.
func (s *PostgresStore) GetDeadLetter(ctx context.Context, id string) (*model.DeadLetterItem, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+deadLetterColumns+` FROM dead_letters WHERE id = $1`, id)
	item, err := scanDeadLetter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeadLetterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dead letter: %w", err)
	}
	return item, nil
}

// ListDeadLetters returns dead-letter items matching the filter, newest first.
func (s *PostgresStore) ListDeadLetters(
	ctx context.Context,
	filter model.DeadLetterFilter,
) ([]*model.DeadLetterItem, error) {
	query := `SELECT ` + deadLetterColumns + ` FROM dead_letters WHERE 1=1`
	args := []any{}

	if filter.UnresolvedOnly {
		query += " AND resolved_at IS NULL"
	}
	if filter.JobType != "" {
		args = append(args, filter.JobType)
		query += fmt.Sprintf(" AND job_type = $%d", len(args))
	}

	query += " ORDER BY failed_at DESC"
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var items []*model.DeadLetterItem
	for rows.Next() {
		item, serr := scanDeadLetter(rows)
		if serr != nil {
			return nil, serr
		}
		items = append(items, item)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, rowsErr
	}
	return items, nil
}

// ResolveDeadLetter stamps resolution on an unresolved item. Returns false
// when the item was already resolved (the operation is idempotent).
func (s *PostgresStore) ResolveDeadLetter(ctx context.Context, id, notes string) (bool, error) {
	now := s.timeProvider.Now().UTC()

	res, err := s.DB.ExecContext(ctx, `
		UPDATE dead_letters
		SET resolved_at = $2, resolution_notes = $3
		WHERE id = $1 AND resolved_at IS NULL
	`, id, now, notes)
	if err != nil {
		return false, fmt.Errorf("resolve dead letter: %w", err)
	}
	return oneRowAffected(res)
}

// CountUnresolvedDeadLetters returns the number of dead-letter items awaiting operator action.
func (s *PostgresStore) CountUnresolvedDeadLetters(ctx context.Context) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `SELECT count(*) FROM dead_letters WHERE resolved_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unresolved dead letters: %w", err)
	}
	return n, nil
}

type deadLetterScanner interface {
	Scan(dest ...any) error
}

func scanDeadLetter(scanner deadLetterScanner) (*model.DeadLetterItem, error) {
	item := &model.DeadLetterItem{}
	var payload []byte
	var resolvedAt sql.NullTime
	var notes sql.NullString

	if err := scanner.Scan(
		&item.ID,
		&item.JobID,
		&item.JobType,
		&payload,
		&item.LastError,
		&item.Attempts,
		&item.FailedAt,
		&resolvedAt,
		&notes,
	); err != nil {
		return nil, err
	}

	item.Payload = cloneJSON(payload)
	item.ResolvedAt = cloneNullableTime(resolvedAt)
	item.ResolutionNotes = cloneNullableString(notes)
	return item, nil
}
