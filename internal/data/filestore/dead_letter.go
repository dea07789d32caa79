package filestore

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/leadforge/leadforge/internal/core"
	"github.com/leadforge/leadforge/internal/data"
	"github.com/leadforge/leadforge/internal/domain/model"
)

// AddDeadLetter records a permanently failed job, assigning an ID and FailedAt
// when the caller left them empty.
func (s *Store) AddDeadLetter(_ context.Context, item *model.DeadLetterItem) error {
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

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.deadLetters[item.ID]; exists {
		return fmt.Errorf("insert dead letter %s: %w", item.ID, data.ErrDeadLetterExists)
	}
	s.deadLetters[item.ID] = cloneDeadLetter(item)
	if err := s.persist(); err != nil {
		delete(s.deadLetters, item.ID)
		return err
	}
	return nil
}

// GetDeadLetter retrieves a dead letter item by ID.
func (s *Store) GetDeadLetter(_ context.Context, id string) (*model.DeadLetterItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.deadLetters[id]
	if !ok {
		return nil, data.ErrDeadLetterNotFound
	}
	return cloneDeadLetter(item), nil
}

// ListDeadLetters returns dead letter items matching the filter, newest first.
func (s *Store) ListDeadLetters(_ context.Context, filter model.DeadLetterFilter) ([]*model.DeadLetterItem, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	matched := make([]*model.DeadLetterItem, 0, len(s.deadLetters))
	for _, item := range s.deadLetters {
		if filter.UnresolvedOnly && item.Resolved() {
			continue
		}
		if filter.JobType != "" && item.JobType != filter.JobType {
			continue
		}
		matched = append(matched, item)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].FailedAt.After(matched[j].FailedAt)
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}

	out := make([]*model.DeadLetterItem, len(matched))
	for i, item := range matched {
		out[i] = cloneDeadLetter(item)
	}
	return out, nil
}

// ResolveDeadLetter stamps ResolvedAt and notes. Returns false when the item
// is missing or already resolved.
func (s *Store) ResolveDeadLetter(_ context.Context, id, notes string) (bool, error) {
	now := s.timeProvider.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.deadLetters[id]
	if !ok || item.Resolved() {
		return false, nil
	}
	item.ResolvedAt = timePtr(now)
	item.ResolutionNotes = strPtr(notes)
	if err := s.persist(); err != nil {
		return false, err
	}
	return true, nil
}

// CountUnresolvedDeadLetters returns the number of unresolved dead letters.
func (s *Store) CountUnresolvedDeadLetters(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, item := range s.deadLetters {
		if !item.Resolved() {
			n++
		}
	}
	return n, nil
}

// AppendJobEvent records an informational lifecycle event.
func (s *Store) AppendJobEvent(_ context.Context, event *core.JobEvent) error {
	e := *event
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.timeProvider.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.persist()
}

func cloneDeadLetter(item *model.DeadLetterItem) *model.DeadLetterItem {
	out := *item
	out.Payload = cloneJSON(item.Payload)
	out.ResolvedAt = cloneTimePtr(item.ResolvedAt)
	out.ResolutionNotes = cloneStrPtr(item.ResolutionNotes)
	return &out
}
