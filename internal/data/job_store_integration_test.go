package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadforge/leadforge/internal/core"
	"github.com/leadforge/leadforge/internal/domain/model"
	"github.com/leadforge/leadforge/internal/migrate"
)

// openTestDB connects to the database named by TEST_DATABASE_URL and applies
// migrations, skipping the test when the variable is unset.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	db, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.Exec(`TRUNCATE jobs, dead_letters, job_events`)
		_ = db.Close()
	})

	require.NoError(t, migrate.Run(context.Background(), db))
	_, err = db.Exec(`TRUNCATE jobs, dead_letters, job_events`)
	require.NoError(t, err)
	return db
}

func newTestStore(t *testing.T) *PostgresStore {
	t.Helper()
	return NewPostgresStore(openTestDB(t), StoreConfig{})
}

func enqueueTestJob(t *testing.T, store *PostgresStore, jobType model.JobType, priority int) *model.Job {
	t.Helper()
	job, err := store.Enqueue(context.Background(), &model.EnqueueRequest{
		Type:     jobType,
		Payload:  json.RawMessage(`{"url":"https://example.com"}`),
		Priority: priority,
	})
	require.NoError(t, err)
	return job
}

func TestPostgresEnqueueAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job := enqueueTestJob(t, store, model.JobTypeCapture, 10)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Equal(t, 0, job.Attempts)
	assert.Equal(t, 3, job.MaxAttempts)

	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.JSONEq(t, `{"url":"https://example.com"}`, string(got.Payload))

	_, err = store.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestPostgresClaimSingleWinner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job := enqueueTestJob(t, store, model.JobTypeDiscover, 0)

	const racers = 8
	var wg sync.WaitGroup
	winners := make(chan *model.Job, racers)
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := store.Claim(ctx, fmt.Sprintf("worker-%d", i))
			if err == nil && claimed != nil {
				winners <- claimed
			}
		}()
	}
	wg.Wait()
	close(winners)

	var claimed []*model.Job
	for j := range winners {
		claimed = append(claimed, j)
	}
	require.Len(t, claimed, 1, "exactly one racer must win the claim")
	assert.Equal(t, job.ID, claimed[0].ID)
	assert.Equal(t, model.JobStatusRunning, claimed[0].Status)
	assert.Equal(t, 1, claimed[0].Attempts)
}

func TestPostgresClaimPriorityOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	low := enqueueTestJob(t, store, model.JobTypeCapture, 1)
	high := enqueueTestJob(t, store, model.JobTypeEmail, 50)

	first, err := store.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, high.ID, first.ID)

	second, err := store.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, low.ID, second.ID)

	_, err = store.Claim(ctx, "w1")
	assert.ErrorIs(t, err, model.ErrNoJobsAvailable)
}

func TestPostgresScheduledNotEligibleUntilDue(t *testing.T) {
	tp := NewFixedTimeProvider(time.Now().UTC())
	store := NewPostgresStore(openTestDB(t), StoreConfig{TimeProvider: tp})
	ctx := context.Background()

	future := tp.Now().Add(time.Hour)
	job, err := store.Enqueue(ctx, &model.EnqueueRequest{
		Type:         model.JobTypeFollowup,
		Payload:      json.RawMessage(`{}`),
		ScheduledFor: &future,
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusScheduled, job.Status)

	_, err = store.Claim(ctx, "w1")
	assert.ErrorIs(t, err, model.ErrNoJobsAvailable)

	tp.AddTime(2 * time.Hour)
	claimed, err := store.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, job.ID, claimed.ID)
}

func TestPostgresRetryCycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job := enqueueTestJob(t, store, model.JobTypeCapture, 0)

	claimed, err := store.Claim(ctx, "w1")
	require.NoError(t, err)

	ok, err := store.ScheduleRetry(ctx, core.ScheduleRetryParams{
		ID:      claimed.ID,
		ErrMsg:  "ETIMEDOUT",
		RetryAt: time.Now().Add(-time.Second),
	})
	require.NoError(t, err)
	assert.True(t, ok)

	again, err := store.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, job.ID, again.ID)
	assert.Equal(t, 2, again.Attempts, "attempts increment once per claim")

	ok, err = store.Complete(ctx, again.ID, []byte(`{"score":42}`))
	require.NoError(t, err)
	assert.True(t, ok)

	final, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, final.Status)
	assert.Nil(t, final.LastError)
	assert.NotNil(t, final.CompletedAt)
}

func TestPostgresResetStuck(t *testing.T) {
	tp := NewFixedTimeProvider(time.Now().UTC())
	store := NewPostgresStore(openTestDB(t), StoreConfig{TimeProvider: tp})
	ctx := context.Background()

	_, err := store.Enqueue(ctx, &model.EnqueueRequest{
		Type:    model.JobTypeDeploy,
		Payload: json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	claimed, err := store.Claim(ctx, "w1")
	require.NoError(t, err)

	// Not yet past the threshold.
	reset, err := store.ResetStuck(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, reset)

	tp.AddTime(time.Hour)
	reset, err = store.ResetStuck(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, reset, 1)
	assert.Equal(t, claimed.ID, reset[0].ID)
	assert.Equal(t, model.JobStatusPending, reset[0].Status)
	assert.Equal(t, 1, reset[0].Attempts, "stuck recovery keeps the consumed attempt")
}

func TestPostgresDeadLetterLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item := &model.DeadLetterItem{
		JobID:     enqueueTestJob(t, store, model.JobTypeEmail, 0).ID,
		JobType:   model.JobTypeEmail,
		Payload:   json.RawMessage(`{"to":"owner@example.com"}`),
		LastError: "Invalid business_name",
		Attempts:  1,
	}
	require.NoError(t, store.AddDeadLetter(ctx, item))
	require.NotEmpty(t, item.ID)

	n, err := store.CountUnresolvedDeadLetters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := store.ResolveDeadLetter(ctx, item.ID, "bad scrape, source removed")
	require.NoError(t, err)
	assert.True(t, ok)

	// Resolving twice is a no-op.
	ok, err = store.ResolveDeadLetter(ctx, item.ID, "again")
	require.NoError(t, err)
	assert.False(t, ok)

	items, err := store.ListDeadLetters(ctx, model.DeadLetterFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].Resolved())

	unresolved, err := store.ListDeadLetters(ctx, model.DeadLetterFilter{UnresolvedOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unresolved)
}

// Constraint violations come back as domain sentinels, not raw driver errors.
func TestPostgresConstraintViolationsClassified(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	job := enqueueTestJob(t, store, model.JobTypeEmail, 0)
	item := &model.DeadLetterItem{
		JobID:     job.ID,
		JobType:   model.JobTypeEmail,
		Payload:   json.RawMessage(`{}`),
		LastError: "Invalid recipient",
		Attempts:  1,
	}
	require.NoError(t, store.AddDeadLetter(ctx, item))

	dup := *item
	err := store.AddDeadLetter(ctx, &dup)
	require.ErrorIs(t, err, ErrDeadLetterExists)

	err = store.AppendJobEvent(ctx, &core.JobEvent{
		JobID: "00000000-0000-7000-8000-000000000001",
		Event: "started",
	})
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestPostgresStatsAndBacklog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	enqueueTestJob(t, store, model.JobTypeCapture, 0)
	enqueueTestJob(t, store, model.JobTypeCapture, 0)
	enqueueTestJob(t, store, model.JobTypeEmail, 0)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Pending)
	assert.Equal(t, 2, stats.ByType[model.JobTypeCapture])

	backlog, err := store.Backlog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, backlog.Total)
	assert.Equal(t, 1, backlog.ByType[model.JobTypeEmail])
}

func TestPostgresCleanupTerminal(t *testing.T) {
	tp := NewFixedTimeProvider(time.Now().UTC())
	store := NewPostgresStore(openTestDB(t), StoreConfig{TimeProvider: tp})
	ctx := context.Background()

	_, err := store.Enqueue(ctx, &model.EnqueueRequest{
		Type:    model.JobTypeScore,
		Payload: json.RawMessage(`{}`),
	})
	require.NoError(t, err)

	claimed, err := store.Claim(ctx, "w1")
	require.NoError(t, err)
	_, err = store.Complete(ctx, claimed.ID, nil)
	require.NoError(t, err)

	// Too young to reap.
	n, err := store.CleanupTerminal(ctx, time.Hour, 100)
	require.NoError(t, err)
	assert.Zero(t, n)

	tp.AddTime(48 * time.Hour)
	n, err = store.CleanupTerminal(ctx, time.Hour, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
