package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadforge/leadforge/internal/core"
	"github.com/leadforge/leadforge/internal/data"
	"github.com/leadforge/leadforge/internal/domain/model"
)

func newStore(t *testing.T, tp data.TimeProvider) *Store {
	t.Helper()
	store, err := Open(Config{
		Path:         filepath.Join(t.TempDir(), "jobs.json"),
		TimeProvider: tp,
	})
	require.NoError(t, err)
	return store
}

func enqueue(t *testing.T, store *Store, jobType model.JobType, priority int) *model.Job {
	t.Helper()
	job, err := store.Enqueue(context.Background(), &model.EnqueueRequest{
		Type:     jobType,
		Payload:  json.RawMessage(`{"business_id":"b-1"}`),
		Priority: priority,
	})
	require.NoError(t, err)
	return job
}

func TestEnqueueDefaults(t *testing.T) {
	store := newStore(t, nil)

	job := enqueue(t, store, model.JobTypeCapture, 10)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, model.JobStatusPending, job.Status)
	assert.Equal(t, 0, job.Attempts)
	assert.Equal(t, 3, job.MaxAttempts)

	_, err := store.Enqueue(context.Background(), &model.EnqueueRequest{
		Type: model.JobType("bogus"), Payload: json.RawMessage(`{}`),
	})
	assert.Error(t, err)
}

func TestClaimSingleWinner(t *testing.T) {
	store := newStore(t, nil)
	job := enqueue(t, store, model.JobTypeDiscover, 0)

	const racers = 16
	var wg sync.WaitGroup
	winners := make(chan *model.Job, racers)
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			claimed, err := store.Claim(context.Background(), fmt.Sprintf("worker-%d", i))
			if err == nil {
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
	require.Len(t, claimed, 1)
	assert.Equal(t, job.ID, claimed[0].ID)
	assert.Equal(t, 1, claimed[0].Attempts)
	require.NotNil(t, claimed[0].WorkerID)
	assert.Contains(t, *claimed[0].WorkerID, "worker-")
}

func TestClaimOrdering(t *testing.T) {
	tp := data.NewFixedTimeProvider(time.Now().UTC())
	store := newStore(t, tp)

	older := enqueue(t, store, model.JobTypeCapture, 5)
	tp.AddTime(time.Second)
	_ = enqueue(t, store, model.JobTypeCapture, 5)
	high := enqueue(t, store, model.JobTypeEmail, 90)

	first, err := store.Claim(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, high.ID, first.ID, "priority wins")

	second, err := store.Claim(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, older.ID, second.ID, "FIFO within equal priority")
}

func TestScheduledEligibility(t *testing.T) {
	tp := data.NewFixedTimeProvider(time.Now().UTC())
	store := newStore(t, tp)

	due := tp.Now().Add(10 * time.Minute)
	job, err := store.Enqueue(context.Background(), &model.EnqueueRequest{
		Type:         model.JobTypeFollowup,
		Payload:      json.RawMessage(`{}`),
		ScheduledFor: &due,
	})
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusScheduled, job.Status)

	_, err = store.Claim(context.Background(), "w1")
	assert.ErrorIs(t, err, model.ErrNoJobsAvailable)

	tp.AddTime(11 * time.Minute)
	claimed, err := store.Claim(context.Background(), "w1")
	require.NoError(t, err)
	assert.Equal(t, job.ID, claimed.ID)
}

func TestLifecycleTransitions(t *testing.T) {
	store := newStore(t, nil)
	ctx := context.Background()

	job := enqueue(t, store, model.JobTypeGenerate, 0)

	// Complete requires running.
	ok, err := store.Complete(ctx, job.ID, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	claimed, err := store.Claim(ctx, "w1")
	require.NoError(t, err)

	ok, err = store.ScheduleRetry(ctx, core.ScheduleRetryParams{
		ID: claimed.ID, ErrMsg: "ECONNREFUSED", RetryAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	assert.True(t, ok)

	again, err := store.Claim(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 2, again.Attempts)

	ok, err = store.Complete(ctx, again.ID, json.RawMessage(`{"deployed":true}`))
	require.NoError(t, err)
	assert.True(t, ok)

	final, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, final.Status)
	assert.Nil(t, final.LastError)
	assert.JSONEq(t, `{"deployed":true}`, string(final.Result))
}

func TestCancel(t *testing.T) {
	store := newStore(t, nil)
	ctx := context.Background()

	job := enqueue(t, store, model.JobTypeEmail, 0)
	ok, err := store.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	// Terminal jobs cannot be cancelled again.
	ok, err = store.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCancelled, got.Status)
}

func TestResetStuck(t *testing.T) {
	tp := data.NewFixedTimeProvider(time.Now().UTC())
	store := newStore(t, tp)
	ctx := context.Background()

	enqueue(t, store, model.JobTypeDeploy, 0)
	claimed, err := store.Claim(ctx, "w1")
	require.NoError(t, err)

	reset, err := store.ResetStuck(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, reset)

	tp.AddTime(45 * time.Minute)
	reset, err = store.ResetStuck(ctx, 30*time.Minute)
	require.NoError(t, err)
	require.Len(t, reset, 1)
	assert.Equal(t, claimed.ID, reset[0].ID)
	assert.Equal(t, model.JobStatusPending, reset[0].Status)
	assert.Equal(t, 1, reset[0].Attempts)
	require.NotNil(t, reset[0].LastError)
	assert.Contains(t, *reset[0].LastError, "stuck")
}

func TestCrashRecoveryOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")

	store, err := Open(Config{Path: path})
	require.NoError(t, err)
	job := enqueue(t, store, model.JobTypeCapture, 0)
	_, err = store.Claim(context.Background(), "w1")
	require.NoError(t, err)

	// A second Open simulates a process restart while the job was running.
	reopened, err := Open(Config{Path: path})
	require.NoError(t, err)

	got, err := reopened.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, got.Status)
	assert.Equal(t, 1, got.Attempts, "interrupted claim keeps its attempt")
	assert.Nil(t, got.WorkerID)
	require.NotNil(t, got.LastError)
	assert.Contains(t, *got.LastError, "restart")

	claimed, err := reopened.Claim(context.Background(), "w2")
	require.NoError(t, err)
	assert.Equal(t, job.ID, claimed.ID)
	assert.Equal(t, 2, claimed.Attempts)
}

func TestDeadLetterLifecycle(t *testing.T) {
	store := newStore(t, nil)
	ctx := context.Background()

	item := &model.DeadLetterItem{
		JobID:     "job-1",
		JobType:   model.JobTypeEmail,
		Payload:   json.RawMessage(`{"to":"owner@example.com"}`),
		LastError: "Invalid recipient",
		Attempts:  1,
	}
	require.NoError(t, store.AddDeadLetter(ctx, item))
	require.NotEmpty(t, item.ID)
	assert.False(t, item.FailedAt.IsZero())

	n, err := store.CountUnresolvedDeadLetters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := store.ResolveDeadLetter(ctx, item.ID, "source record deleted")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ResolveDeadLetter(ctx, item.ID, "again")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := store.GetDeadLetter(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, got.Resolved())
	require.NotNil(t, got.ResolutionNotes)
	assert.Equal(t, "source record deleted", *got.ResolutionNotes)

	unresolved, err := store.ListDeadLetters(ctx, model.DeadLetterFilter{UnresolvedOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unresolved)
}

func TestAddDeadLetterDuplicateID(t *testing.T) {
	store := newStore(t, nil)
	ctx := context.Background()

	item := &model.DeadLetterItem{
		JobID:     "job-1",
		JobType:   model.JobTypeEmail,
		Payload:   json.RawMessage(`{}`),
		LastError: "Invalid recipient",
		Attempts:  1,
	}
	require.NoError(t, store.AddDeadLetter(ctx, item))

	dup := *item
	err := store.AddDeadLetter(ctx, &dup)
	require.ErrorIs(t, err, data.ErrDeadLetterExists)
}

func TestStatsBacklogAndCleanup(t *testing.T) {
	tp := data.NewFixedTimeProvider(time.Now().UTC())
	store := newStore(t, tp)
	ctx := context.Background()

	enqueue(t, store, model.JobTypeCapture, 0)
	enqueue(t, store, model.JobTypeCapture, 0)
	enqueue(t, store, model.JobTypeScore, 0)

	claimed, err := store.Claim(ctx, "w1")
	require.NoError(t, err)
	_, err = store.Complete(ctx, claimed.ID, nil)
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.Completed)

	backlog, err := store.Backlog(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, backlog.Total)

	n, err := store.CleanupTerminal(ctx, time.Hour, 100)
	require.NoError(t, err)
	assert.Zero(t, n)

	tp.AddTime(2 * time.Hour)
	n, err = store.CleanupTerminal(ctx, time.Hour, 100)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.json")

	store, err := Open(Config{Path: path})
	require.NoError(t, err)
	job := enqueue(t, store, model.JobTypeDiscover, 7)
	require.NoError(t, store.AppendJobEvent(context.Background(), &core.JobEvent{
		JobID: job.ID, Event: "enqueued",
	}))

	reopened, err := Open(Config{Path: path})
	require.NoError(t, err)

	got, err := reopened.GetByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Type, got.Type)
	assert.Equal(t, 7, got.Priority)
	assert.JSONEq(t, string(job.Payload), string(got.Payload))
}
