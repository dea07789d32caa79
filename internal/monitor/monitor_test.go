package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadforge/leadforge/internal/core"
	"github.com/leadforge/leadforge/internal/domain/model"
)

// stubStore overrides only the methods the monitor touches. Everything else
// panics via the embedded nil interface.
type stubStore struct {
	core.JobStore

	resetStuck  []*model.Job
	resetErr    error
	unresolved  int
	backlog     model.Backlog
	stats       model.JobStats
	statsErr    error
	resetCalled int
}

func (s *stubStore) ResetStuck(_ context.Context, _ time.Duration) ([]*model.Job, error) {
	s.resetCalled++
	return s.resetStuck, s.resetErr
}

func (s *stubStore) CountUnresolvedDeadLetters(_ context.Context) (int, error) {
	return s.unresolved, nil
}

func (s *stubStore) Backlog(_ context.Context) (*model.Backlog, error) {
	b := s.backlog
	if b.ByType == nil {
		b.ByType = map[model.JobType]int{}
	}
	return &b, nil
}

func (s *stubStore) Stats(_ context.Context) (*model.JobStats, error) {
	if s.statsErr != nil {
		return nil, s.statsErr
	}
	st := s.stats
	return &st, nil
}

type recordingAlerts struct {
	mu   sync.Mutex
	sent []core.SendAlertParams
}

func (r *recordingAlerts) Send(_ context.Context, params core.SendAlertParams) *model.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, params)
	return nil
}

func (r *recordingAlerts) byType(t model.AlertType) []core.SendAlertParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []core.SendAlertParams
	for _, p := range r.sent {
		if p.Type == t {
			out = append(out, p)
		}
	}
	return out
}

func newMonitor(t *testing.T, store *stubStore, alerts *recordingAlerts, cfg Config) *Monitor {
	t.Helper()
	m, err := New(Options{Store: store, Alerts: alerts, Config: cfg})
	require.NoError(t, err)
	// Healthy heap unless a test says otherwise.
	m.readHeap = func() (uint64, uint64) { return 10, 100 }
	return m
}

func TestStuckJobsAlertOncePerEpisode(t *testing.T) {
	job := &model.Job{ID: "j1", Type: model.JobTypeCapture, Attempts: 2, Status: model.JobStatusPending}
	store := &stubStore{resetStuck: []*model.Job{job}}
	alerts := &recordingAlerts{}
	m := newMonitor(t, store, alerts, Config{})

	m.Sweep(context.Background())
	m.Sweep(context.Background())

	stuck := alerts.byType(model.AlertTypeJobStuck)
	require.Len(t, stuck, 1, "same episode must not re-alert")
	assert.Equal(t, model.AlertSeverityWarning, stuck[0].Severity)
	assert.Equal(t, "j1", stuck[0].Data["job_id"])

	// A later claim bumps attempts: that is a new episode.
	job.Attempts = 3
	m.Sweep(context.Background())
	assert.Len(t, alerts.byType(model.AlertTypeJobStuck), 2)
}

func TestDLQThreshold(t *testing.T) {
	store := &stubStore{unresolved: 3}
	alerts := &recordingAlerts{}
	m := newMonitor(t, store, alerts, Config{DLQThreshold: 5})

	m.Sweep(context.Background())
	assert.Empty(t, alerts.byType(model.AlertTypeDLQThreshold))

	store.unresolved = 5
	m.Sweep(context.Background())
	m.Sweep(context.Background())
	got := alerts.byType(model.AlertTypeDLQThreshold)
	require.Len(t, got, 1, "unchanged count must not re-alert")
	assert.Equal(t, model.AlertSeverityCritical, got[0].Severity)

	store.unresolved = 7
	m.Sweep(context.Background())
	assert.Len(t, alerts.byType(model.AlertTypeDLQThreshold), 2)
}

func TestBacklogSeverityScaling(t *testing.T) {
	store := &stubStore{}
	alerts := &recordingAlerts{}
	m := newMonitor(t, store, alerts, Config{BacklogWarning: 10, BacklogCritical: 50})

	store.backlog = model.Backlog{Total: 5}
	m.Sweep(context.Background())
	assert.Empty(t, alerts.byType(model.AlertTypeQueueBacklog))

	store.backlog = model.Backlog{Total: 20, ByType: map[model.JobType]int{model.JobTypeEmail: 20}}
	m.Sweep(context.Background())
	got := alerts.byType(model.AlertTypeQueueBacklog)
	require.Len(t, got, 1)
	assert.Equal(t, model.AlertSeverityWarning, got[0].Severity)
	assert.Equal(t, "20", got[0].Data["email"])

	store.backlog = model.Backlog{Total: 80}
	m.Sweep(context.Background())
	got = alerts.byType(model.AlertTypeQueueBacklog)
	require.Len(t, got, 2)
	assert.Equal(t, model.AlertSeverityCritical, got[1].Severity)
}

func TestWorkerHealthHeapRatio(t *testing.T) {
	store := &stubStore{}
	alerts := &recordingAlerts{}
	m := newMonitor(t, store, alerts, Config{HeapWarningRatio: 0.85, HeapCriticalRatio: 0.95})

	m.readHeap = func() (uint64, uint64) { return 50, 100 }
	m.Sweep(context.Background())
	assert.Empty(t, alerts.byType(model.AlertTypeWorkerUnhealthy))

	m.readHeap = func() (uint64, uint64) { return 90, 100 }
	m.Sweep(context.Background())
	got := alerts.byType(model.AlertTypeWorkerUnhealthy)
	require.Len(t, got, 1)
	assert.Equal(t, model.AlertSeverityWarning, got[0].Severity)

	m.readHeap = func() (uint64, uint64) { return 96, 100 }
	m.Sweep(context.Background())
	got = alerts.byType(model.AlertTypeWorkerUnhealthy)
	require.Len(t, got, 2)
	assert.Equal(t, model.AlertSeverityCritical, got[1].Severity)
}

func TestFailureRateWindow(t *testing.T) {
	store := &stubStore{stats: model.JobStats{Completed: 100, Failed: 5}}
	alerts := &recordingAlerts{}
	m := newMonitor(t, store, alerts, Config{FailureRateThreshold: 0.5, FailureRateMinSample: 10})

	// First sweep establishes the baseline; no window yet.
	m.Sweep(context.Background())
	assert.Empty(t, alerts.byType(model.AlertTypeHighFailureRate))

	// 8 failed of 12 settled since last sweep: over threshold.
	store.stats = model.JobStats{Completed: 104, Failed: 13}
	m.Sweep(context.Background())
	got := alerts.byType(model.AlertTypeHighFailureRate)
	require.Len(t, got, 1)
	assert.Equal(t, "8", got[0].Data["failed"])

	// Small sample stays quiet even when the ratio is high.
	store.stats = model.JobStats{Completed: 104, Failed: 15}
	m.Sweep(context.Background())
	assert.Len(t, alerts.byType(model.AlertTypeHighFailureRate), 1)
}

func TestCheckIsolation(t *testing.T) {
	// A failing stuck check must not stop the DLQ check from alerting.
	store := &stubStore{
		resetErr:   errors.New("backend unavailable"),
		unresolved: 50,
	}
	alerts := &recordingAlerts{}
	m := newMonitor(t, store, alerts, Config{DLQThreshold: 10})

	m.Sweep(context.Background())
	assert.Len(t, alerts.byType(model.AlertTypeDLQThreshold), 1)
	assert.Equal(t, 1, store.resetCalled)
}
