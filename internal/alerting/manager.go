// Package alerting raises, tracks, and delivers operator alerts. The Manager
// keeps a bounded in-memory history and fans deliveries out to channels,
// each with its own minimum severity.
package alerting

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/leadforge/leadforge/internal/core"
	"github.com/leadforge/leadforge/internal/data"
	"github.com/leadforge/leadforge/internal/domain/model"
	"github.com/leadforge/leadforge/internal/observability/statsd"
)

// Channel delivers one alert to one destination.
type Channel interface {
	Name() string
	MinSeverity() model.AlertSeverity
	Notify(ctx context.Context, alert *model.Alert) error
}

const defaultRecentCapacity = 100

// Options configures a Manager.
type Options struct {
	Channels []Channel
	Logger   *slog.Logger
	Metrics  statsd.Sink

	// RecentCapacity bounds the alert history ring. Defaults to 100.
	RecentCapacity int

	TimeProvider data.TimeProvider
}

// Manager implements core.AlertSender. Delivery failures are logged and
// never propagated back to the code that raised the alert.
type Manager struct {
	channels []Channel
	logger   *slog.Logger
	metrics  statsd.Sink
	tp       data.TimeProvider
	capacity int

	mu         sync.Mutex
	recent     []*model.Alert
	unresolved map[string]*model.Alert
}

var _ core.AlertSender = (*Manager)(nil)

// NewManager constructs a Manager. Nil channels are dropped.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}
	capacity := opts.RecentCapacity
	if capacity <= 0 {
		capacity = defaultRecentCapacity
	}

	var channels []Channel
	for _, ch := range opts.Channels {
		if ch != nil {
			channels = append(channels, ch)
		}
	}

	return &Manager{
		channels:   channels,
		logger:     logger.With(slog.String("component", "alerting")),
		metrics:    opts.Metrics,
		tp:         tp,
		capacity:   capacity,
		unresolved: make(map[string]*model.Alert),
	}
}

// Send records the alert and fans it out to every channel whose minimum
// severity it meets. It returns once every delivery attempt has settled.
func (m *Manager) Send(ctx context.Context, params core.SendAlertParams) *model.Alert {
	alert := &model.Alert{
		ID:        uuid.NewString(),
		Type:      params.Type,
		Severity:  params.Severity,
		Title:     params.Title,
		Message:   params.Message,
		Data:      params.Data,
		CreatedAt: m.tp.Now().UTC(),
	}
	if !alert.Severity.Valid() {
		alert.Severity = model.AlertSeverityInfo
	}

	m.record(alert)
	if m.metrics != nil {
		m.metrics.Count("alerts.raised", 1, map[string]string{
			"type":     string(alert.Type),
			"severity": string(alert.Severity),
		})
	}

	var wg sync.WaitGroup
	for _, ch := range m.channels {
		if !alert.Severity.AtLeast(ch.MinSeverity()) {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ch.Notify(ctx, alert); err != nil {
				m.logger.ErrorContext(ctx, "alert delivery error",
					slog.String("channel", ch.Name()),
					slog.String("alert_id", alert.ID),
					slog.String("alert_type", string(alert.Type)),
					slog.Any("error", err))
			}
		}()
	}
	wg.Wait()

	return alert
}

// record appends the alert to the ring and the unresolved index, evicting
// the oldest history entry when the ring is full. Eviction never resolves.
func (m *Manager) record(alert *model.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recent = append(m.recent, alert)
	if len(m.recent) > m.capacity {
		m.recent = m.recent[len(m.recent)-m.capacity:]
	}
	m.unresolved[alert.ID] = alert
}

// Acknowledge stamps AcknowledgedAt. Returns false when the alert is unknown
// or already acknowledged.
func (m *Manager) Acknowledge(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert := m.find(id)
	if alert == nil || alert.AcknowledgedAt != nil {
		return false
	}
	now := m.tp.Now().UTC()
	alert.AcknowledgedAt = &now
	return true
}

// Resolve stamps ResolvedAt and drops the alert from the unresolved index.
// Returns false when the alert is unknown or already resolved.
func (m *Manager) Resolve(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	alert := m.find(id)
	if alert == nil || alert.ResolvedAt != nil {
		return false
	}
	now := m.tp.Now().UTC()
	alert.ResolvedAt = &now
	delete(m.unresolved, id)
	return true
}

// find looks the alert up in the unresolved index first, then the ring.
// Callers must hold m.mu.
func (m *Manager) find(id string) *model.Alert {
	if alert, ok := m.unresolved[id]; ok {
		return alert
	}
	for _, alert := range m.recent {
		if alert.ID == id {
			return alert
		}
	}
	return nil
}

// Recent returns up to n alerts, newest first. n <= 0 returns everything.
func (m *Manager) Recent(n int) []*model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n <= 0 || n > len(m.recent) {
		n = len(m.recent)
	}
	out := make([]*model.Alert, 0, n)
	for i := len(m.recent) - 1; i >= len(m.recent)-n; i-- {
		out = append(out, cloneAlert(m.recent[i]))
	}
	return out
}

// Unresolved returns every unresolved alert, newest first.
func (m *Manager) Unresolved() []*model.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*model.Alert, 0, len(m.unresolved))
	for _, alert := range m.unresolved {
		out = append(out, cloneAlert(alert))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func cloneAlert(a *model.Alert) *model.Alert {
	out := *a
	if a.Data != nil {
		out.Data = make(map[string]string, len(a.Data))
		for k, v := range a.Data {
			out.Data[k] = v
		}
	}
	if a.AcknowledgedAt != nil {
		t := *a.AcknowledgedAt
		out.AcknowledgedAt = &t
	}
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		out.ResolvedAt = &t
	}
	return &out
}
