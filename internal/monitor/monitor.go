// Package monitor watches queue health and raises operator alerts: stuck
// jobs, dead letter growth, backlog depth, worker memory pressure, and
// failure-rate spikes.
package monitor

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/leadforge/leadforge/internal/core"
	"github.com/leadforge/leadforge/internal/data"
	"github.com/leadforge/leadforge/internal/domain/model"
	"github.com/leadforge/leadforge/internal/observability/metrics"
	"github.com/leadforge/leadforge/internal/observability/statsd"
)

// Config holds the monitor thresholds.
type Config struct {
	// Interval between sweeps.
	Interval time.Duration

	// StuckThreshold is how long a job may stay running before it is
	// presumed orphaned and reset.
	StuckThreshold time.Duration

	// DLQThreshold is the unresolved dead letter count that raises a
	// critical alert.
	DLQThreshold int

	// Backlog thresholds for pending plus scheduled jobs.
	BacklogWarning  int
	BacklogCritical int

	// Heap usage ratios (HeapAlloc / HeapSys) for worker health alerts.
	HeapWarningRatio  float64
	HeapCriticalRatio float64

	// FailureRateThreshold is the failed/(failed+completed) ratio, measured
	// over the jobs settled since the previous sweep, that raises an alert.
	// FailureRateMinSample is the minimum settled count before the ratio is
	// considered meaningful.
	FailureRateThreshold float64
	FailureRateMinSample int
}

func (c *Config) sanitize() {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.StuckThreshold <= 0 {
		c.StuckThreshold = 30 * time.Minute
	}
	if c.DLQThreshold <= 0 {
		c.DLQThreshold = 10
	}
	if c.BacklogWarning <= 0 {
		c.BacklogWarning = 100
	}
	if c.BacklogCritical <= 0 {
		c.BacklogCritical = 500
	}
	if c.HeapWarningRatio <= 0 {
		c.HeapWarningRatio = 0.85
	}
	if c.HeapCriticalRatio <= 0 {
		c.HeapCriticalRatio = 0.95
	}
	if c.FailureRateThreshold <= 0 {
		c.FailureRateThreshold = 0.5
	}
	if c.FailureRateMinSample <= 0 {
		c.FailureRateMinSample = 10
	}
}

// Options groups dependencies for the Monitor.
type Options struct {
	Store  core.JobStore    // Required
	Alerts core.AlertSender // Required

	Config       Config
	Logger       *slog.Logger
	Metrics      statsd.Sink
	TimeProvider data.TimeProvider
}

// Monitor runs periodic health sweeps over the job store. Each sweep runs
// every check even when earlier checks fail.
type Monitor struct {
	store   core.JobStore
	alerts  core.AlertSender
	config  Config
	logger  *slog.Logger
	metrics statsd.Sink
	tp      data.TimeProvider

	// stuckAlerted dedupes job_stuck alerts per stuck episode.
	stuckAlerted map[string]struct{}

	// lastDLQAlerted suppresses repeat dlq_threshold alerts while the count
	// is unchanged.
	lastDLQAlerted int

	// Previous sweep's terminal counts, for the failure-rate window.
	prevFailed    int
	prevCompleted int
	haveBaseline  bool

	readHeap func() (alloc, sys uint64)
}

// New constructs a Monitor.
func New(opts Options) (*Monitor, error) {
	if opts.Store == nil {
		return nil, errors.New("monitor: store is required")
	}
	if opts.Alerts == nil {
		return nil, errors.New("monitor: alert sender is required")
	}

	cfg := opts.Config
	cfg.sanitize()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tp := opts.TimeProvider
	if tp == nil {
		tp = &data.RealTimeProvider{}
	}

	return &Monitor{
		store:        opts.Store,
		alerts:       opts.Alerts,
		config:       cfg,
		logger:       logger.With(slog.String("component", "monitor")),
		metrics:      opts.Metrics,
		tp:           tp,
		stuckAlerted: make(map[string]struct{}),
		readHeap: func() (uint64, uint64) {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			return m.HeapAlloc, m.HeapSys
		},
	}, nil
}

// Run sweeps at the configured interval until the context is cancelled.
// Returns nil on graceful shutdown.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.InfoContext(ctx, "starting monitor", slog.Duration("interval", m.config.Interval))

	m.waitWithJitter(ctx)
	if ctx.Err() != nil {
		return nil
	}
	m.Sweep(ctx)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.InfoContext(ctx, "monitor stopping", slog.Any("reason", ctx.Err()))
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// waitWithJitter delays startup by up to 10% of the interval so multiple
// instances do not sweep in lockstep.
func (m *Monitor) waitWithJitter(ctx context.Context) {
	maxJitter := int64(m.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return
	}
	jitter := time.Duration(int64(binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter))) // #nosec G115 - bounded by maxJitter

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
	}
}

type checkFunc func(context.Context) (int64, error)

type checkStep struct {
	label string
	fn    checkFunc
}

// Sweep runs every health check once. Check failures are logged and emitted
// as metrics; one failing check never blocks the others.
func (m *Monitor) Sweep(ctx context.Context) {
	steps := []checkStep{
		{label: "stuck_jobs", fn: m.checkStuckJobs},
		{label: "dead_letters", fn: m.checkDeadLetters},
		{label: "backlog", fn: m.checkBacklog},
		{label: "worker_health", fn: m.checkWorkerHealth},
		{label: "failure_rate", fn: m.checkFailureRate},
	}

	for _, step := range steps {
		start := time.Now()
		count, err := step.fn(ctx)
		metrics.EmitSweep(m.metrics, metrics.SweepMetric{
			Check:   step.label,
			Count:   count,
			Elapsed: time.Since(start),
			Err:     suppressContextCancellation(err),
		})
		if err != nil && !isContextCancellation(err) {
			m.logger.ErrorContext(ctx, "monitor check failed",
				slog.String("check", step.label), slog.Any("error", err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (m *Monitor) send(ctx context.Context, params core.SendAlertParams) {
	m.alerts.Send(ctx, params)
}

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}

// checkStuckJobs resets orphaned running jobs and alerts once per episode.
func (m *Monitor) checkStuckJobs(ctx context.Context) (int64, error) {
	reset, err := m.store.ResetStuck(ctx, m.config.StuckThreshold)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	if len(reset) == 0 {
		return 0, nil
	}

	// Bound the dedupe set; stale episodes are long gone once it fills up.
	if len(m.stuckAlerted) > 4096 {
		m.stuckAlerted = make(map[string]struct{})
	}

	alerted := 0
	for _, job := range reset {
		episode := fmt.Sprintf("%s:%d", job.ID, job.Attempts)
		if _, seen := m.stuckAlerted[episode]; seen {
			continue
		}
		m.stuckAlerted[episode] = struct{}{}
		alerted++

		m.send(ctx, core.SendAlertParams{
			Type:     model.AlertTypeJobStuck,
			Severity: model.AlertSeverityWarning,
			Title:    fmt.Sprintf("%s job stuck and recovered", job.Type),
			Message:  fmt.Sprintf("job ran past %s and was returned to pending", m.config.StuckThreshold),
			Data: map[string]string{
				"job_id":   job.ID,
				"job_type": string(job.Type),
				"attempts": fmt.Sprintf("%d", job.Attempts),
			},
		})
	}

	m.logger.WarnContext(ctx, "recovered stuck jobs",
		slog.Int("reset", len(reset)), slog.Int("alerted", alerted))
	return int64(len(reset)), nil
}

// checkDeadLetters alerts when the unresolved dead letter count reaches the
// threshold, re-alerting only when the count changes.
func (m *Monitor) checkDeadLetters(ctx context.Context) (int64, error) {
	count, err := m.store.CountUnresolvedDeadLetters(ctx)
	if err != nil {
		return 0, fmt.Errorf("count unresolved dead letters: %w", err)
	}

	if count < m.config.DLQThreshold {
		m.lastDLQAlerted = 0
		return int64(count), nil
	}
	if count == m.lastDLQAlerted {
		return int64(count), nil
	}
	m.lastDLQAlerted = count

	m.send(ctx, core.SendAlertParams{
		Type:     model.AlertTypeDLQThreshold,
		Severity: model.AlertSeverityCritical,
		Title:    "dead letter queue threshold exceeded",
		Message:  fmt.Sprintf("%d unresolved dead letters (threshold %d)", count, m.config.DLQThreshold),
		Data: map[string]string{
			"count":     fmt.Sprintf("%d", count),
			"threshold": fmt.Sprintf("%d", m.config.DLQThreshold),
		},
	})
	return int64(count), nil
}

// checkBacklog alerts on pending-plus-scheduled depth, scaling severity with
// the configured thresholds.
func (m *Monitor) checkBacklog(ctx context.Context) (int64, error) {
	backlog, err := m.store.Backlog(ctx)
	if err != nil {
		return 0, fmt.Errorf("read backlog: %w", err)
	}
	if m.metrics != nil {
		m.metrics.Gauge("monitor.backlog", float64(backlog.Total), nil)
	}

	if backlog.Total < m.config.BacklogWarning {
		return int64(backlog.Total), nil
	}

	severity := model.AlertSeverityWarning
	if backlog.Total >= m.config.BacklogCritical {
		severity = model.AlertSeverityCritical
	}

	data := map[string]string{"total": fmt.Sprintf("%d", backlog.Total)}
	for jt, n := range backlog.ByType {
		data[string(jt)] = fmt.Sprintf("%d", n)
	}
	m.send(ctx, core.SendAlertParams{
		Type:     model.AlertTypeQueueBacklog,
		Severity: severity,
		Title:    "queue backlog growing",
		Message:  fmt.Sprintf("%d jobs waiting (warning %d, critical %d)", backlog.Total, m.config.BacklogWarning, m.config.BacklogCritical),
		Data:     data,
	})
	return int64(backlog.Total), nil
}

// checkWorkerHealth alerts when heap usage approaches the runtime's reserved
// heap.
func (m *Monitor) checkWorkerHealth(ctx context.Context) (int64, error) {
	alloc, sys := m.readHeap()
	if sys == 0 {
		return 0, nil
	}
	ratio := float64(alloc) / float64(sys)
	if m.metrics != nil {
		m.metrics.Gauge("monitor.heap_ratio", ratio, nil)
	}

	if ratio < m.config.HeapWarningRatio {
		return 0, nil
	}
	severity := model.AlertSeverityWarning
	if ratio >= m.config.HeapCriticalRatio {
		severity = model.AlertSeverityCritical
	}

	m.send(ctx, core.SendAlertParams{
		Type:     model.AlertTypeWorkerUnhealthy,
		Severity: severity,
		Title:    "worker memory pressure",
		Message:  fmt.Sprintf("heap at %.0f%% of reserved memory", ratio*100),
		Data: map[string]string{
			"heap_alloc": fmt.Sprintf("%d", alloc),
			"heap_sys":   fmt.Sprintf("%d", sys),
		},
	})
	return 1, nil
}

// checkFailureRate compares failed versus completed counts settled since the
// previous sweep.
func (m *Monitor) checkFailureRate(ctx context.Context) (int64, error) {
	stats, err := m.store.Stats(ctx)
	if err != nil {
		return 0, fmt.Errorf("read stats: %w", err)
	}

	failedDelta := stats.Failed - m.prevFailed
	completedDelta := stats.Completed - m.prevCompleted
	hadBaseline := m.haveBaseline
	m.prevFailed = stats.Failed
	m.prevCompleted = stats.Completed
	m.haveBaseline = true

	if !hadBaseline {
		return 0, nil
	}

	settled := failedDelta + completedDelta
	if settled < m.config.FailureRateMinSample || failedDelta <= 0 {
		return int64(settled), nil
	}

	rate := float64(failedDelta) / float64(settled)
	if rate < m.config.FailureRateThreshold {
		return int64(settled), nil
	}

	m.send(ctx, core.SendAlertParams{
		Type:     model.AlertTypeHighFailureRate,
		Severity: model.AlertSeverityCritical,
		Title:    "job failure rate spiking",
		Message:  fmt.Sprintf("%.0f%% of the last %d settled jobs failed", rate*100, settled),
		Data: map[string]string{
			"failed":    fmt.Sprintf("%d", failedDelta),
			"completed": fmt.Sprintf("%d", completedDelta),
		},
	})
	return int64(settled), nil
}
