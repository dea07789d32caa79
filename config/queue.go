package config

import "time"

// QueueConfig tunes job dispatch and execution.
type QueueConfig struct {
	// Concurrency bounds in-flight handlers per worker process.
	Concurrency int `env:"CONCURRENCY" envDefault:"4"`

	// RatePerMinute bounds dispatches across the sliding minute window.
	// Zero falls back to the default; negative disables throttling.
	RatePerMinute int `env:"RATE_PER_MINUTE" envDefault:"120"`

	// ExecTimeout bounds one handler invocation.
	ExecTimeout time.Duration `env:"EXEC_TIMEOUT" envDefault:"2m"`

	// TickInterval is the idle polling interval.
	TickInterval time.Duration `env:"TICK_INTERVAL" envDefault:"500ms"`

	// DefaultMaxAttempts applies when neither the caller nor the per-type
	// retry policy sets a ceiling.
	DefaultMaxAttempts int `env:"DEFAULT_MAX_ATTEMPTS" envDefault:"3"`

	// Retention is how long terminal jobs are kept before cleanup.
	Retention       time.Duration `env:"RETENTION"        envDefault:"168h"`
	CleanupInterval time.Duration `env:"CLEANUP_INTERVAL" envDefault:"1h"`
	CleanupBatch    int           `env:"CLEANUP_BATCH"    envDefault:"500"`

	// WorkerID overrides the hostname-pid claim identity.
	WorkerID string `env:"WORKER_ID"`
}

// Sanitize enforces safe values.
func (c *QueueConfig) Sanitize() {
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.ExecTimeout <= 0 {
		c.ExecTimeout = 2 * time.Minute
	}
	if c.TickInterval < 10*time.Millisecond {
		c.TickInterval = 500 * time.Millisecond
	}
	if c.DefaultMaxAttempts <= 0 {
		c.DefaultMaxAttempts = 3
	}
	if c.Retention <= 0 {
		c.Retention = 168 * time.Hour
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Hour
	}
	if c.CleanupBatch <= 0 {
		c.CleanupBatch = 500
	}
}

// MonitorConfig tunes the health sweep.
type MonitorConfig struct {
	Interval       time.Duration `env:"INTERVAL"        envDefault:"1m"`
	StuckThreshold time.Duration `env:"STUCK_THRESHOLD" envDefault:"30m"`

	DLQThreshold    int `env:"DLQ_THRESHOLD"    envDefault:"10"`
	BacklogWarning  int `env:"BACKLOG_WARNING"  envDefault:"100"`
	BacklogCritical int `env:"BACKLOG_CRITICAL" envDefault:"500"`

	HeapWarningRatio  float64 `env:"HEAP_WARNING_RATIO"  envDefault:"0.85"`
	HeapCriticalRatio float64 `env:"HEAP_CRITICAL_RATIO" envDefault:"0.95"`

	FailureRateThreshold float64 `env:"FAILURE_RATE_THRESHOLD"  envDefault:"0.5"`
	FailureRateMinSample int     `env:"FAILURE_RATE_MIN_SAMPLE" envDefault:"10"`
}

// Sanitize enforces safe values.
func (c *MonitorConfig) Sanitize() {
	if c.Interval <= 0 {
		c.Interval = time.Minute
	}
	if c.StuckThreshold <= 0 {
		c.StuckThreshold = 30 * time.Minute
	}
	if c.HeapCriticalRatio < c.HeapWarningRatio {
		c.HeapCriticalRatio = c.HeapWarningRatio
	}
	if c.BacklogCritical < c.BacklogWarning {
		c.BacklogCritical = c.BacklogWarning
	}
}
