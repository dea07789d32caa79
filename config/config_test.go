package config

import (
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"

	"github.com/leadforge/leadforge/internal/domain/model"
)

func TestStoreBackend_UnmarshalText(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    StoreBackend
		expectError bool
	}{
		{name: "memory", input: "memory", expected: StoreBackendMemory},
		{name: "postgres", input: "postgres", expected: StoreBackendPostgres},
		{name: "case and space tolerant", input: "  Postgres ", expected: StoreBackendPostgres},
		{name: "unknown backend", input: "sqlite", expectError: true},
		{name: "empty", input: "", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b StoreBackend
			err := b.UnmarshalText([]byte(tt.input))
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error for input %q, got backend %q", tt.input, b)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if b != tt.expected {
				t.Fatalf("expected backend %q, got %q", tt.expected, b)
			}
		})
	}
}

func TestAppConfig_ParseEnv(t *testing.T) {
	t.Setenv("STORE_BACKEND", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_NAME", "jobs")
	t.Setenv("QUEUE_CONCURRENCY", "8")
	t.Setenv("QUEUE_RATE_PER_MINUTE", "-1")
	t.Setenv("QUEUE_EXEC_TIMEOUT", "90s")
	t.Setenv("MONITOR_STUCK_THRESHOLD", "15m")
	t.Setenv("ALERT_CONSOLE_MIN_SEVERITY", "info")
	t.Setenv("ALERT_WEBHOOK_ENABLED", "true")
	t.Setenv("ALERT_WEBHOOK_URL", "https://hooks.example.com/leadforge")
	t.Setenv("ALERT_WEBHOOK_SECRET", "s3cret")
	t.Setenv("OBSERVABILITY_METRICS_ENABLED", "true")
	t.Setenv("OBSERVABILITY_METRICS_STATSD_ADDRESS", "statsd.internal:8125")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	cfg.Sanitize()

	if cfg.StoreBackend != StoreBackendPostgres {
		t.Errorf("expected postgres backend, got %q", cfg.StoreBackend)
	}
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.Port != 5433 || cfg.Postgres.Name != "jobs" {
		t.Errorf("unexpected postgres config: %+v", cfg.Postgres)
	}
	if cfg.Queue.Concurrency != 8 {
		t.Errorf("expected concurrency 8, got %d", cfg.Queue.Concurrency)
	}
	if cfg.Queue.RatePerMinute != -1 {
		t.Errorf("negative rate should survive sanitize, got %d", cfg.Queue.RatePerMinute)
	}
	if cfg.Queue.ExecTimeout != 90*time.Second {
		t.Errorf("expected exec timeout 90s, got %s", cfg.Queue.ExecTimeout)
	}
	if cfg.Monitor.StuckThreshold != 15*time.Minute {
		t.Errorf("expected stuck threshold 15m, got %s", cfg.Monitor.StuckThreshold)
	}
	if cfg.Alerting.ConsoleMinSeverity != model.AlertSeverityInfo {
		t.Errorf("expected console min severity info, got %q", cfg.Alerting.ConsoleMinSeverity)
	}
	if !cfg.Alerting.Webhook.Enabled || cfg.Alerting.Webhook.URL != "https://hooks.example.com/leadforge" {
		t.Errorf("unexpected webhook config: %+v", cfg.Alerting.Webhook)
	}
	if !cfg.Observability.Metrics.Enabled || cfg.Observability.Metrics.StatsdAddress != "statsd.internal:8125" {
		t.Errorf("unexpected metrics config: %+v", cfg.Observability.Metrics)
	}
}

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	cfg.Sanitize()

	if cfg.StoreBackend != StoreBackendMemory {
		t.Errorf("expected memory backend by default, got %q", cfg.StoreBackend)
	}
	if cfg.StorePath != "data/leadforge-jobs.json" {
		t.Errorf("unexpected default store path %q", cfg.StorePath)
	}
	if cfg.Queue.Concurrency != 4 || cfg.Queue.RatePerMinute != 120 {
		t.Errorf("unexpected queue defaults: %+v", cfg.Queue)
	}
	if cfg.Queue.Retention != 168*time.Hour {
		t.Errorf("expected 168h retention, got %s", cfg.Queue.Retention)
	}
	if cfg.Monitor.Interval != time.Minute || cfg.Monitor.DLQThreshold != 10 {
		t.Errorf("unexpected monitor defaults: %+v", cfg.Monitor)
	}
	if cfg.Alerting.RecentCapacity != 100 {
		t.Errorf("expected recent capacity 100, got %d", cfg.Alerting.RecentCapacity)
	}
	if cfg.Alerting.Email.MinSeverity != model.AlertSeverityCritical {
		t.Errorf("expected email min severity critical, got %q", cfg.Alerting.Email.MinSeverity)
	}
	if cfg.Observability.Metrics.Enabled {
		t.Error("metrics should be disabled by default")
	}
}

func TestQueueConfig_SanitizeGuardrails(t *testing.T) {
	cfg := QueueConfig{
		Concurrency:        -3,
		ExecTimeout:        -time.Second,
		TickInterval:       time.Millisecond,
		DefaultMaxAttempts: 0,
		CleanupBatch:       -1,
	}
	cfg.Sanitize()

	if cfg.Concurrency != 4 {
		t.Errorf("expected concurrency reset to 4, got %d", cfg.Concurrency)
	}
	if cfg.ExecTimeout != 2*time.Minute {
		t.Errorf("expected exec timeout reset to 2m, got %s", cfg.ExecTimeout)
	}
	if cfg.TickInterval != 500*time.Millisecond {
		t.Errorf("expected tick interval reset to 500ms, got %s", cfg.TickInterval)
	}
	if cfg.DefaultMaxAttempts != 3 {
		t.Errorf("expected default max attempts reset to 3, got %d", cfg.DefaultMaxAttempts)
	}
	if cfg.CleanupBatch != 500 {
		t.Errorf("expected cleanup batch reset to 500, got %d", cfg.CleanupBatch)
	}
}

func TestMonitorConfig_SanitizeOrdersThresholds(t *testing.T) {
	cfg := MonitorConfig{
		Interval:          time.Minute,
		StuckThreshold:    time.Hour,
		BacklogWarning:    500,
		BacklogCritical:   100,
		HeapWarningRatio:  0.9,
		HeapCriticalRatio: 0.5,
	}
	cfg.Sanitize()

	if cfg.BacklogCritical < cfg.BacklogWarning {
		t.Errorf("backlog critical %d should not be below warning %d", cfg.BacklogCritical, cfg.BacklogWarning)
	}
	if cfg.HeapCriticalRatio < cfg.HeapWarningRatio {
		t.Errorf("heap critical %v should not be below warning %v", cfg.HeapCriticalRatio, cfg.HeapWarningRatio)
	}
}

func TestAlertingConfig_SanitizeDisablesUnconfiguredChannels(t *testing.T) {
	cfg := AlertingConfig{
		Email:   EmailAlertConfig{Enabled: true},
		Webhook: WebhookAlertConfig{Enabled: true},
		Slack:   SlackAlertConfig{Enabled: true},
	}
	cfg.Sanitize()

	if cfg.Email.Enabled {
		t.Error("email channel without recipients should self-disable")
	}
	if cfg.Webhook.Enabled {
		t.Error("webhook channel without URL should self-disable")
	}
	if cfg.Slack.Enabled {
		t.Error("slack channel without webhook URL should self-disable")
	}
}

func TestMetricsConfig_Sanitize(t *testing.T) {
	cfg := MetricsConfig{Enabled: true, StatsdAddress: "", Prefix: ""}
	cfg.Sanitize()

	if cfg.Enabled {
		t.Error("metrics without a statsd address should self-disable")
	}
	if cfg.Prefix != "leadforge" {
		t.Errorf("expected prefix restored to leadforge, got %q", cfg.Prefix)
	}
}

func TestDBConfig_DSN(t *testing.T) {
	cfg := DBConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "svc",
		Password: "pw",
		Name:     "jobs",
		SSLMode:  "require",
	}
	expected := "postgres://svc:pw@db.internal:5433/jobs?sslmode=require"
	if got := cfg.DSN(); got != expected {
		t.Errorf("expected DSN %q, got %q", expected, got)
	}
}
