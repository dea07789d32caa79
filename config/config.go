// Package config defines the application configuration, loaded from
// environment variables with github.com/caarlos0/env. Each subsystem owns a
// sub-config in its own file.
package config

import (
	"fmt"
	"strings"
)

// StoreBackend selects the job store implementation.
type StoreBackend string

const (
	// StoreBackendMemory is the single-process file-backed store.
	StoreBackendMemory StoreBackend = "memory"
	// StoreBackendPostgres is the shared multi-worker store.
	StoreBackendPostgres StoreBackend = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for env parsing.
func (b *StoreBackend) UnmarshalText(text []byte) error {
	v := StoreBackend(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case StoreBackendMemory, StoreBackendPostgres:
		*b = v
		return nil
	default:
		return fmt.Errorf("invalid store backend: %q (want memory or postgres)", string(text))
	}
}

// AppConfig is the root configuration struct.
type AppConfig struct {
	// IsDev enables development conveniences (text log handler, debug level).
	IsDev bool `env:"DEV" envDefault:"false"`

	// StoreBackend selects where jobs persist. The backend is explicit; the
	// application never falls back silently.
	StoreBackend StoreBackend `env:"STORE_BACKEND" envDefault:"memory"`

	// StorePath is the snapshot location for the memory backend.
	StorePath string `env:"STORE_PATH" envDefault:"data/leadforge-jobs.json"`

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	Queue         QueueConfig         `envPrefix:"QUEUE_"`
	Monitor       MonitorConfig       `envPrefix:"MONITOR_"`
	Alerting      AlertingConfig      `envPrefix:"ALERT_"`
	Observability ObservabilityConfig `envPrefix:"OBSERVABILITY_"`
}

// Sanitize applies guardrails to values loaded from env.
func (c *AppConfig) Sanitize() {
	c.Queue.Sanitize()
	c.Monitor.Sanitize()
	c.Alerting.Sanitize()
	c.Observability.Sanitize()
}
