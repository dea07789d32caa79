package config

// ObservabilityConfig groups metrics settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `envPrefix:"METRICS_"`
}

// Sanitize applies guardrails to observability sub-configs.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
}

// MetricsConfig configures the StatsD sink.
type MetricsConfig struct {
	Enabled       bool   `env:"ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`
	Prefix        string `env:"PREFIX"         envDefault:"leadforge"`
}

// Sanitize enforces safe defaults.
func (c *MetricsConfig) Sanitize() {
	if c.StatsdAddress == "" {
		c.Enabled = false
	}
	if c.Prefix == "" {
		c.Prefix = "leadforge"
	}
}
