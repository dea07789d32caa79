package config

import (
	"time"

	"github.com/leadforge/leadforge/internal/domain/model"
)

// AlertingConfig configures the alert manager and its delivery channels.
// The console channel is always on; the rest opt in per channel.
type AlertingConfig struct {
	// RecentCapacity bounds the in-memory alert history.
	RecentCapacity int `env:"RECENT_CAPACITY" envDefault:"100"`

	// ConsoleMinSeverity gates the structured-log channel.
	ConsoleMinSeverity model.AlertSeverity `env:"CONSOLE_MIN_SEVERITY" envDefault:"warning"`

	Email   EmailAlertConfig   `envPrefix:"EMAIL_"`
	Webhook WebhookAlertConfig `envPrefix:"WEBHOOK_"`
	Slack   SlackAlertConfig   `envPrefix:"SLACK_"`
}

// Sanitize enforces safe values across channels.
func (c *AlertingConfig) Sanitize() {
	if c.RecentCapacity <= 0 {
		c.RecentCapacity = 100
	}
	if !c.ConsoleMinSeverity.Valid() {
		c.ConsoleMinSeverity = model.AlertSeverityWarning
	}
	c.Email.Sanitize()
	c.Webhook.Sanitize()
	c.Slack.Sanitize()
}

// EmailAlertConfig configures the email channel. The mail transport itself
// is supplied by the embedding application.
type EmailAlertConfig struct {
	Enabled     bool                `env:"ENABLED"      envDefault:"false"`
	Recipients  []string            `env:"RECIPIENTS"`
	MinSeverity model.AlertSeverity `env:"MIN_SEVERITY" envDefault:"critical"`

	// MinInterval paces deliveries so an alert storm does not flood inboxes.
	MinInterval time.Duration `env:"MIN_INTERVAL" envDefault:"5m"`
}

// Sanitize enforces safe values.
func (c *EmailAlertConfig) Sanitize() {
	if !c.MinSeverity.Valid() {
		c.MinSeverity = model.AlertSeverityCritical
	}
	if c.MinInterval <= 0 {
		c.MinInterval = 5 * time.Minute
	}
	if c.Enabled && len(c.Recipients) == 0 {
		c.Enabled = false
	}
}

// WebhookAlertConfig configures the generic webhook channel.
type WebhookAlertConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"false"`
	URL     string `env:"URL"`

	// Secret, when set, signs each body into X-Leadforge-Signature.
	Secret string `env:"SECRET"`

	MinSeverity model.AlertSeverity `env:"MIN_SEVERITY" envDefault:"warning"`
	Timeout     time.Duration       `env:"TIMEOUT"      envDefault:"5s"`
	RetryLimit  int                 `env:"RETRY_LIMIT"  envDefault:"3"`
}

// Sanitize enforces safe values.
func (c *WebhookAlertConfig) Sanitize() {
	if !c.MinSeverity.Valid() {
		c.MinSeverity = model.AlertSeverityWarning
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	if c.Enabled && c.URL == "" {
		c.Enabled = false
	}
}

// SlackAlertConfig configures the Slack webhook channel.
type SlackAlertConfig struct {
	Enabled    bool   `env:"ENABLED" envDefault:"false"`
	WebhookURL string `env:"WEBHOOK_URL"`
	Channel    string `env:"CHANNEL"`
	Username   string `env:"USERNAME" envDefault:"leadforge"`

	MinSeverity model.AlertSeverity `env:"MIN_SEVERITY" envDefault:"warning"`
	Timeout     time.Duration       `env:"TIMEOUT"      envDefault:"5s"`
	RetryLimit  int                 `env:"RETRY_LIMIT"  envDefault:"3"`
}

// Sanitize enforces safe values.
func (c *SlackAlertConfig) Sanitize() {
	if !c.MinSeverity.Valid() {
		c.MinSeverity = model.AlertSeverityWarning
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.RetryLimit < 0 {
		c.RetryLimit = 0
	}
	if c.Enabled && c.WebhookURL == "" {
		c.Enabled = false
	}
}
