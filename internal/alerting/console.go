package alerting

import (
	"context"
	"log/slog"

	"github.com/leadforge/leadforge/internal/domain/model"
)

// ConsoleChannel writes alerts to the structured log. It is always safe to
// enable and is the default channel in development.
type ConsoleChannel struct {
	logger      *slog.Logger
	minSeverity model.AlertSeverity
}

// NewConsoleChannel builds a console channel. minSeverity defaults to warning.
func NewConsoleChannel(logger *slog.Logger, minSeverity model.AlertSeverity) *ConsoleChannel {
	if logger == nil {
		logger = slog.Default()
	}
	if !minSeverity.Valid() {
		minSeverity = model.AlertSeverityWarning
	}
	return &ConsoleChannel{logger: logger, minSeverity: minSeverity}
}

func (c *ConsoleChannel) Name() string { return "console" }

func (c *ConsoleChannel) MinSeverity() model.AlertSeverity { return c.minSeverity }

// Notify logs the alert at a level matching its severity.
func (c *ConsoleChannel) Notify(ctx context.Context, alert *model.Alert) error {
	attrs := []any{
		slog.String("alert_id", alert.ID),
		slog.String("alert_type", string(alert.Type)),
		slog.String("severity", string(alert.Severity)),
		slog.String("message", alert.Message),
	}
	for k, v := range alert.Data {
		attrs = append(attrs, slog.String(k, v))
	}

	switch alert.Severity {
	case model.AlertSeverityCritical:
		c.logger.ErrorContext(ctx, alert.Title, attrs...)
	case model.AlertSeverityWarning:
		c.logger.WarnContext(ctx, alert.Title, attrs...)
	default:
		c.logger.InfoContext(ctx, alert.Title, attrs...)
	}
	return nil
}
