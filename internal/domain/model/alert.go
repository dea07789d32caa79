package model

import (
	"fmt"
	"strings"
	"time"
)

// AlertType represents the condition that raised an operator alert.
type AlertType string

const (
	AlertTypeJobFailed       AlertType = "job_failed"
	AlertTypeJobStuck        AlertType = "job_stuck"
	AlertTypeQueueBacklog    AlertType = "queue_backlog"
	AlertTypeHighFailureRate AlertType = "high_failure_rate"
	AlertTypeDLQThreshold    AlertType = "dlq_threshold"
	AlertTypeWorkerUnhealthy AlertType = "worker_unhealthy"
)

// Valid returns true if the alert type is valid.
func (t AlertType) Valid() bool {
	switch t {
	case AlertTypeJobFailed, AlertTypeJobStuck, AlertTypeQueueBacklog,
		AlertTypeHighFailureRate, AlertTypeDLQThreshold, AlertTypeWorkerUnhealthy:
		return true
	default:
		return false
	}
}

// String returns the string representation of the alert type.
func (t AlertType) String() string {
	return string(t)
}

// AlertSeverity represents the severity level of an alert.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Rank needs value receiver
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// Rank orders severities: info < warning < critical. Unknown severities rank lowest.
func (s AlertSeverity) Rank() int {
	switch s {
	case AlertSeverityInfo:
		return 1
	case AlertSeverityWarning:
		return 2
	case AlertSeverityCritical:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether s is at or above the given minimum severity.
func (s AlertSeverity) AtLeast(minimum AlertSeverity) bool {
	return s.Rank() >= minimum.Rank()
}

// Valid returns true if the alert severity is valid.
func (s AlertSeverity) Valid() bool {
	return s.Rank() > 0
}

// UnmarshalText implements encoding.TextUnmarshaler for AlertSeverity to allow env parsing.
func (s *AlertSeverity) UnmarshalText(text []byte) error {
	v := AlertSeverity(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid AlertSeverity: %q", string(text))
	}
	*s = v
	return nil
}

// Alert represents an operator alert raised by the queue core or monitor.
// Lifecycle: created, optionally acknowledged, optionally resolved.
type Alert struct {
	ID             string            `json:"id"`
	Type           AlertType         `json:"type"`
	Severity       AlertSeverity     `json:"severity"`
	Title          string            `json:"title"`
	Message        string            `json:"message"`
	Data           map[string]string `json:"data,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	AcknowledgedAt *time.Time        `json:"acknowledged_at,omitempty"`
	ResolvedAt     *time.Time        `json:"resolved_at,omitempty"`
}
