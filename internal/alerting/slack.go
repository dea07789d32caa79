package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leadforge/leadforge/internal/domain/model"
)

// SlackChannelConfig configures a SlackChannel.
type SlackChannelConfig struct {
	WebhookURL string
	Channel    string
	Username   string

	MinSeverity model.AlertSeverity
	Timeout     time.Duration
	RetryLimit  int
	Client      *http.Client
}

// SlackChannel delivers alerts to a Slack incoming webhook.
type SlackChannel struct {
	webhookURL  string
	channel     string
	username    string
	minSeverity model.AlertSeverity
	retryLimit  int
	client      *http.Client
}

// NewSlackChannel builds a Slack channel. minSeverity defaults to warning.
func NewSlackChannel(cfg SlackChannelConfig) (*SlackChannel, error) {
	webhookURL := strings.TrimSpace(cfg.WebhookURL)
	if webhookURL == "" {
		return nil, errors.New("slack channel: webhook url is required")
	}

	minSeverity := cfg.MinSeverity
	if !minSeverity.Valid() {
		minSeverity = model.AlertSeverityWarning
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	retries := cfg.RetryLimit
	if retries < 0 {
		retries = 0
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		username = "leadforge"
	}

	return &SlackChannel{
		webhookURL:  webhookURL,
		channel:     strings.TrimSpace(cfg.Channel),
		username:    username,
		minSeverity: minSeverity,
		retryLimit:  retries,
		client:      hc,
	}, nil
}

func (c *SlackChannel) Name() string { return "slack" }

func (c *SlackChannel) MinSeverity() model.AlertSeverity { return c.minSeverity }

// Notify posts a formatted message, retrying with linear backoff.
func (c *SlackChannel) Notify(ctx context.Context, alert *model.Alert) error {
	body, err := json.Marshal(c.formatMessage(alert))
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}

	attempts := c.retryLimit + 1
	var lastErr error
	for attempt := range attempts {
		err = c.post(ctx, body)
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < attempts-1 {
			delay := time.Duration(attempt+1) * 200 * time.Millisecond
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				if !timer.Stop() {
					<-timer.C
				}
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return lastErr
}

func (c *SlackChannel) formatMessage(alert *model.Alert) map[string]any {
	var text strings.Builder
	fmt.Fprintf(&text, "*%s* `%s`\n", escapeSlackText(alert.Title), alert.Type)
	appendSlackField(&text, "Severity", string(alert.Severity))
	appendSlackField(&text, "Message", escapeSlackText(alert.Message))
	for k, v := range alert.Data {
		appendSlackField(&text, k, escapeSlackText(v))
	}
	fmt.Fprintf(&text, "_%s_", alert.CreatedAt.Format(time.RFC3339))

	msg := map[string]any{
		"text":     text.String(),
		"username": c.username,
	}
	if c.channel != "" {
		msg["channel"] = c.channel
	}
	return msg
}

func appendSlackField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "• *%s:* %s\n", label, value)
}

func escapeSlackText(value string) string {
	return strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
	).Replace(value)
}

func (c *SlackChannel) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("slack request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack returned status %d", resp.StatusCode)
	}
	return nil
}
