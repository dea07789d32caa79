package alerting

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/leadforge/leadforge/internal/domain/model"
)

// signatureHeader carries the hex HMAC-SHA256 of the request body.
const signatureHeader = "X-Leadforge-Signature"

// WebhookChannelConfig configures a WebhookChannel.
type WebhookChannelConfig struct {
	URL string

	// Secret, when set, signs each request body into X-Leadforge-Signature.
	Secret string

	MinSeverity model.AlertSeverity
	Timeout     time.Duration
	RetryLimit  int
	Client      *http.Client
}

// WebhookChannel POSTs alerts as JSON to an arbitrary HTTP endpoint, with
// optional HMAC signing and linear retry backoff.
type WebhookChannel struct {
	url         string
	secret      string
	minSeverity model.AlertSeverity
	retryLimit  int
	client      *http.Client
}

// NewWebhookChannel builds a webhook channel. minSeverity defaults to warning.
func NewWebhookChannel(cfg WebhookChannelConfig) (*WebhookChannel, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		return nil, errors.New("webhook channel: url is required")
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

	return &WebhookChannel{
		url:         url,
		secret:      cfg.Secret,
		minSeverity: minSeverity,
		retryLimit:  retries,
		client:      hc,
	}, nil
}

func (c *WebhookChannel) Name() string { return "webhook" }

func (c *WebhookChannel) MinSeverity() model.AlertSeverity { return c.minSeverity }

// Notify delivers the alert, retrying transient failures with linear backoff.
func (c *WebhookChannel) Notify(ctx context.Context, alert *model.Alert) error {
	body, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
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

func (c *WebhookChannel) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.secret != "" {
		req.Header.Set(signatureHeader, Sign(c.secret, body))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// Sign returns the hex HMAC-SHA256 of body under secret. Receivers verify
// deliveries by recomputing it over the raw request body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
