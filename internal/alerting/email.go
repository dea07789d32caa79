package alerting

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/leadforge/leadforge/internal/domain/model"
)

// EmailMessage is one outgoing alert email.
type EmailMessage struct {
	To      []string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends email. The embedding application supplies the transport
// (SMTP, provider API, a test double).
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailChannelConfig configures an EmailChannel.
type EmailChannelConfig struct {
	Mailer     Mailer
	Recipients []string

	// MinSeverity defaults to critical; alert email is for waking people up.
	MinSeverity model.AlertSeverity

	// Limiter paces deliveries so an alert storm does not flood inboxes.
	// Nil allows one email per five minutes with a burst of two.
	Limiter *rate.Limiter
}

// EmailChannel delivers alerts by email, rate limited.
type EmailChannel struct {
	mailer      Mailer
	recipients  []string
	minSeverity model.AlertSeverity
	limiter     *rate.Limiter
}

// NewEmailChannel builds an email channel.
func NewEmailChannel(cfg EmailChannelConfig) (*EmailChannel, error) {
	if cfg.Mailer == nil {
		return nil, errors.New("email channel: mailer is required")
	}
	if len(cfg.Recipients) == 0 {
		return nil, errors.New("email channel: at least one recipient is required")
	}
	minSeverity := cfg.MinSeverity
	if !minSeverity.Valid() {
		minSeverity = model.AlertSeverityCritical
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(5*time.Minute), 2)
	}
	return &EmailChannel{
		mailer:      cfg.Mailer,
		recipients:  cfg.Recipients,
		minSeverity: minSeverity,
		limiter:     limiter,
	}, nil
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) MinSeverity() model.AlertSeverity { return c.minSeverity }

// Notify sends the alert, dropping it when the rate budget is spent.
func (c *EmailChannel) Notify(ctx context.Context, alert *model.Alert) error {
	if !c.limiter.Allow() {
		return fmt.Errorf("email rate budget exhausted, alert %s dropped", alert.ID)
	}
	return c.mailer.Send(ctx, EmailMessage{
		To:      c.recipients,
		Subject: fmt.Sprintf("[%s] %s", strings.ToUpper(string(alert.Severity)), alert.Title),
		Text:    formatAlertText(alert),
		HTML:    formatAlertHTML(alert),
	})
}

func formatAlertText(alert *model.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n%s\n", alert.Title, alert.Message)
	fmt.Fprintf(&b, "\nType: %s\nSeverity: %s\nRaised: %s\n",
		alert.Type, alert.Severity, alert.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	for k, v := range alert.Data {
		fmt.Fprintf(&b, "%s: %s\n", k, v)
	}
	return b.String()
}

func formatAlertHTML(alert *model.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>%s</h2><p>%s</p><ul>",
		html.EscapeString(alert.Title), html.EscapeString(alert.Message))
	fmt.Fprintf(&b, "<li><b>Type:</b> %s</li><li><b>Severity:</b> %s</li>",
		alert.Type, alert.Severity)
	for k, v := range alert.Data {
		fmt.Fprintf(&b, "<li><b>%s:</b> %s</li>",
			html.EscapeString(k), html.EscapeString(v))
	}
	b.WriteString("</ul>")
	return b.String()
}
