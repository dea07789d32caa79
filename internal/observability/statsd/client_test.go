package statsd

import (
	"testing"
	"time"
)

func TestMetricName(t *testing.T) {
	t.Parallel()

	c := &Client{prefix: "leadforge"}
	tests := map[string]string{
		"queue.processed":    "leadforge.queue.processed",
		" .queue.processed.": "leadforge.queue.processed",
		"queue processed":    "leadforge.queue_processed",
		"":                   "",
		".":                  "",
	}
	for input, want := range tests {
		if got := c.metricName(input); got != want {
			t.Fatalf("metricName(%q) = %q, want %q", input, got, want)
		}
	}

	bare := &Client{}
	if got := bare.metricName("queue.processed"); got != "queue.processed" {
		t.Fatalf("metricName without prefix = %q", got)
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{
		"env":       "prod",
		" service ": " queue ",
	}
	local := map[string]string{
		"result": " success ",
		"":       "ignored",
		"env":    "stage",
	}

	got := formatTags(global, local)
	want := "|#env:stage,result:success,service:queue"
	if got != want {
		t.Fatalf("formatTags mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestFormatTagsEmpty(t *testing.T) {
	t.Parallel()

	if got := formatTags(nil, nil); got != "" {
		t.Fatalf("formatTags(nil, nil) = %q, want empty string", got)
	}
}

func TestFormatFloat(t *testing.T) {
	t.Parallel()

	tests := map[float64]string{
		0:     "0",
		12:    "12",
		0.25:  "0.25",
		99.95: "99.95",
	}
	for input, want := range tests {
		if got := formatFloat(input); got != want {
			t.Fatalf("formatFloat(%v) = %q, want %q", input, got, want)
		}
	}
}

func TestDisabledClientIsSafe(t *testing.T) {
	t.Parallel()

	c, err := NewClient(Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	// No connection behind these; they must be no-ops, not panics.
	c.Count("queue.processed", 1, nil)
	c.Gauge("queue.backlog", 3, map[string]string{"job_type": "email"})
	c.Timing("queue.duration", 50*time.Millisecond, nil)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
