package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadforge/leadforge/internal/domain/model"
)

func TestDecideExhaustion(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}

	// Exhaustion wins even for otherwise retryable errors.
	d := Decide(p, "connection reset by peer", 3)
	assert.False(t, d.Retry)
	assert.Equal(t, ReasonExhausted, d.Reason)

	d = Decide(p, "connection reset by peer", 4)
	assert.False(t, d.Retry)
}

func TestDecideTerminalShortCircuits(t *testing.T) {
	p := Policy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 30 * time.Second}

	terminal := []string{
		"validation failed: missing business_name",
		"Invalid business_name",
		"page not found",
		"unauthorized: bad api key",
		"permission denied",
		"no handler for job type capture",
		"malformed payload",
	}
	for _, msg := range terminal {
		d := Decide(p, msg, 1)
		assert.False(t, d.Retry, "expected %q to be terminal", msg)
		assert.Equal(t, ReasonTerminal, d.Reason)
	}
}

func TestDecideRetryable(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second}

	retryable := []string{
		"ETIMEDOUT",
		"rate limited by upstream",
		"connection reset by peer",
		"upstream overloaded",
		"execution timeout after 300s",
	}
	for _, msg := range retryable {
		d := Decide(p, msg, 1)
		assert.True(t, d.Retry, "expected %q to be retryable", msg)
		assert.Equal(t, ReasonRetryable, d.Reason)
	}
}

func TestNextDelayGrowth(t *testing.T) {
	p := Policy{MaxAttempts: 6, BaseDelay: 1000 * time.Millisecond, MaxDelay: 30000 * time.Millisecond}

	want := []time.Duration{
		1000 * time.Millisecond,
		2000 * time.Millisecond,
		4000 * time.Millisecond,
		8000 * time.Millisecond,
		16000 * time.Millisecond,
		30000 * time.Millisecond,
	}
	for i, expected := range want {
		got := NextDelay(p, i+1)
		assert.Equal(t, expected, got, "attempt %d", i+1)
	}

	// Non-decreasing and bounded by cap well past the cap point.
	prev := time.Duration(0)
	for attempt := 1; attempt <= 20; attempt++ {
		d := NextDelay(p, attempt)
		assert.GreaterOrEqual(t, d, prev)
		assert.LessOrEqual(t, d, p.MaxDelay)
		prev = d
	}
}

func TestNextDelayJitterBounds(t *testing.T) {
	p := Policy{MaxAttempts: 3, BaseDelay: 10 * time.Second, MaxDelay: time.Minute, Jitter: true}

	for range 100 {
		d := NextDelay(p, 1)
		assert.GreaterOrEqual(t, d, 8*time.Second)
		assert.LessOrEqual(t, d, 12*time.Second)
	}
}

func TestNextDelayDefaults(t *testing.T) {
	// Zero-valued policy still produces a sane delay.
	d := NextDelay(Policy{}, 1)
	assert.Equal(t, time.Second, d)
	d = NextDelay(Policy{}, 50)
	assert.Equal(t, 30*time.Second, d)
}

func TestPolicyForTable(t *testing.T) {
	email := PolicyFor(model.JobTypeEmail)
	capture := PolicyFor(model.JobTypeCapture)
	assert.Greater(t, email.BaseDelay, capture.BaseDelay, "email should back off longer than capture")
	assert.Positive(t, PolicyFor(model.JobType("unknown")).MaxAttempts)
}

func TestTableOverrides(t *testing.T) {
	tbl := NewTable(map[model.JobType]Policy{
		model.JobTypeCapture: {MaxAttempts: 9, BaseDelay: time.Second, MaxDelay: time.Minute},
		model.JobTypeEmail:   {}, // ignored: MaxAttempts <= 0
	})

	require.Equal(t, 9, tbl.For(model.JobTypeCapture).MaxAttempts)
	assert.Equal(t, PolicyFor(model.JobTypeEmail), tbl.For(model.JobTypeEmail))
	assert.Equal(t, fallbackPolicy, tbl.For(model.JobType("mystery")))
}
