// Package retry decides whether failed jobs are retried and how long to wait
// between attempts. It is pure policy: no state, no I/O.
package retry

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/leadforge/leadforge/internal/domain/model"
)

// Policy holds the per-job-type retry configuration.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter spreads retry times by up to ±20% to avoid thundering-herd
	// retries when many jobs fail at once.
	Jitter bool
}

// Decision captures the outcome of a retry evaluation.
type Decision struct {
	Retry  bool
	Reason string
}

const (
	// ReasonExhausted indicates the attempt ceiling was reached.
	ReasonExhausted = "attempts exhausted"
	// ReasonTerminal indicates the error is not worth retrying.
	ReasonTerminal = "terminal error"
	// ReasonRetryable indicates a retry was granted.
	ReasonRetryable = "retryable error"
)

// terminalMarkers are substrings of error messages that indicate malformed
// input or misconfiguration. Retrying these wastes capacity and pollutes the
// backlog, so they fail on the first attempt.
var terminalMarkers = []string{
	"validation",
	"invalid",
	"malformed",
	"not found",
	"unauthorized",
	"forbidden",
	"permission denied",
	"no handler",
}

// Decide evaluates whether a job that has already consumed attemptsSoFar
// executions should run again after failing with errMsg.
func Decide(p Policy, errMsg string, attemptsSoFar int) Decision {
	if attemptsSoFar >= p.MaxAttempts {
		return Decision{Retry: false, Reason: ReasonExhausted}
	}
	if Terminal(errMsg) {
		return Decision{Retry: false, Reason: ReasonTerminal}
	}
	return Decision{Retry: true, Reason: ReasonRetryable}
}

// Terminal reports whether the error message matches a known-terminal category.
func Terminal(errMsg string) bool {
	msg := strings.ToLower(errMsg)
	for _, marker := range terminalMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// NextDelay computes the backoff before the given attempt retries.
// attempt is 1-based: the delay after the first failed execution uses attempt 1.
// Growth is exponential from BaseDelay, capped at MaxDelay, optionally jittered.
func NextDelay(p Policy, attempt int) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = time.Second
	}
	capDelay := p.MaxDelay
	if capDelay <= 0 {
		capDelay = 30 * time.Second
	}

	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= capDelay {
			delay = capDelay
			break
		}
	}
	if delay > capDelay {
		delay = capDelay
	}

	if p.Jitter {
		delay = jittered(delay)
	}
	return delay
}

// jittered spreads a delay uniformly within ±20% of its value.
func jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	spread := int64(d) / 5
	if spread == 0 {
		return d
	}
	offset := rand.Int64N(2*spread+1) - spread
	return time.Duration(int64(d) + offset)
}

// defaultPolicies maps each job type to its retry behaviour. Email and
// followup back off hard because the mail provider rate limits; capture and
// deploy see transient browser/network flakiness and recover quickly.
var defaultPolicies = map[model.JobType]Policy{
	model.JobTypeDiscover: {MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second, Jitter: true},
	model.JobTypeCapture:  {MaxAttempts: 3, BaseDelay: 5 * time.Second, MaxDelay: time.Minute, Jitter: true},
	model.JobTypeGenerate: {MaxAttempts: 2, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second, Jitter: true},
	model.JobTypeDeploy:   {MaxAttempts: 3, BaseDelay: 5 * time.Second, MaxDelay: time.Minute, Jitter: true},
	model.JobTypeEmail:    {MaxAttempts: 5, BaseDelay: 30 * time.Second, MaxDelay: 10 * time.Minute, Jitter: true},
	model.JobTypeFollowup: {MaxAttempts: 5, BaseDelay: 30 * time.Second, MaxDelay: 10 * time.Minute, Jitter: true},
	model.JobTypeScore:    {MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second, Jitter: true},
}

// fallbackPolicy covers job types without an explicit entry.
var fallbackPolicy = Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 30 * time.Second, Jitter: true}

// PolicyFor returns the retry policy for the given job type.
func PolicyFor(jobType model.JobType) Policy {
	if p, ok := defaultPolicies[jobType]; ok {
		return p
	}
	return fallbackPolicy
}

// Table is an immutable set of per-type policies, used to override defaults
// from configuration at construction time.
type Table struct {
	policies map[model.JobType]Policy
}

// NewTable builds a policy table starting from the defaults and applying overrides.
func NewTable(overrides map[model.JobType]Policy) *Table {
	policies := make(map[model.JobType]Policy, len(defaultPolicies))
	for jt, p := range defaultPolicies {
		policies[jt] = p
	}
	for jt, p := range overrides {
		if p.MaxAttempts <= 0 {
			continue
		}
		policies[jt] = p
	}
	return &Table{policies: policies}
}

// For returns the policy for the given job type.
func (t *Table) For(jobType model.JobType) Policy {
	if t == nil {
		return PolicyFor(jobType)
	}
	if p, ok := t.policies[jobType]; ok {
		return p
	}
	return fallbackPolicy
}
