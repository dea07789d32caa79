// Package metrics provides standardised metric emission helpers for the queue core.
package metrics

import (
	"time"

	obserrors "github.com/leadforge/leadforge/internal/observability/errors"
	"github.com/leadforge/leadforge/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// JobMetric captures details about a job lifecycle event for metric emission.
type JobMetric struct {
	JobType    string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits standardised job lifecycle metrics.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"job_type":   in.JobType,
		"transition": in.Transition,
		"result":     in.Result,
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("queue.job_transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("queue.job_duration", in.Duration, CloneTags(tags))
	}
}

// SweepMetric captures the outcome of one monitoring or cleanup check.
type SweepMetric struct {
	Check   string
	Count   int64
	Elapsed time.Duration
	Err     error
}

// EmitSweep emits standardised monitor sweep metrics.
func EmitSweep(sink statsd.Sink, in SweepMetric) {
	if sink == nil {
		return
	}

	result := ResultSuccess
	if in.Err != nil {
		result = ResultError
	} else if in.Count == 0 {
		result = ResultNoop
	}

	tags := map[string]string{
		"check":  in.Check,
		"result": result,
	}
	if in.Err != nil {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("monitor.check", 1, tags)
	if in.Count > 0 {
		sink.Count("monitor.items", in.Count, CloneTags(tags))
	}
	if in.Elapsed > 0 {
		sink.Timing("monitor.check_duration", in.Elapsed, CloneTags(tags))
	}
}

// CloneTags creates a shallow copy of a tag map, filtering out nothing.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
