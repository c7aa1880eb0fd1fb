// Package metrics emits the ingestion service's StatsD metrics.
package metrics

import (
	"maps"
	"time"

	obserrors "github.com/target/swift-ingestion/internal/observability/errors"
	"github.com/target/swift-ingestion/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Item outcomes.
const (
	OutcomeStored = "stored"
	OutcomeFailed = "failed"
)

// Metric names, relative to the client prefix.
const (
	NameJobTransition = "ingestion.job.transition"
	NameJobDuration   = "ingestion.job.duration"
	NameItems         = "ingestion.items"
	NameDequeued      = "ingestion.queue.dequeued"
	NameQueueDepth    = "ingestion.queue.depth"
	NameReaped        = "ingestion.reaper.failed_jobs"
)

// JobMetric captures details about a job lifecycle event for metric emission.
type JobMetric struct {
	SourceType string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobTransition emits the transition counter and, when a duration is known, its timing.
func EmitJobTransition(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"source_type": in.SourceType,
		"transition":  in.Transition,
		"result":      in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count(NameJobTransition, 1, tags)
	if in.Duration > 0 {
		sink.Timing(NameJobDuration, in.Duration, CloneTags(tags))
	}
}

// EmitItem counts one evidence item outcome.
func EmitItem(sink statsd.Sink, sourceType, outcome string) {
	if sink == nil {
		return
	}
	sink.Count(NameItems, 1, map[string]string{"source_type": sourceType, "outcome": outcome})
}

// EmitDequeued counts one task taken off the queue by a worker.
func EmitDequeued(sink statsd.Sink, worker string) {
	if sink == nil {
		return
	}
	sink.Count(NameDequeued, 1, map[string]string{"worker": worker})
}

// EmitQueueDepth reports queued and in-flight task counts.
func EmitQueueDepth(sink statsd.Sink, queued, inFlight int64) {
	if sink == nil {
		return
	}
	sink.Gauge(NameQueueDepth, float64(queued), map[string]string{"state": "queued"})
	sink.Gauge(NameQueueDepth, float64(inFlight), map[string]string{"state": "in_flight"})
}

// EmitReaped counts jobs failed by the reaper.
func EmitReaped(sink statsd.Sink, n int) {
	if sink == nil || n <= 0 {
		return
	}
	sink.Count(NameReaped, int64(n), nil)
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	return maps.Clone(src)
}
