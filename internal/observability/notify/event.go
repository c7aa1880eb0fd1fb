// Package notify defines the failure notification payload and the sink contract
// implemented by the Slack and PagerDuty clients.
package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityCritical = "critical"
	SeverityError    = "error"
	SeverityWarning  = "warning"
)

// JobFailurePayload is what every sink receives when an ingestion job ends FAILED.
type JobFailurePayload struct {
	JobID      string
	SourceType string
	CaseID     string
	// Stage is where the run broke: configure, connect, fetch, finalize or reaper.
	Stage      string
	Error      string
	ErrorClass string
	Severity   string
	OccurredAt time.Time

	TotalItems      int
	SuccessfulItems int
	FailedItems     int

	Metadata map[string]string
}

// Sink describes a destination capable of consuming job failure notifications.
type Sink interface {
	SendJobFailure(ctx context.Context, payload JobFailurePayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload JobFailurePayload) error

// SendJobFailure implements the Sink interface.
func (f SinkFunc) SendJobFailure(ctx context.Context, payload JobFailurePayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
