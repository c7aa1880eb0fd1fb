// Package job holds the pure ingestion job state machine.
package job

import (
	"fmt"

	"github.com/target/swift-ingestion/internal/domain/model"
)

// TransitionError reports a status change that the state machine does not define.
type TransitionError struct {
	From model.JobStatus
	To   model.JobStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid job status transition %s -> %s", e.From, e.To)
}

// ValidateTransition checks a single edge of PENDING -> RUNNING -> {SUCCESS, PARTIAL, FAILED, CANCELLED}.
// Cancellation is accepted from PENDING and RUNNING for external actors only.
func ValidateTransition(from, to model.JobStatus) error {
	if !from.Valid() || !to.Valid() {
		return &TransitionError{From: from, To: to}
	}
	switch from {
	case model.JobStatusPending:
		if to == model.JobStatusRunning || to == model.JobStatusCancelled {
			return nil
		}
	case model.JobStatusRunning:
		if to.Terminal() {
			return nil
		}
	case model.JobStatusSuccess, model.JobStatusFailed, model.JobStatusPartial, model.JobStatusCancelled:
	}
	return &TransitionError{From: from, To: to}
}

// FinalStatus computes the terminal status of a run that completed normally.
func FinalStatus(successful, failed int) model.JobStatus {
	switch {
	case failed == 0:
		return model.JobStatusSuccess
	case successful > 0:
		return model.JobStatusPartial
	default:
		return model.JobStatusFailed
	}
}

// Tally accumulates per-item outcomes for one run. Counts only grow.
type Tally struct {
	counts model.JobCounts
}

// Stored records a persisted item.
func (t *Tally) Stored() {
	t.counts.Total++
	t.counts.Successful++
}

// Failed records an item whose persistence failed.
func (t *Tally) Failed() {
	t.counts.Total++
	t.counts.Failed++
}

// Counts returns a snapshot of the counters.
func (t *Tally) Counts() model.JobCounts {
	return t.counts
}

// Final returns the terminal status implied by the counters.
func (t *Tally) Final() model.JobStatus {
	return FinalStatus(t.counts.Successful, t.counts.Failed)
}
