package testutil

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/target/swift-ingestion/internal/domain/model"
)

// JobBuilder builds model.Job values for tests.
type JobBuilder struct {
	job model.Job
}

// NewJob starts a PENDING news search job with a fresh id.
func NewJob() *JobBuilder {
	return &JobBuilder{job: model.Job{
		ID:         uuid.NewString(),
		SourceType: model.SourceTypeNewsAPI,
		Status:     model.JobStatusPending,
		Parameters: json.RawMessage(`{"query":"acme"}`),
		Metadata:   json.RawMessage(`{}`),
		CreatedAt:  TestTime(),
	}}
}

// WithID sets the job id.
func (b *JobBuilder) WithID(id string) *JobBuilder {
	b.job.ID = id
	return b
}

// WithSource sets the source type.
func (b *JobBuilder) WithSource(st model.SourceType) *JobBuilder {
	b.job.SourceType = st
	return b
}

// WithStatus sets the status.
func (b *JobBuilder) WithStatus(s model.JobStatus) *JobBuilder {
	b.job.Status = s
	return b
}

// WithParameters sets the parameters from a JSON string.
func (b *JobBuilder) WithParameters(raw string) *JobBuilder {
	b.job.Parameters = json.RawMessage(raw)
	return b
}

// Started marks the job RUNNING since at.
func (b *JobBuilder) Started(at time.Time) *JobBuilder {
	b.job.Status = model.JobStatusRunning
	b.job.StartedAt = &at
	return b
}

// Build returns a copy of the job.
func (b *JobBuilder) Build() *model.Job {
	j := b.job
	return &j
}

// TestTime returns a fixed time for testing.
func TestTime() time.Time {
	return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
}

// FixedTimeFunc returns a function that always returns t.
func FixedTimeFunc(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// StringPtr returns a pointer to the given string value.
func StringPtr(s string) *string { return &s }

// BoolPtr returns a pointer to the given bool value.
func BoolPtr(b bool) *bool { return &b }

// IntPtr returns a pointer to the given int value.
func IntPtr(i int) *int { return &i }
