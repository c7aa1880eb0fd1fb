package failurenotifier

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/swift-ingestion/internal/mocks"
	"github.com/target/swift-ingestion/internal/observability/notify"
)

type capture struct {
	mu       sync.Mutex
	received []notify.JobFailurePayload
}

func (c *capture) sink() notify.Sink {
	return notify.SinkFunc(func(_ context.Context, payload notify.JobFailurePayload) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.received = append(c.received, payload)
		return nil
	})
}

func TestServiceNotifyJobFailure(t *testing.T) {
	var c capture
	svc := NewService(Options{Sinks: []SinkRegistration{{Name: "capture", Sink: c.sink()}}})

	svc.NotifyJobFailure(context.Background(), notify.JobFailurePayload{JobID: "123", SourceType: "news_api"})

	require.Len(t, c.received, 1)
	assert.Equal(t, notify.SeverityCritical, c.received[0].Severity)
	assert.False(t, c.received[0].OccurredAt.IsZero())
}

func TestServiceDisabled(t *testing.T) {
	svc := NewService(Options{Sinks: []SinkRegistration{{Name: "nil"}}})
	assert.False(t, svc.Enabled())

	var nilSvc *Service
	assert.False(t, nilSvc.Enabled())
	nilSvc.NotifyJobFailure(context.Background(), notify.JobFailurePayload{JobID: "1"})
}

func TestServiceLogsErrors(t *testing.T) {
	var c capture
	svc := NewService(Options{
		Sinks: []SinkRegistration{
			{Name: "fail", Sink: notify.SinkFunc(func(context.Context, notify.JobFailurePayload) error {
				return errors.New("boom")
			})},
			{Name: "capture", Sink: c.sink()},
		},
	})

	svc.NotifyJobFailure(context.Background(), notify.JobFailurePayload{JobID: "123"})
	assert.Len(t, c.received, 1)
}

func TestServiceDedupesByJobID(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)

	gomock.InOrder(
		cache.EXPECT().SetIfNotExists(gomock.Any(), dedupeKeyPrefix+"job-1", []byte("1"), DefaultDedupeTTL).Return(true, nil),
		cache.EXPECT().SetIfNotExists(gomock.Any(), dedupeKeyPrefix+"job-1", []byte("1"), DefaultDedupeTTL).Return(false, nil),
	)

	var c capture
	svc := NewService(Options{Sinks: []SinkRegistration{{Name: "capture", Sink: c.sink()}}, Dedupe: cache})

	svc.NotifyJobFailure(context.Background(), notify.JobFailurePayload{JobID: "job-1"})
	svc.NotifyJobFailure(context.Background(), notify.JobFailurePayload{JobID: "job-1"})

	assert.Len(t, c.received, 1)
}

func TestServiceDedupeFailsOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	cache.EXPECT().SetIfNotExists(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("redis down"))

	var c capture
	svc := NewService(Options{Sinks: []SinkRegistration{{Name: "capture", Sink: c.sink()}}, Dedupe: cache})
	svc.NotifyJobFailure(context.Background(), notify.JobFailurePayload{JobID: "job-2"})

	assert.Len(t, c.received, 1)
}
