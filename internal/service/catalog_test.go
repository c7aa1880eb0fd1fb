package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/swift-ingestion/internal/connector"
	"github.com/target/swift-ingestion/internal/domain/model"
	"github.com/target/swift-ingestion/internal/mocks"
)

var catalogNow = time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

func newTestCatalog(t *testing.T, conn *stubConnector, resolver ConfigResolver, cache *mocks.MockCacheRepository) *SourceCatalog {
	t.Helper()
	opts := SourceCatalogOptions{
		Registry: registryWith(conn),
		Configs:  resolver,
		Logger:   slog.New(slog.DiscardHandler),
		Now:      func() time.Time { return catalogNow },
	}
	if cache != nil {
		opts.Cache = cache
	}
	c, err := NewSourceCatalog(opts)
	require.NoError(t, err)
	return c
}

func TestSourceCatalog_ListWithoutHealth(t *testing.T) {
	c := newTestCatalog(t, &stubConnector{}, keyedResolver(), nil)

	list, err := c.List(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.SourceTypeNewsAPI, list[0].SourceType)
	assert.Equal(t, "News", list[0].Descriptor.Name)
	assert.Nil(t, list[0].Health)
}

func TestSourceCatalog_HealthProbesAndCaches(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	conn := &stubConnector{}

	var stored []byte
	cache.EXPECT().Get(gomock.Any(), "swift:source-health:news_api").Return(nil, nil)
	cache.EXPECT().Set(gomock.Any(), "swift:source-health:news_api", gomock.Any(), DefaultHealthTTL).
		DoAndReturn(func(_ context.Context, _ string, v []byte, _ time.Duration) error {
			stored = v
			return nil
		})

	c := newTestCatalog(t, conn, keyedResolver(), cache)
	list, err := c.List(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Health)
	assert.True(t, list[0].Health.Healthy)
	assert.False(t, list[0].Health.Cached)
	assert.Equal(t, catalogNow, list[0].Health.CheckedAt)
	assert.Equal(t, 1, conn.closed)

	var decoded SourceHealth
	require.NoError(t, json.Unmarshal(stored, &decoded))
	assert.True(t, decoded.Healthy)
}

func TestSourceCatalog_HealthFromCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	conn := &stubConnector{}

	raw, err := json.Marshal(SourceHealth{Healthy: false, Reason: "health check failed", CheckedAt: catalogNow})
	require.NoError(t, err)
	cache.EXPECT().Get(gomock.Any(), "swift:source-health:news_api").Return(raw, nil)

	h, err := newTestCatalog(t, conn, keyedResolver(), cache).Health(context.Background(), model.SourceTypeNewsAPI)
	require.NoError(t, err)
	assert.True(t, h.Cached)
	assert.False(t, h.Healthy)
	assert.Equal(t, 0, conn.closed, "no probe on a cache hit")
}

func TestSourceCatalog_HealthUnconfiguredSource(t *testing.T) {
	c := newTestCatalog(t, &stubConnector{}, stubResolver{}, nil)

	h, err := c.Health(context.Background(), model.SourceTypeNewsAPI)
	require.NoError(t, err)
	assert.False(t, h.Healthy)
	assert.Equal(t, "News API key is required", h.Reason)
}

func TestSourceCatalog_HealthUnhealthyUpstream(t *testing.T) {
	c := newTestCatalog(t, &stubConnector{err: errors.New("down")}, keyedResolver(), nil)

	h, err := c.Health(context.Background(), model.SourceTypeNewsAPI)
	require.NoError(t, err)
	assert.False(t, h.Healthy)
	assert.Equal(t, "health check failed", h.Reason)
}

func TestSourceCatalog_HealthUnknownSource(t *testing.T) {
	c := newTestCatalog(t, &stubConnector{}, keyedResolver(), nil)

	_, err := c.Health(context.Background(), model.SourceTypeWebScraper)
	assert.True(t, connector.IsUnknownSource(err))
}

func TestSourceCatalog_CacheReadErrorProbes(t *testing.T) {
	ctrl := gomock.NewController(t)
	cache := mocks.NewMockCacheRepository(ctrl)
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, errors.New("redis down"))
	cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	h, err := newTestCatalog(t, &stubConnector{}, keyedResolver(), cache).Health(context.Background(), model.SourceTypeNewsAPI)
	require.NoError(t, err)
	assert.True(t, h.Healthy)
}
