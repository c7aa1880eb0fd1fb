package bootstrap

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/swift-ingestion/config"
	"github.com/target/swift-ingestion/internal/domain/model"
	"github.com/target/swift-ingestion/internal/service"
)

func TestErrorChannelCapacity(t *testing.T) {
	tests := []struct {
		name  string
		modes []config.ServiceMode
		want  int
	}{
		{name: "no services enabled", want: 0},
		{name: "http only", modes: []config.ServiceMode{config.ServiceModeHTTP}, want: 1},
		{
			name:  "worker and reaper",
			modes: []config.ServiceMode{config.ServiceModeIngestionWorker, config.ServiceModeReaper},
			want:  2,
		},
		{name: "all services enabled", modes: config.ValidServiceModes(), want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enabled := make(map[config.ServiceMode]bool, len(tt.modes))
			for _, mode := range tt.modes {
				enabled[mode] = true
			}
			assert.Equal(t, tt.want, errorChannelCapacity(enabled))
			assert.Equal(t, tt.want+1, errorChannelBufferSize(enabled))
		})
	}
}

func TestGetEnabledServices(t *testing.T) {
	cfg := &config.AppConfig{Services: "reaper, http,ingestion-worker"}
	assert.Equal(t, []string{"http", "ingestion-worker", "reaper"}, GetEnabledServices(cfg))

	assert.Empty(t, GetEnabledServices(&config.AppConfig{Services: "bogus"}))
	assert.Empty(t, GetEnabledServices(nil))
}

func TestValidateServiceConfig(t *testing.T) {
	require.Error(t, ValidateServiceConfig(nil))
	require.Error(t, ValidateServiceConfig(&config.AppConfig{Services: "mailer"}))
	require.Error(t, ValidateServiceConfig(&config.AppConfig{Services: ""}))

	cfg := &config.AppConfig{Services: "ingestion-worker"}
	cfg.ObjectStore.Driver = config.ObjectStoreDriverS3
	require.Error(t, ValidateServiceConfig(cfg), "s3 driver needs a bucket")

	cfg.ObjectStore.Bucket = "evidence"
	require.NoError(t, ValidateServiceConfig(cfg))
}

func testAppConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	cfg := &config.AppConfig{Services: "http"}
	cfg.ObjectStore.Driver = config.ObjectStoreDriverFilesystem
	cfg.ObjectStore.Root = t.TempDir()
	cfg.Ingestion.Timeout = 5 * time.Minute
	cfg.Ingestion.RetentionDays = 30
	cfg.Reaper.Grace = time.Minute
	cfg.Reaper.BatchSize = 10
	return cfg
}

func TestNewServices_WithoutRedis(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	services, err := NewServices(&ServiceDeps{
		Config: testAppConfig(t),
		DB:     db,
		Logger: slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)

	assert.NotNil(t, services.Jobs)
	assert.NotNil(t, services.Ingestion)
	assert.NotNil(t, services.Evidence)
	assert.NotNil(t, services.Reaper)
	assert.NotNil(t, services.Sources)
	assert.NotNil(t, services.ConnectorConfigs)
	assert.Nil(t, services.Queue)
	assert.Nil(t, services.Observability.Sink())

	_, err = services.Jobs.Submit(context.Background(), &model.CreateJobRequest{
		SourceType: model.SourceTypeNewsAPI,
		Parameters: []byte(`{"query":"acme"}`),
	})
	require.ErrorIs(t, err, service.ErrQueueUnavailable)

	sources, err := services.Sources.List(context.Background(), false)
	require.NoError(t, err)
	assert.NotEmpty(t, sources)

	rs := routerServices(services, nil)
	assert.NotNil(t, rs.Jobs)
	assert.NotNil(t, rs.Evidence)
	assert.NotNil(t, rs.Sources)

	require.Len(t, rs.Readiness, 2, "no task_queue check without redis")
	assert.Equal(t, "postgres", rs.Readiness[0].Name)
	assert.Equal(t, "object_store", rs.Readiness[1].Name)
	for _, c := range rs.Readiness {
		assert.NoError(t, c.Check(context.Background()), c.Name)
	}
}

func TestNewServices_RequiresDB(t *testing.T) {
	_, err := NewServices(&ServiceDeps{Config: testAppConfig(t)})
	require.Error(t, err)
	_, err = NewServices(nil)
	require.Error(t, err)
}

func TestRouterServices_SkipsMissing(t *testing.T) {
	rs := routerServices(ServiceContainer{}, nil)
	assert.Nil(t, rs.Jobs)
	assert.Nil(t, rs.Evidence)
	assert.Nil(t, rs.Sources)
}

func TestBuildFailureNotifier_Disabled(t *testing.T) {
	n := buildFailureNotifier(nil, config.ObservabilityNotificationsConfig{}, nil)
	require.NotNil(t, n)
}

func TestApplyConnectorsFile_NoFile(t *testing.T) {
	require.NoError(t, ApplyConnectorsFile(context.Background(), &config.AppConfig{}, nil, nil))
}
