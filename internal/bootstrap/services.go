package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/swift-ingestion/config"
	"github.com/target/swift-ingestion/internal/connector/builtin"
	"github.com/target/swift-ingestion/internal/data"
	httpx "github.com/target/swift-ingestion/internal/http"
	"github.com/target/swift-ingestion/internal/observability/notify/pagerduty"
	"github.com/target/swift-ingestion/internal/observability/notify/slack"
	"github.com/target/swift-ingestion/internal/observability/statsd"
	"github.com/target/swift-ingestion/internal/service"
	"github.com/target/swift-ingestion/internal/service/failurenotifier"
	"github.com/target/swift-ingestion/internal/storage/objectstore"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs             *service.JobService
	Ingestion        *service.IngestionService
	Evidence         *service.EvidenceService
	Reaper           *service.ReaperService
	Sources          *service.SourceCatalog
	ConnectorConfigs *service.ConnectorConfigService
	Queue            *data.RedisTaskQueue
	Store            *objectstore.Store
	Observability    ObservabilityContainer

	// Readiness probes the dependencies above for GET /readyz.
	Readiness []httpx.ReadinessCheck
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// Sink returns the metrics sink, or nil when metrics are disabled.
//
//nolint:ireturn // callers take the statsd.Sink interface.
func (o ObservabilityContainer) Sink() statsd.Sink {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories holds the repositories backing service ports; no business rules here.
type serviceRepositories struct {
	jobs       *data.JobRepo
	evidence   *data.EvidenceRepo
	connectors *data.ConnectorConfigRepo
	cache      *data.RedisCacheRepo
	queue      *data.RedisTaskQueue
}

func buildObservability(
	logger *slog.Logger,
	cfg config.ObservabilityConfig,
	cache *data.RedisCacheRepo,
) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  cfg.Metrics.Prefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:     metricsSink,
		MetricsConfig:   cfg.Metrics,
		FailureNotifier: buildFailureNotifier(obsLogger, cfg.Notifications, cache),
		NotifierConfig:  cfg.Notifications,
	}
}

func buildRepositories(cfg *config.AppConfig, db *sql.DB, rdb redis.UniversalClient, logger *slog.Logger) (*serviceRepositories, error) {
	repoCfg := data.RepoConfig{Logger: logger}
	repos := &serviceRepositories{
		jobs:       data.NewJobRepo(db, repoCfg),
		evidence:   data.NewEvidenceRepo(db, repoCfg),
		connectors: data.NewConnectorConfigRepo(db, repoCfg),
	}
	if rdb == nil {
		return repos, nil
	}

	repos.cache = data.NewRedisCacheRepo(rdb)
	queue, err := data.NewRedisTaskQueue(data.RedisTaskQueueOptions{
		Client: rdb,
		Name:   cfg.Ingestion.QueueName,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create task queue: %w", err)
	}
	repos.queue = queue
	return repos, nil
}

// newObjectStore builds the evidence blob store for the configured driver.
func newObjectStore(cfg *config.AppConfig, logger *slog.Logger) (*objectstore.Store, error) {
	var (
		backend objectstore.Backend
		err     error
	)
	switch cfg.ObjectStore.Driver {
	case config.ObjectStoreDriverFilesystem:
		backend, err = objectstore.NewFilesystemBackend(cfg.ObjectStore.Root)
	default:
		backend, err = objectstore.NewS3Backend(objectstore.S3Config{
			Endpoint:  cfg.ObjectStore.Endpoint,
			AccessKey: cfg.ObjectStore.AccessKey,
			SecretKey: cfg.ObjectStore.SecretKey,
			Bucket:    cfg.ObjectStore.Bucket,
			Region:    cfg.ObjectStore.Region,
			UseSSL:    cfg.ObjectStore.UseSSL,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("create %s object store: %w", cfg.ObjectStore.Driver, err)
	}
	return objectstore.New(objectstore.Options{
		Backend:      backend,
		Logger:       logger,
		MaxSizeBytes: cfg.Ingestion.MaxFileSizeBytes(),
	})
}

// NewServices wires repositories, connectors and services from configuration.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	if deps.DB == nil {
		return ServiceContainer{}, errors.New("database is required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	repos, err := buildRepositories(cfg, deps.DB, deps.RedisClient, logger)
	if err != nil {
		return ServiceContainer{}, err
	}
	observability := buildObservability(logger, cfg.Observability, repos.cache)
	metrics := observability.Sink()

	store, err := newObjectStore(cfg, logger)
	if err != nil {
		return ServiceContainer{}, err
	}

	registry := builtin.NewRegistry()
	resolver := service.NewConnectorConfigResolver(service.ConnectorConfigResolverOptions{
		Repo:     repos.connectors,
		Registry: registry,
		Secrets: service.ConnectorSecrets{
			OpenCorporatesAPIKey: cfg.Connectors.OpenCorporatesAPIKey,
			NewsAPIKey:           cfg.Connectors.NewsAPIKey,
			ApifyAPIToken:        cfg.Connectors.ApifyAPIToken,
			OSINTActorID:         cfg.Connectors.OSINTActorID,
			BaseURLs:             cfg.Connectors.BaseURLs(),
		},
		DefaultRateLimit: cfg.Connectors.DefaultRateLimit,
		DefaultTimeout:   cfg.Connectors.DefaultTimeout,
		Logger:           logger,
	})

	jobOpts := service.JobServiceOptions{Repo: repos.jobs, Logger: logger}
	if repos.queue != nil {
		jobOpts.Queue = repos.queue
	}
	jobs, err := service.NewJobService(jobOpts)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create job service: %w", err)
	}

	evidence, err := service.NewEvidenceService(service.EvidenceServiceOptions{
		Repo:          repos.evidence,
		Store:         store,
		RetentionDays: cfg.Ingestion.RetentionDays,
		Logger:        logger,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create evidence service: %w", err)
	}

	ingestion, err := service.NewIngestionService(service.IngestionServiceOptions{
		Jobs:            repos.jobs,
		Registry:        registry,
		Configs:         resolver,
		Evidence:        evidence,
		Logger:          logger,
		Metrics:         metrics,
		FailureNotifier: observability.FailureNotifier,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create ingestion service: %w", err)
	}

	reaper, err := service.NewReaperService(service.ReaperServiceOptions{
		Repo:            repos.jobs,
		TimeLimit:       cfg.Ingestion.Timeout,
		Grace:           cfg.Reaper.Grace,
		BatchSize:       cfg.Reaper.BatchSize,
		Logger:          logger,
		Metrics:         metrics,
		FailureNotifier: observability.FailureNotifier,
	})
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create reaper service: %w", err)
	}

	catalogOpts := service.SourceCatalogOptions{
		Registry: registry,
		Configs:  resolver,
		Logger:   logger,
	}
	if repos.cache != nil {
		catalogOpts.Cache = repos.cache
	}
	sources, err := service.NewSourceCatalog(catalogOpts)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create source catalog: %w", err)
	}

	connectorConfigs, err := service.NewConnectorConfigService(repos.connectors, logger)
	if err != nil {
		return ServiceContainer{}, fmt.Errorf("create connector config service: %w", err)
	}

	return ServiceContainer{
		Jobs:             jobs,
		Ingestion:        ingestion,
		Evidence:         evidence,
		Reaper:           reaper,
		Sources:          sources,
		ConnectorConfigs: connectorConfigs,
		Queue:            repos.queue,
		Store:            store,
		Observability:    observability,
		Readiness:        readinessChecks(deps.DB, repos.queue, store),
	}, nil
}

// readinessChecks probes Postgres, the task queue (when Redis is configured) and the
// evidence object store.
func readinessChecks(db *sql.DB, queue *data.RedisTaskQueue, store *objectstore.Store) []httpx.ReadinessCheck {
	checks := []httpx.ReadinessCheck{{Name: "postgres", Check: db.PingContext}}
	if queue != nil {
		checks = append(checks, httpx.ReadinessCheck{Name: "task_queue", Check: func(ctx context.Context) error {
			_, _, err := queue.Depth(ctx)
			return err
		}})
	}
	return append(checks, httpx.ReadinessCheck{Name: "object_store", Check: store.Ready})
}

// ApplyConnectorsFile imports connector settings from CONNECTORS_FILE when set.
func ApplyConnectorsFile(ctx context.Context, cfg *config.AppConfig, svc *service.ConnectorConfigService, logger *slog.Logger) error {
	if cfg == nil || cfg.Connectors.File == "" || svc == nil {
		return nil
	}
	reqs, err := config.LoadConnectorsFile(cfg.Connectors.File)
	if err != nil {
		return err
	}
	saved, err := svc.Import(ctx, reqs)
	if err != nil {
		return fmt.Errorf("import connectors file: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "connector configs imported", "file", cfg.Connectors.File, "count", len(saved))
	}
	return nil
}

func buildFailureNotifier(
	logger *slog.Logger,
	cfg config.ObservabilityNotificationsConfig,
	cache *data.RedisCacheRepo,
) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{
			Logger: baseLogger.With("component", "failure_notifier"),
		})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:   cfg.Slack.WebhookURL,
			Channel:      cfg.Slack.Channel,
			Username:     cfg.Slack.Username,
			Timeout:      cfg.Timeout,
			RetryLimit:   cfg.RetryLimit,
			JobURLPrefix: cfg.Slack.JobURLPrefix,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "slack",
				Sink: client,
			})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "pagerduty",
				Sink: client,
			})
		}
	}

	opts := failurenotifier.Options{
		Logger:    baseLogger.With("component", "failure_notifier"),
		Sinks:     sinks,
		DedupeTTL: cfg.DedupeTTL,
	}
	if cache != nil {
		opts.Dedupe = cache
	}
	return failurenotifier.NewService(opts)
}
