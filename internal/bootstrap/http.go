package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/target/swift-ingestion/config"
	httpx "github.com/target/swift-ingestion/internal/http"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
	// ErrCh receives listen failures; optional.
	ErrCh chan<- error
}

// StartHTTPServer creates and starts the HTTP server.
// Returns the server instance for graceful shutdown.
func StartHTTPServer(cfg *HTTPServerConfig) *http.Server {
	if cfg == nil {
		return nil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	handler := httpx.Handler(routerServices(cfg.Services, logger))
	return startServer(serverOptions{
		logger:            logger,
		handler:           handler,
		addr:              appCfg.HTTP.Addr,
		readHeaderTimeout: appCfg.HTTP.ReadHeaderTimeout,
		errCh:             cfg.ErrCh,
	})
}

// routerServices adapts the container to the router. Nil services stay untyped nil
// so their routes are not registered.
func routerServices(svc ServiceContainer, logger *slog.Logger) httpx.RouterServices {
	rs := httpx.RouterServices{Logger: logger, Readiness: svc.Readiness}
	if svc.Jobs != nil {
		rs.Jobs = svc.Jobs
	}
	if svc.Evidence != nil {
		rs.Evidence = svc.Evidence
	}
	if svc.Sources != nil {
		rs.Sources = svc.Sources
	}
	return rs
}

type serverOptions struct {
	logger            *slog.Logger
	handler           http.Handler
	addr              string
	readHeaderTimeout time.Duration
	errCh             chan<- error
}

func startServer(opts serverOptions) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	addr := opts.addr
	if addr == "" {
		addr = ":8080"
	}
	readHeader := opts.readHeaderTimeout
	if readHeader <= 0 {
		readHeader = 10 * time.Second
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           opts.handler,
		ReadHeaderTimeout: readHeader,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		opts.logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			opts.logger.Error("HTTP server failed", "error", err)
			if opts.errCh != nil {
				select {
				case opts.errCh <- fmt.Errorf("http server: %w", err):
				default:
				}
			}
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.Server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}
