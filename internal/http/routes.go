package httpx

import (
	"log/slog"
	"net/http"
)

// RouterServices contains the services the router exposes.
type RouterServices struct {
	Jobs     JobAPI
	Evidence EvidenceAPI
	Sources  SourceAPI
	Logger   *slog.Logger

	// Readiness checks back GET /readyz; with none it always answers ready.
	Readiness []ReadinessCheck
}

// NewRouter registers the API routes. Routes whose service is nil are not registered.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", liveHandler)
	mux.HandleFunc("HEAD /healthz", liveHandler)
	mux.HandleFunc("GET /readyz", readyHandler(services.Readiness, logger))

	if services.Jobs != nil {
		registerJobRoutes(mux, &JobHandlers{Svc: services.Jobs, Logger: logger})
	}
	if services.Evidence != nil {
		registerEvidenceRoutes(mux, &EvidenceHandlers{Svc: services.Evidence})
	}
	if services.Sources != nil {
		mux.HandleFunc("GET /api/ingestion/sources", (&SourceHandlers{Svc: services.Sources}).List)
	}
	return mux
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) {
	mux.HandleFunc("POST /api/ingestion/jobs", h.CreateJob)
	mux.HandleFunc("GET /api/ingestion/jobs", h.ListJobs)
	mux.HandleFunc("GET /api/ingestion/jobs/{id}", h.GetJob)
	mux.HandleFunc("GET /api/ingestion/jobs/{id}/stats", h.Stats)
}

func registerEvidenceRoutes(mux *http.ServeMux, h *EvidenceHandlers) {
	mux.HandleFunc("GET /api/ingestion/jobs/{id}/evidence", h.ListByJob)
	mux.HandleFunc("GET /api/ingestion/evidence/{id}", h.GetEvidence)
	mux.HandleFunc("GET /api/ingestion/evidence/{id}/verify", h.Verify)
}

// Handler wraps the router with request logging and panic recovery.
func Handler(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := NewRouter(services)
	h = Logging(logger)(h)
	return Recover(logger)(h)
}
