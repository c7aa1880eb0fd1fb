package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// readinessTimeout bounds one /readyz evaluation across all checks.
const readinessTimeout = 3 * time.Second

// ReadinessCheck probes one dependency the ingestion pipeline needs (metadata
// database, task queue, evidence store). A nil error means ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type readinessBody struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// liveHandler reports that the process is serving. It never touches dependencies.
func liveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	WriteJSON(w, http.StatusOK, readinessBody{Status: "ok"})
}

// readyHandler runs every check in order and answers 503 when any fails.
// Check errors are logged, not returned to the caller.
func readyHandler(checks []ReadinessCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		body := readinessBody{Status: "ready", Checks: make(map[string]string, len(checks))}
		code := http.StatusOK
		for _, c := range checks {
			if err := c.Check(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed", "check", c.Name, "error", err)
				body.Checks[c.Name] = "unavailable"
				body.Status = "unavailable"
				code = http.StatusServiceUnavailable
				continue
			}
			body.Checks[c.Name] = "ok"
		}
		WriteJSON(w, code, body)
	}
}
