package httpx

import (
	"context"
	"net/http"
	"strconv"

	"github.com/target/swift-ingestion/internal/service"
)

// SourceAPI lists registered sources. *service.SourceCatalog implements it.
type SourceAPI interface {
	List(ctx context.Context, withHealth bool) ([]service.SourceInfo, error)
}

// SourceHandlers provides HTTP handlers for the source catalog.
type SourceHandlers struct {
	Svc SourceAPI
}

// List returns every registered source with its descriptor. Health is included
// unless health=false is passed.
func (h *SourceHandlers) List(w http.ResponseWriter, r *http.Request) {
	withHealth := true
	if v := r.URL.Query().Get("health"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			withHealth = b
		}
	}
	sources, err := h.Svc.List(r.Context(), withHealth)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"sources": sources})
}
