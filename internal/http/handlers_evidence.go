package httpx

import (
	"context"
	"net/http"

	"github.com/target/swift-ingestion/internal/domain/model"
	"github.com/target/swift-ingestion/internal/service"
)

// EvidenceAPI is the evidence surface the handlers need. *service.EvidenceService implements it.
type EvidenceAPI interface {
	Get(ctx context.Context, id string) (*model.Evidence, error)
	ListByJob(ctx context.Context, opts model.EvidenceListOptions) ([]*model.Evidence, error)
	Verify(ctx context.Context, id string) (service.Verification, error)
}

// EvidenceHandlers provides HTTP handlers for stored evidence.
type EvidenceHandlers struct {
	Svc EvidenceAPI
}

// ListByJob lists a job's evidence in ingestion order.
func (h *EvidenceHandlers) ListByJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	limit, offset := ParseLimitOffset(r, DefaultListLimit, MaxListLimit)
	list, err := h.Svc.ListByJob(r.Context(), model.EvidenceListOptions{JobID: id, Limit: limit, Offset: offset})
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if list == nil {
		list = []*model.Evidence{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"job_id":   id,
		"evidence": list,
		"limit":    limit,
		"offset":   offset,
	})
}

// GetEvidence returns one evidence record.
func (h *EvidenceHandlers) GetEvidence(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	ev, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, ev)
}

// Verify re-hashes the stored blob. A mismatch is still a 200 with valid=false.
func (h *EvidenceHandlers) Verify(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	v, err := h.Svc.Verify(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, v)
}
