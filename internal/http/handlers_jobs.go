// Package httpx provides the HTTP API for submitting ingestion jobs and reading their evidence.
package httpx

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/target/swift-ingestion/internal/domain/model"
)

// JobAPI is the job surface the handlers need. *service.JobService implements it.
type JobAPI interface {
	Submit(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	Get(ctx context.Context, id string) (*model.Job, error)
	List(ctx context.Context, opts model.JobListOptions) ([]*model.Job, error)
	Stats(ctx context.Context, id string) (*model.JobStats, error)
}

// JobHandlers provides HTTP handlers for ingestion jobs.
type JobHandlers struct {
	Svc    JobAPI
	Logger *slog.Logger
}

// CreateJob validates, persists and enqueues a job. It answers 201 with the PENDING job.
func (h *JobHandlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Svc.Submit(r.Context(), &req)
	if err != nil {
		if job != nil {
			// Persisted but not queued; the caller gets the id to retry or inspect.
			h.Logger.WarnContext(r.Context(), "job created but not enqueued", "job_id", job.ID, "error", err)
			WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"error":   "enqueue_failed",
				"message": "job was created but could not be queued",
				"job":     job,
			})
			return
		}
		WriteServiceError(w, err)
		return
	}

	w.Header().Set("Location", "/api/ingestion/jobs/"+job.ID)
	WriteJSON(w, http.StatusCreated, job)
}

// ListJobs lists jobs newest first, filtered by status, source_type and case_id.
func (h *JobHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	opts, err := jobListOptions(r)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_query", Err: err})
		return
	}

	jobs, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if jobs == nil {
		jobs = []*model.Job{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":   jobs,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

func jobListOptions(r *http.Request) (model.JobListOptions, error) {
	var opts model.JobListOptions
	q := r.URL.Query()

	if v := q.Get("status"); v != "" {
		status := model.JobStatus(v)
		if !status.Valid() {
			return opts, fmt.Errorf("invalid status %q", v)
		}
		opts.Status = &status
	}
	if v := q.Get("source_type"); v != "" {
		var st model.SourceType
		if err := st.UnmarshalText([]byte(v)); err != nil {
			return opts, err
		}
		opts.SourceType = &st
	}
	if v := q.Get("case_id"); v != "" {
		opts.CaseID = &v
	}
	opts.Limit, opts.Offset = ParseLimitOffset(r, DefaultListLimit, MaxListLimit)
	return opts, nil
}

// GetJob returns one job.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	job, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Stats returns the statistics view for one job.
func (h *JobHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	stats, err := h.Svc.Stats(r.Context(), id)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}
