package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/sis-schedule-scraper/internal/database"
	"github.com/maltedev/sis-schedule-scraper/internal/export"
	"github.com/maltedev/sis-schedule-scraper/internal/jobs"
	"github.com/maltedev/sis-schedule-scraper/internal/models"
)

// JobService is the part of jobs.Manager the handlers need.
type JobService interface {
	CreateJob(ctx context.Context, weeks, priority int) (*models.Job, error)
	GetJob(ctx context.Context, id string) (*models.Job, error)
	ListJobs(ctx context.Context) ([]*models.Job, error)
	Entries(ctx context.Context, id string) ([]models.ClassEntry, error)
}

type Handlers struct {
	jobs   JobService
	loc    *time.Location
	logger *slog.Logger
}

// NewHandlers serves job endpoints. loc is the zone used for calendar exports.
func NewHandlers(jobs JobService, loc *time.Location, logger *slog.Logger) *Handlers {
	if loc == nil {
		loc = time.Local
	}
	return &Handlers{
		jobs:   jobs,
		loc:    loc,
		logger: logger.With("component", "api"),
	}
}

// CreateJobRequest asks for a harvest of Weeks consecutive weeks.
// Queued jobs with a higher Priority run first.
type CreateJobRequest struct {
	Weeks    int `json:"weeks"`
	Priority int `json:"priority,omitempty"`
}

// CreateJob queues a new harvest job.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.jobs.CreateJob(r.Context(), req.Weeks, req.Priority)
	if err != nil {
		if errors.Is(err, jobs.ErrInvalidWeeks) {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create job", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	h.respondJSON(w, http.StatusAccepted, job)
}

func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.jobs.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		h.respondLookupError(w, err, "failed to get job")
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

func (h *Handlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	list, err := h.jobs.ListJobs(r.Context())
	if err != nil {
		h.logger.Error("failed to list jobs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	h.respondJSON(w, http.StatusOK, list)
}

// GetJobClasses exports the classes of a finished job as csv, ics or json.
func (h *Handlers) GetJobClasses(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	switch format {
	case export.FormatCSV, export.FormatICS, export.FormatNDJSON:
	default:
		h.respondError(w, http.StatusBadRequest, "format must be csv, ics or json")
		return
	}

	entries, err := h.jobs.Entries(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		h.respondLookupError(w, err, "failed to get classes")
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, entries, h.loc); err != nil {
		h.logger.Error("failed to export classes", "error", err, "format", format)
		h.respondError(w, http.StatusInternalServerError, "failed to export classes")
		return
	}

	w.Header().Set("Content-Type", export.ContentType(format))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handlers) respondLookupError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, database.ErrJobNotFound):
		h.respondError(w, http.StatusNotFound, "job not found")
	case errors.Is(err, jobs.ErrJobNotReady):
		h.respondError(w, http.StatusConflict, "job has not finished")
	default:
		h.logger.Error(message, "error", err)
		h.respondError(w, http.StatusInternalServerError, message)
	}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
