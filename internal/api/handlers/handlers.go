// Package handlers implements the import API endpoints.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dhruvpathak/finimport/internal/api/middleware"
	"github.com/dhruvpathak/finimport/internal/domain"
	"github.com/dhruvpathak/finimport/internal/jobs"
	"github.com/dhruvpathak/finimport/internal/pipeline"
)

// parseRequest is the body of POST /api/parse and POST /api/imports.
// Content carries the statement text inline; GCSURI points at an uploaded
// blob instead. Options defaults to DefaultOptions when omitted.
type parseRequest struct {
	Content  string          `json:"content"`
	GCSURI   string          `json:"gcs_uri"`
	Filename string          `json:"filename"`
	Options  *domain.Options `json:"options"`
}

func (r *parseRequest) options() domain.Options {
	if r.Options == nil {
		return domain.DefaultOptions()
	}
	return *r.Options
}

// ParseHandler serves synchronous statement parsing.
type ParseHandler struct {
	parser *pipeline.Parser
	log    zerolog.Logger
}

// NewParseHandler creates a parse handler.
func NewParseHandler(parser *pipeline.Parser, log zerolog.Logger) *ParseHandler {
	return &ParseHandler{parser: parser, log: log}
}

// Parse handles POST /api/parse: run the pipeline inline and return the
// ParseResult. Structural failures still answer 200 with success=false so
// the client can show the collected errors; only bad requests are 4xx.
func (h *ParseHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Content == "" {
		middleware.WriteError(w, http.StatusBadRequest, "content is required")
		return
	}

	result, err := h.parser.Parse(r.Context(), req.Content, req.options())
	if err != nil {
		h.log.Warn().Err(err).Msg("Statement parse failed")
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// ImportsHandler serves asynchronous statement imports.
type ImportsHandler struct {
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewImportsHandler creates an imports handler.
func NewImportsHandler(publisher jobs.Publisher, log zerolog.Logger) *ImportsHandler {
	return &ImportsHandler{publisher: publisher, log: log}
}

// Create handles POST /api/imports: enqueue a job and return its ID.
func (h *ImportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Content == "" && req.GCSURI == "" {
		middleware.WriteError(w, http.StatusBadRequest, "content or gcs_uri is required")
		return
	}

	job := &jobs.ImportJob{
		Filename:   req.Filename,
		Content:    req.Content,
		GCSURI:     req.GCSURI,
		Options:    req.options(),
		MaxRetries: 2,
	}
	if err := h.publisher.PublishImport(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue import job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue import")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// JobsHandler serves job status queries.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{store: store, log: log}
}

// Get handles GET /api/jobs/{id}.
func (h *JobsHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	if jobID == "" || strings.Contains(jobID, "/") {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// List handles GET /api/jobs with optional status, limit and offset query
// parameters.
func (h *JobsHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			filter.Offset = n
		}
	}

	list, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  list,
		"count": len(list),
	})
}

// Health handles GET /health.
func Health(w http.ResponseWriter, _ *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
