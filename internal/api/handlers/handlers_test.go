package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dhruvpathak/finimport/internal/domain"
	"github.com/dhruvpathak/finimport/internal/jobs"
	"github.com/dhruvpathak/finimport/internal/jobs/inmemory"
	"github.com/dhruvpathak/finimport/internal/pipeline"
)

const sampleCSV = "Date,Description,Amount\\n01/02/2024,SWIGGY BANGALORE,-450\\n02/02/2024,SALARY FEB,55000"

func testParser() *pipeline.Parser {
	return pipeline.New(pipeline.Config{Logger: zerolog.Nop()})
}

func TestParseEndpoint(t *testing.T) {
	h := NewParseHandler(testParser(), zerolog.Nop())

	body := `{"content": "` + sampleCSV + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/parse", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Parse(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var result domain.ParseResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("response is not a ParseResult: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected a successful parse, errors: %v", result.Errors)
	}
	if len(result.Transactions) != 2 {
		t.Errorf("expected 2 transactions, got %d", len(result.Transactions))
	}
}

func TestParseEndpointStructuralFailureIsStill200(t *testing.T) {
	h := NewParseHandler(testParser(), zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/parse", strings.NewReader(`{"content": "not a statement at all"}`))
	rec := httptest.NewRecorder()

	h.Parse(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var result domain.ParseResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("response is not a ParseResult: %v", err)
	}
	if result.Success {
		t.Error("expected success=false for an unrecognizable statement")
	}
	if len(result.Errors) == 0 {
		t.Error("expected the failure reported in errors")
	}
}

func TestParseEndpointBadRequests(t *testing.T) {
	h := NewParseHandler(testParser(), zerolog.Nop())

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{"},
		{"missing content", `{"filename": "x.csv"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/parse", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.Parse(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestImportsEndpointEnqueues(t *testing.T) {
	store := inmemory.NewStore()
	queue := inmemory.NewQueue(10, 1, store)
	defer queue.Close()

	h := NewImportsHandler(queue, zerolog.Nop())

	body := `{"content": "` + sampleCSV + `", "filename": "feb.csv"}`
	req := httptest.NewRequest(http.MethodPost, "/api/imports", strings.NewReader(body))
	rec := httptest.NewRecorder()

	h.Create(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if resp["job_id"] == "" {
		t.Fatal("response missing job_id")
	}

	job, err := store.GetJob(req.Context(), resp["job_id"])
	if err != nil {
		t.Fatalf("enqueued job not in store: %v", err)
	}
	if job.Status != jobs.JobStatusPending {
		t.Errorf("job status = %s, want pending", job.Status)
	}
	if job.MaxRetries != 2 {
		t.Errorf("job MaxRetries = %d, want 2", job.MaxRetries)
	}
}

func TestImportsEndpointRequiresSource(t *testing.T) {
	queue := inmemory.NewQueue(1, 1, inmemory.NewStore())
	defer queue.Close()
	h := NewImportsHandler(queue, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/imports", strings.NewReader(`{"filename": "x.csv"}`))
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestJobsEndpoints(t *testing.T) {
	store := inmemory.NewStore()
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	_ = store.SaveJob(ctx, &jobs.ImportJob{JobID: "job-1", Status: jobs.JobStatusCompleted})

	h := NewJobsHandler(store, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs/job-1", nil)
	rec := httptest.NewRecorder()
	h.Get(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("Get status = %d, want 200", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/jobs/missing", nil)
	rec = httptest.NewRecorder()
	h.Get(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Get missing status = %d, want 404", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/jobs?status=completed", nil)
	rec = httptest.NewRecorder()
	h.List(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("List status = %d, want 200", rec.Code)
	}
	var resp struct {
		Jobs  []*jobs.ImportJob `json:"jobs"`
		Count int               `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad list body: %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("count = %d, want 1", resp.Count)
	}
}
