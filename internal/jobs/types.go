// Package jobs defines the asynchronous statement-import job model and the
// publisher/consumer/store interfaces the API server wires together.
package jobs

import (
	"context"
	"time"

	"github.com/dhruvpathak/finimport/internal/domain"
)

// JobStatus represents the current status of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusRetrying  JobStatus = "retrying"
)

// ImportJob is a request to parse one statement asynchronously. Exactly one
// of Content or GCSURI supplies the statement; Filename selects the input
// format (CSV, XLSX or PDF) by extension.
type ImportJob struct {
	JobID    string `json:"job_id"`
	Filename string `json:"filename,omitempty"`

	Content string `json:"content,omitempty"`
	GCSURI  string `json:"gcs_uri,omitempty"`

	Options domain.Options `json:"options"`

	Status      JobStatus  `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`

	// Result is populated when the job completes.
	Result *domain.ParseResult `json:"result,omitempty"`
}

// JobHandler processes one import job.
type JobHandler func(ctx context.Context, job *ImportJob) error

// Publisher enqueues import jobs.
type Publisher interface {
	PublishImport(ctx context.Context, job *ImportJob) error
	Close() error
}

// Consumer drains the queue and hands jobs to a handler.
type Consumer interface {
	Start(ctx context.Context, handler JobHandler) error
	Stop(ctx context.Context) error
}

// JobFilter narrows ListJobs results.
type JobFilter struct {
	Status JobStatus
	Limit  int
	Offset int
}

// JobStore persists job state for status queries.
type JobStore interface {
	SaveJob(ctx context.Context, job *ImportJob) error
	GetJob(ctx context.Context, jobID string) (*ImportJob, error)
	ListJobs(ctx context.Context, filter JobFilter) ([]*ImportJob, error)
}
