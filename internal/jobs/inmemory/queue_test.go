package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dhruvpathak/finimport/internal/jobs"
)

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.ImportJob {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case <-deadline:
			job, _ := store.GetJob(context.Background(), jobID)
			t.Fatalf("job never reached %s: %+v", want, job)
			return nil
		case <-time.After(10 * time.Millisecond):
			job, err := store.GetJob(context.Background(), jobID)
			if err == nil && job.Status == want {
				return job
			}
		}
	}
}

func TestQueueProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 2, store)
	defer q.Close()

	var processed atomic.Int32
	handler := func(ctx context.Context, job *jobs.ImportJob) error {
		processed.Add(1)
		return nil
	}
	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.ImportJob{Content: "Date,Description,Amount\n01/01/2024,X,-10"}
	if err := q.PublishImport(context.Background(), job); err != nil {
		t.Fatalf("PublishImport() error = %v", err)
	}
	if job.JobID == "" {
		t.Fatal("PublishImport must assign a job ID")
	}

	done := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	if done.StartedAt == nil || done.CompletedAt == nil {
		t.Error("completed job missing timestamps")
	}
	if processed.Load() != 1 {
		t.Errorf("handler ran %d times, want 1", processed.Load())
	}
}

func TestQueueRetriesThenFails(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, 1, store)
	defer q.Close()

	var attempts atomic.Int32
	handler := func(ctx context.Context, job *jobs.ImportJob) error {
		attempts.Add(1)
		return errors.New("statement fetch failed")
	}
	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	job := &jobs.ImportJob{Content: "x", MaxRetries: 1}
	if err := q.PublishImport(context.Background(), job); err != nil {
		t.Fatalf("PublishImport() error = %v", err)
	}

	failed := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	if attempts.Load() != 2 {
		t.Errorf("handler ran %d times, want 2 (initial + 1 retry)", attempts.Load())
	}
	if failed.Error == "" {
		t.Error("failed job must record the handler error")
	}
}

func TestQueueRejectsAfterClose(t *testing.T) {
	q := NewQueue(1, 1, NewStore())
	if err := q.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := q.PublishImport(context.Background(), &jobs.ImportJob{Content: "x"}); err == nil {
		t.Error("expected publish on a closed queue to fail")
	}
}

func TestStoreListJobs(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	for i, status := range []jobs.JobStatus{
		jobs.JobStatusCompleted, jobs.JobStatusFailed, jobs.JobStatusCompleted,
	} {
		job := &jobs.ImportJob{
			JobID:     string(rune('a' + i)),
			Status:    status,
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
		}
		if err := store.SaveJob(ctx, job); err != nil {
			t.Fatalf("SaveJob() error = %v", err)
		}
	}

	all, err := store.ListJobs(ctx, jobs.JobFilter{})
	if err != nil {
		t.Fatalf("ListJobs() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(all))
	}
	if !all[0].CreatedAt.After(all[1].CreatedAt) {
		t.Error("jobs must be listed newest first")
	}

	completed, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted})
	if err != nil {
		t.Fatalf("ListJobs(status) error = %v", err)
	}
	if len(completed) != 2 {
		t.Errorf("expected 2 completed jobs, got %d", len(completed))
	}

	paged, err := store.ListJobs(ctx, jobs.JobFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListJobs(paged) error = %v", err)
	}
	if len(paged) != 1 {
		t.Errorf("expected 1 job with limit=1, got %d", len(paged))
	}
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	job := &jobs.ImportJob{JobID: "j1", Status: jobs.JobStatusPending}
	if err := store.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() error = %v", err)
	}

	got, err := store.GetJob(ctx, "j1")
	if err != nil {
		t.Fatalf("GetJob() error = %v", err)
	}
	got.Status = jobs.JobStatusFailed

	again, _ := store.GetJob(ctx, "j1")
	if again.Status != jobs.JobStatusPending {
		t.Error("mutating a returned job must not affect the stored copy")
	}
}
