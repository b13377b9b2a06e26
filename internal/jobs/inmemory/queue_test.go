package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmcabrera/pesowise/internal/jobs"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestQueueProcessesJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	var processed int32
	handler := func(ctx context.Context, job jobs.Job) error {
		atomic.AddInt32(&processed, 1)
		return nil
	}
	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job := &jobs.RefreshAnalysisJob{UserID: "user-1", Reason: "api"}
	if err := q.PublishRefreshAnalysis(context.Background(), job); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	waitFor(t, func() bool {
		saved, err := store.GetJob(context.Background(), job.JobID)
		return err == nil && saved.Status == jobs.JobStatusCompleted
	})
	if atomic.LoadInt32(&processed) != 1 {
		t.Errorf("processed = %d, want 1", processed)
	}
}

func TestQueueRetriesFailedJob(t *testing.T) {
	store := NewStore()
	q := NewQueue(10, store)
	defer q.Close()

	var attempts int32
	handler := func(ctx context.Context, job jobs.Job) error {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return errors.New("transient")
		}
		return nil
	}
	if err := q.Start(context.Background(), handler); err != nil {
		t.Fatalf("Start: %v", err)
	}

	job := &jobs.RefreshAnalysisJob{UserID: "user-1"}
	if err := q.PublishRefreshAnalysis(context.Background(), job); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	waitFor(t, func() bool {
		saved, err := store.GetJob(context.Background(), job.JobID)
		return err == nil && saved.Status == jobs.JobStatusCompleted
	})
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestPublishRequiresUserID(t *testing.T) {
	q := NewQueue(1, nil)
	defer q.Close()

	if err := q.PublishRefreshAnalysis(context.Background(), &jobs.RefreshAnalysisJob{}); err == nil {
		t.Error("publishing without a user ID should fail")
	}
}

func TestPublishAfterCloseFails(t *testing.T) {
	q := NewQueue(1, nil)
	if err := q.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	err := q.PublishRefreshAnalysis(context.Background(), &jobs.RefreshAnalysisJob{UserID: "u"})
	if err == nil {
		t.Error("publish after close should fail")
	}
}

func TestStoreListJobsFilters(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	store.SaveJob(ctx, &jobs.RefreshAnalysisJob{JobID: "1", UserID: "a", Status: jobs.JobStatusPending})
	store.SaveJob(ctx, &jobs.RefreshAnalysisJob{JobID: "2", UserID: "a", Status: jobs.JobStatusCompleted})
	store.SaveJob(ctx, &jobs.RefreshAnalysisJob{JobID: "3", UserID: "b", Status: jobs.JobStatusPending})

	byUser, err := store.ListJobs(ctx, jobs.JobFilter{UserID: "a"})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(byUser) != 2 {
		t.Errorf("user filter returned %d jobs, want 2", len(byUser))
	}

	byStatus, err := store.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusPending})
	if err != nil {
		t.Fatalf("ListJobs: %v", err)
	}
	if len(byStatus) != 2 {
		t.Errorf("status filter returned %d jobs, want 2", len(byStatus))
	}
}
