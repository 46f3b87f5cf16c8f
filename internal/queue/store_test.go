package queue_test

import (
	"context"
	"testing"
	"time"

	"lectern/internal/queue"
	"lectern/internal/testsupport"
)

func TestNewJobRoundTrip(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	job, err := store.NewJob(ctx, "https://example.com/watch?v=abc", "alice", "fp-1", 90)
	if err != nil {
		t.Fatalf("NewJob: %v", err)
	}
	if job.ID == "" {
		t.Fatal("expected generated job id")
	}
	if job.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", job.Status)
	}
	if job.ProgressPercent != 0 {
		t.Fatalf("expected zero progress, got %v", job.ProgressPercent)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched == nil {
		t.Fatal("expected stored job")
	}
	if fetched.InputURL != job.InputURL || fetched.Requester != "alice" || fetched.Fingerprint != "fp-1" {
		t.Fatalf("round trip mismatch: %+v", fetched)
	}
	if fetched.EstimatedSeconds != 90 {
		t.Fatalf("expected estimate 90, got %d", fetched.EstimatedSeconds)
	}
}

func TestGetByIDUnknownReturnsNil(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	job, err := store.GetByID(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job != nil {
		t.Fatalf("expected nil job, got %+v", job)
	}
}

func TestUpdatePersistsTransitions(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "https://example.com/a", "fp-a")

	job.Status = queue.StatusRunning
	job.SetStage("transcribe")
	job.ProgressPercent = 20
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != queue.StatusRunning || fetched.CurrentStage != "transcribe" {
		t.Fatalf("unexpected job state: %+v", fetched)
	}
	if fetched.ProgressPercent != 20 {
		t.Fatalf("expected progress 20, got %v", fetched.ProgressPercent)
	}

	fetched.SetCompleted(`{"transcript":"done"}`)
	if err := store.Update(ctx, fetched); err != nil {
		t.Fatalf("Update completed: %v", err)
	}
	final, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if final.Status != queue.StatusCompleted || final.ProgressPercent != 100 {
		t.Fatalf("unexpected completed state: %+v", final)
	}
	if final.CompletedAt == nil {
		t.Fatal("expected completion timestamp")
	}
	if final.ResultJSON == "" {
		t.Fatal("expected result payload")
	}
}

func TestSetFailedFreezesProgress(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	job := testsupport.NewJob(t, store, "https://example.com/b", "fp-b")

	job.Status = queue.StatusRunning
	job.ProgressPercent = 60
	job.SetFailed("transcription quota exhausted")
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	fetched, err := store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if fetched.Status != queue.StatusFailed {
		t.Fatalf("expected failed status, got %s", fetched.Status)
	}
	if fetched.ProgressPercent != 60 {
		t.Fatalf("expected frozen progress 60, got %v", fetched.ProgressPercent)
	}
	if fetched.ErrorDetail != "transcription quota exhausted" {
		t.Fatalf("unexpected error detail %q", fetched.ErrorDetail)
	}
}

func TestListFiltersByStatus(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.NewJob(t, store, "https://example.com/1", "fp-1")
	second := testsupport.NewJob(t, store, "https://example.com/2", "fp-2")
	second.Status = queue.StatusRunning
	if err := store.Update(ctx, second); err != nil {
		t.Fatalf("Update: %v", err)
	}

	pending, err := store.List(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("List pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != first.ID {
		t.Fatalf("unexpected pending set: %+v", pending)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(all))
	}
}

func TestNextPendingReturnsOldest(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	first := testsupport.NewJob(t, store, "https://example.com/old", "fp-old")
	time.Sleep(5 * time.Millisecond)
	testsupport.NewJob(t, store, "https://example.com/new", "fp-new")

	next, err := store.NextPending(ctx)
	if err != nil {
		t.Fatalf("NextPending: %v", err)
	}
	if next == nil || next.ID != first.ID {
		t.Fatalf("expected oldest pending job, got %+v", next)
	}
}

func TestFailRunningReclaimsOrphans(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	running := testsupport.NewJob(t, store, "https://example.com/run", "fp-run")
	running.Status = queue.StatusRunning
	if err := store.Update(ctx, running); err != nil {
		t.Fatalf("Update: %v", err)
	}
	pending := testsupport.NewJob(t, store, "https://example.com/wait", "fp-wait")

	count, err := store.FailRunning(ctx, queue.DaemonStopReason)
	if err != nil {
		t.Fatalf("FailRunning: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reclaimed job, got %d", count)
	}

	reclaimed, err := store.GetByID(ctx, running.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if reclaimed.Status != queue.StatusFailed || reclaimed.ErrorDetail != queue.DaemonStopReason {
		t.Fatalf("unexpected reclaimed state: %+v", reclaimed)
	}

	untouched, err := store.GetByID(ctx, pending.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if untouched.Status != queue.StatusPending {
		t.Fatalf("pending job should be untouched, got %s", untouched.Status)
	}
}

func TestHealthCountsByStatus(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	testsupport.NewJob(t, store, "https://example.com/p", "fp-p")
	done := testsupport.NewJob(t, store, "https://example.com/c", "fp-c")
	done.SetCompleted("{}")
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update: %v", err)
	}
	failed := testsupport.NewJob(t, store, "https://example.com/f", "fp-f")
	failed.SetFailed("boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 3 || health.Pending != 1 || health.Completed != 1 || health.Failed != 1 {
		t.Fatalf("unexpected health summary: %+v", health)
	}
}

func TestClearCompletedAndFailed(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()

	done := testsupport.NewJob(t, store, "https://example.com/c", "fp-c")
	done.SetCompleted("{}")
	if err := store.Update(ctx, done); err != nil {
		t.Fatalf("Update: %v", err)
	}
	failed := testsupport.NewJob(t, store, "https://example.com/f", "fp-f")
	failed.SetFailed("boom")
	if err := store.Update(ctx, failed); err != nil {
		t.Fatalf("Update: %v", err)
	}
	testsupport.NewJob(t, store, "https://example.com/p", "fp-p")

	if count, err := store.ClearCompleted(ctx); err != nil || count != 1 {
		t.Fatalf("ClearCompleted: count=%d err=%v", count, err)
	}
	if count, err := store.ClearFailed(ctx); err != nil || count != 1 {
		t.Fatalf("ClearFailed: count=%d err=%v", count, err)
	}

	remaining, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Status != queue.StatusPending {
		t.Fatalf("unexpected remaining jobs: %+v", remaining)
	}
}
