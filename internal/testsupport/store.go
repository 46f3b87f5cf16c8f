package testsupport

import (
	"context"
	"testing"

	"lectern/internal/config"
	"lectern/internal/queue"
	"lectern/internal/storage"
)

// MustOpenDB opens the shared database for tests and registers cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *storage.DB {
	t.Helper()

	db, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// MustOpenStore opens a queue.Store backed by a fresh database.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	return queue.NewStore(MustOpenDB(t, cfg))
}

// NewJob creates a pending job for tests using the provided store.
func NewJob(t testing.TB, store *queue.Store, inputURL, fingerprint string) *queue.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), inputURL, "", fingerprint, 0)
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}
