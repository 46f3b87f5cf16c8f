package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"lectern/internal/config"
	"lectern/internal/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.WorkDir = filepath.Join(base, "work")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	return &cfg
}

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testConfig(t)
	db, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	for _, table := range []string{"jobs", "result_cache", "cache_access_log", "usage_events", "notifications"} {
		var count int
		row := db.QueryRow(ctx, "SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?", table)
		if err := row.Scan(&count); err != nil {
			t.Fatalf("check table %s: %v", table, err)
		}
		if count != 1 {
			t.Fatalf("expected table %s to exist", table)
		}
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	cfg := testConfig(t)
	db, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	again, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	t.Cleanup(func() { again.Close() })
}

func TestPlaceholders(t *testing.T) {
	if got := storage.Placeholders(0); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if got := storage.Placeholders(3); got != "?,?,?" {
		t.Fatalf("unexpected placeholders: %q", got)
	}
}
