package resultcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lectern/internal/services"
	"lectern/internal/storage"
)

// Access types recorded in the cache access log.
const (
	AccessCreate = "create"
	AccessReuse  = "reuse"
)

// Entry is a cached processing result keyed by content fingerprint.
type Entry struct {
	Fingerprint    string
	ResultPayload  string
	AccessCount    int
	Active         bool
	CreatedAt      time.Time
	LastAccessedAt time.Time
	ExpiresAt      *time.Time
}

// Store persists completed results keyed by fingerprint. A zero TTL keeps
// entries until they are invalidated.
type Store struct {
	db  *storage.DB
	ttl time.Duration
}

// NewStore wraps the shared database handle.
func NewStore(db *storage.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl}
}

// Lookup returns the active, unexpired entry for a fingerprint. The boolean
// reports whether a usable entry was found.
func (s *Store) Lookup(ctx context.Context, fingerprint string) (*Entry, bool, error) {
	if fingerprint == "" {
		return nil, false, services.Wrap(services.ErrInvalidInput, "cache", "lookup", "fingerprint is empty", nil)
	}
	row := s.db.QueryRow(
		ctx,
		`SELECT fingerprint, result_payload, access_count, is_active, created_at, last_accessed_at, expires_at
         FROM result_cache WHERE fingerprint = ?`,
		fingerprint,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup cache entry: %w", err)
	}
	if !entry.Active {
		return nil, false, nil
	}
	if entry.ExpiresAt != nil && !entry.ExpiresAt.After(time.Now()) {
		return nil, false, nil
	}
	return entry, true, nil
}

// Store inserts a result for a fingerprint. The first writer wins; a
// concurrent or repeated store of the same fingerprint returns
// services.ErrCacheConflict and leaves the existing row untouched.
func (s *Store) Store(ctx context.Context, fingerprint, payload string) error {
	if fingerprint == "" {
		return services.Wrap(services.ErrInvalidInput, "cache", "store", "fingerprint is empty", nil)
	}
	if payload == "" {
		return services.Wrap(services.ErrInvalidInput, "cache", "store", "result payload is empty", nil)
	}
	now := time.Now()
	res, err := s.db.ExecRetry(
		ctx,
		`INSERT OR IGNORE INTO result_cache (
            fingerprint, result_payload, access_count, is_active, created_at, last_accessed_at, expires_at
        ) VALUES (?, ?, 0, 1, ?, ?, ?)`,
		fingerprint,
		payload,
		storage.FormatTime(now),
		storage.FormatTime(now),
		s.expiry(now),
	)
	if err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	if affected == 0 {
		return services.ErrCacheConflict
	}
	return nil
}

// RecordAccess bumps the entry's access counter and appends an audit row.
// accessType is AccessCreate for the first population and AccessReuse for
// every cache hit served to a later submission.
func (s *Store) RecordAccess(ctx context.Context, fingerprint, accessType, requester string) error {
	now := storage.FormatTime(time.Now())
	if _, err := s.db.ExecRetry(
		ctx,
		`UPDATE result_cache SET access_count = access_count + 1, last_accessed_at = ? WHERE fingerprint = ?`,
		now,
		fingerprint,
	); err != nil {
		return fmt.Errorf("record cache access: %w", err)
	}
	if _, err := s.db.ExecRetry(
		ctx,
		`INSERT INTO cache_access_log (fingerprint, access_type, requester, created_at) VALUES (?, ?, ?, ?)`,
		fingerprint,
		accessType,
		storage.NullString(requester),
		now,
	); err != nil {
		return fmt.Errorf("record cache access log: %w", err)
	}
	return nil
}

// Invalidate deactivates the entry so later lookups miss. The row and its
// access history are retained.
func (s *Store) Invalidate(ctx context.Context, fingerprint string) error {
	if _, err := s.db.ExecRetry(
		ctx,
		`UPDATE result_cache SET is_active = 0 WHERE fingerprint = ?`,
		fingerprint,
	); err != nil {
		return fmt.Errorf("invalidate cache entry: %w", err)
	}
	return nil
}

// PruneExpired deletes entries whose TTL has elapsed and returns the count.
func (s *Store) PruneExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecRetry(
		ctx,
		`DELETE FROM result_cache WHERE expires_at IS NOT NULL AND expires_at <= ?`,
		storage.FormatTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("prune cache: %w", err)
	}
	return res.RowsAffected()
}

// AccessCount returns the recorded access counter for a fingerprint,
// including hits on inactive entries.
func (s *Store) AccessCount(ctx context.Context, fingerprint string) (int, error) {
	var count int
	row := s.db.QueryRow(ctx, `SELECT access_count FROM result_cache WHERE fingerprint = ?`, fingerprint)
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("cache access count: %w", err)
	}
	return count, nil
}

func (s *Store) expiry(now time.Time) any {
	if s.ttl <= 0 {
		return nil
	}
	return storage.FormatTime(now.Add(s.ttl))
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry       Entry
		active      int
		createdRaw  string
		accessedRaw string
		expiresRaw  sql.NullString
	)
	if err := scanner.Scan(
		&entry.Fingerprint,
		&entry.ResultPayload,
		&entry.AccessCount,
		&active,
		&createdRaw,
		&accessedRaw,
		&expiresRaw,
	); err != nil {
		return nil, err
	}
	entry.Active = active != 0
	if created, err := storage.ParseTime(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	if accessed, err := storage.ParseTime(accessedRaw); err == nil {
		entry.LastAccessedAt = accessed
	}
	if expiresRaw.Valid {
		if expires, err := storage.ParseTime(expiresRaw.String); err == nil {
			entry.ExpiresAt = &expires
		}
	}
	return &entry, nil
}
