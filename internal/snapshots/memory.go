package snapshots

import (
	"context"
	"sync"
	"time"

	"lectern/internal/queue"
)

type memoryEntry struct {
	snapshot  queue.Snapshot
	expiresAt time.Time
}

// MemoryCache is the in-process snapshot backend. A zero TTL keeps snapshots
// until they are deleted.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

// NewMemoryCache builds an empty in-process snapshot cache.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

func (c *MemoryCache) Put(_ context.Context, snapshot queue.Snapshot) error {
	entry := memoryEntry{snapshot: snapshot}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}
	c.mu.Lock()
	c.entries[snapshot.JobID] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Get(_ context.Context, jobID string) (*queue.Snapshot, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[jobID]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && !entry.expiresAt.After(time.Now()) {
		c.mu.Lock()
		delete(c.entries, jobID)
		c.mu.Unlock()
		return nil, false, nil
	}
	snapshot := entry.snapshot
	return &snapshot, true, nil
}

func (c *MemoryCache) Delete(_ context.Context, jobID string) error {
	c.mu.Lock()
	delete(c.entries, jobID)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Close() error {
	return nil
}
