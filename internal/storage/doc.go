// Package storage owns the shared SQLite handle: opening, pragmas, schema
// creation and versioning, and retry behavior for SQLITE_BUSY. Component
// packages (queue, resultcache, quota, notify) own their tables and issue
// statements through the DB wrapper so busy retries apply uniformly.
package storage
