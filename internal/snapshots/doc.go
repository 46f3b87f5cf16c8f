// Package snapshots keeps a small denormalized view of job status for fast
// polling reads. The orchestrator refreshes a snapshot after every durable
// state change; readers fall back to the database when a snapshot is absent.
package snapshots
