// Package queue persists processing jobs and their lifecycle state. Jobs move
// pending -> running -> completed or failed; the orchestrator drives every
// transition and read surfaces consume the same rows.
package queue
