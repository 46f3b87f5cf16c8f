package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a processing job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// DaemonStopReason is the error detail set when jobs are failed because the
// daemon stopped while they were running.
const DaemonStopReason = "daemon stopped mid-flight"

var allStatuses = []Status{
	StatusPending,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// Terminal reports whether a status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job represents a processing job persisted in SQLite.
type Job struct {
	ID               string
	InputURL         string
	Requester        string
	Fingerprint      string
	Status           Status
	CurrentStage     string
	ProgressPercent  float64
	ErrorDetail      string
	FromCache        bool
	EstimatedSeconds int
	ResultJSON       string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

// SetStage moves the job onto a new active stage.
func (j *Job) SetStage(stage string) {
	j.Status = StatusRunning
	j.CurrentStage = stage
	j.ErrorDetail = ""
}

// SetFailed marks the job as failed. ProgressPercent is left untouched so it
// reflects the last completed stage.
func (j *Job) SetFailed(detail string) {
	now := time.Now().UTC()
	j.Status = StatusFailed
	j.ErrorDetail = detail
	j.CompletedAt = &now
}

// SetCompleted records the final payload and full progress.
func (j *Job) SetCompleted(resultJSON string) {
	now := time.Now().UTC()
	j.Status = StatusCompleted
	j.CurrentStage = ""
	j.ProgressPercent = 100
	j.ErrorDetail = ""
	j.ResultJSON = resultJSON
	j.CompletedAt = &now
}

// Snapshot is the read-path view of a job served to status polls.
type Snapshot struct {
	JobID            string  `json:"job_id"`
	Status           Status  `json:"status"`
	ProgressPercent  float64 `json:"progress_percent"`
	CurrentStage     string  `json:"current_stage,omitempty"`
	ErrorDetail      string  `json:"error_detail,omitempty"`
	FromCache        bool    `json:"from_cache"`
	EstimatedSeconds int     `json:"estimated_seconds,omitempty"`
}

// Snapshot derives the poll view from the job record.
func (j *Job) Snapshot() Snapshot {
	return Snapshot{
		JobID:            j.ID,
		Status:           j.Status,
		ProgressPercent:  j.ProgressPercent,
		CurrentStage:     j.CurrentStage,
		ErrorDetail:      j.ErrorDetail,
		FromCache:        j.FromCache,
		EstimatedSeconds: j.EstimatedSeconds,
	}
}

// HealthSummary describes aggregated job counts per key lifecycle states.
type HealthSummary struct {
	Total     int
	Pending   int
	Running   int
	Completed int
	Failed    int
}
