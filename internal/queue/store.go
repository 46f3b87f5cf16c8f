package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"lectern/internal/storage"
)

// Store manages processing job persistence. The pipeline orchestrator is the
// only writer; CLI surfaces read through the same store.
type Store struct {
	db *storage.DB
}

// NewStore wraps the shared database handle.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

const jobColumns = "id, input_url, requester, fingerprint, status, current_stage, progress_percent, error_detail, from_cache, estimated_seconds, result_json, created_at, updated_at, completed_at"

// NewJob inserts a pending job for a submitted URL and returns the stored row.
func (s *Store) NewJob(ctx context.Context, inputURL, requester, fingerprint string, estimatedSeconds int) (*Job, error) {
	if inputURL == "" {
		return nil, errors.New("input url is required")
	}
	if fingerprint == "" {
		return nil, errors.New("fingerprint is required")
	}
	id := uuid.NewString()
	timestamp := storage.FormatTime(time.Now())

	if _, err := s.db.ExecRetry(
		ctx,
		`INSERT INTO jobs (
            id, input_url, requester, fingerprint, status, progress_percent,
            from_cache, estimated_seconds, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		inputURL,
		storage.NullString(requester),
		fingerprint,
		StatusPending,
		0.0,
		0,
		estimatedSeconds,
		timestamp,
		timestamp,
	); err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. A nil job means the id is unknown.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	if err := s.db.Exec(
		ctx,
		`UPDATE jobs
         SET status = ?, current_stage = ?, progress_percent = ?, error_detail = ?,
             from_cache = ?, estimated_seconds = ?, result_json = ?, updated_at = ?, completed_at = ?
         WHERE id = ?`,
		job.Status,
		storage.NullString(job.CurrentStage),
		job.ProgressPercent,
		storage.NullString(job.ErrorDetail),
		storage.BoolToInt(job.FromCache),
		job.EstimatedSeconds,
		storage.NullString(job.ResultJSON),
		storage.FormatTime(job.UpdatedAt),
		storage.NullTime(job.CompletedAt),
		job.ID,
	); err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// List returns jobs filtered by status set (or all jobs when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.db.Query(ctx, baseQuery+orderClause)
	} else {
		placeholders := storage.Placeholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.db.Query(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// NextPending returns the oldest pending job, or nil when the queue is idle.
func (s *Store) NextPending(ctx context.Context) (*Job, error) {
	row := s.db.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at LIMIT 1`, StatusPending)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// FailRunning marks every running job failed with the supplied reason.
// Called on daemon startup to reclaim jobs orphaned by a crash.
func (s *Store) FailRunning(ctx context.Context, reason string) (int64, error) {
	now := storage.FormatTime(time.Now())
	res, err := s.db.ExecRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_detail = ?, updated_at = ?, completed_at = ? WHERE status = ?`,
		StatusFailed,
		reason,
		now,
		now,
		StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("fail running jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes only completed jobs.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.db.ExecRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes only failed jobs.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.db.ExecRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Health returns aggregated counts per lifecycle state.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	var summary HealthSummary
	rows, err := s.db.Query(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return summary, fmt.Errorf("job health: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status Status
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return summary, err
		}
		summary.Total += count
		switch status {
		case StatusPending:
			summary.Pending = count
		case StatusRunning:
			summary.Running = count
		case StatusCompleted:
			summary.Completed = count
		case StatusFailed:
			summary.Failed = count
		}
	}
	return summary, rows.Err()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		inputURL     string
		requester    sql.NullString
		fingerprint  string
		statusStr    string
		currentStage sql.NullString
		progress     sql.NullFloat64
		errorDetail  sql.NullString
		fromCache    sql.NullInt64
		estimated    sql.NullInt64
		resultJSON   sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		completedRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&inputURL,
		&requester,
		&fingerprint,
		&statusStr,
		&currentStage,
		&progress,
		&errorDetail,
		&fromCache,
		&estimated,
		&resultJSON,
		&createdRaw,
		&updatedRaw,
		&completedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:               id,
		InputURL:         inputURL,
		Requester:        requester.String,
		Fingerprint:      fingerprint,
		Status:           Status(statusStr),
		CurrentStage:     currentStage.String,
		ProgressPercent:  progress.Float64,
		ErrorDetail:      errorDetail.String,
		EstimatedSeconds: int(estimated.Int64),
		ResultJSON:       resultJSON.String,
	}
	if fromCache.Valid {
		job.FromCache = fromCache.Int64 != 0
	}
	if created, err := storage.ParseTime(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := storage.ParseTime(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if completedRaw.Valid {
		if completed, err := storage.ParseTime(completedRaw.String); err == nil {
			job.CompletedAt = &completed
		}
	}
	return job, nil
}
