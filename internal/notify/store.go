package notify

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lectern/internal/config"
	"lectern/internal/storage"
)

// Delivery states for queued notifications.
const (
	StatusPending = "pending"
	StatusSending = "sending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Notification is one queued outbound message.
type Notification struct {
	ID          int64
	Recipient   string
	TemplateKey string
	VarsHash    string
	Subject     string
	Body        string
	Priority    int
	Status      string
	Attempts    int
	MaxAttempts int
	LastError   string
	ScheduledAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Store persists the durable notification queue. Enqueue renders and
// deduplicates; the drainer owns every outcome transition.
type Store struct {
	db          *storage.DB
	registry    *Registry
	maxAttempts int
	dedupWindow time.Duration
}

// NewStore wraps the shared database handle.
func NewStore(db *storage.DB, registry *Registry, cfg config.Notifications) *Store {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Store{
		db:          db,
		registry:    registry,
		maxAttempts: maxAttempts,
		dedupWindow: time.Duration(cfg.DedupWindowSeconds) * time.Second,
	}
}

const notificationColumns = "id, recipient, template_key, vars_hash, subject, body, priority, status, attempts, max_attempts, last_error, scheduled_at, created_at, updated_at"

// Enqueue renders the template and inserts a pending notification. For
// templates marked Dedup, a message with the same recipient, template, and
// variables inside the dedup window is dropped; the boolean reports whether
// a row was written.
func (s *Store) Enqueue(ctx context.Context, recipient, templateKey string, vars map[string]string) (bool, error) {
	template, err := s.registry.Lookup(templateKey)
	if err != nil {
		return false, err
	}
	varsHash := HashVars(templateKey, vars)

	if template.Dedup && s.dedupWindow > 0 {
		duplicate, err := s.hasRecent(ctx, recipient, templateKey, varsHash)
		if err != nil {
			return false, err
		}
		if duplicate {
			return false, nil
		}
	}

	subject, body := template.Render(vars)
	now := storage.FormatTime(time.Now())
	if _, err := s.db.ExecRetry(
		ctx,
		`INSERT INTO notifications (
            recipient, template_key, vars_hash, subject, body, priority,
            status, attempts, max_attempts, scheduled_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)`,
		storage.NullString(recipient),
		templateKey,
		varsHash,
		subject,
		body,
		template.Priority,
		StatusPending,
		s.maxAttempts,
		now,
		now,
		now,
	); err != nil {
		return false, fmt.Errorf("enqueue notification: %w", err)
	}
	return true, nil
}

func (s *Store) hasRecent(ctx context.Context, recipient, templateKey, varsHash string) (bool, error) {
	cutoff := storage.FormatTime(time.Now().Add(-s.dedupWindow))
	var id int64
	row := s.db.QueryRow(
		ctx,
		`SELECT id FROM notifications
         WHERE recipient IS ? AND template_key = ? AND vars_hash = ? AND created_at > ?
         LIMIT 1`,
		storage.NullString(recipient),
		templateKey,
		varsHash,
		cutoff,
	)
	err := row.Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	return true, nil
}

// Claim moves due pending notifications to sending and returns them, most
// urgent first. Rows stay sending until the drainer records an outcome.
func (s *Store) Claim(ctx context.Context, batchSize int) ([]*Notification, error) {
	if batchSize <= 0 {
		batchSize = 10
	}
	rows, err := s.db.Query(
		ctx,
		`SELECT `+notificationColumns+` FROM notifications
         WHERE status = ? AND scheduled_at <= ?
         ORDER BY priority, created_at
         LIMIT ?`,
		StatusPending,
		storage.FormatTime(time.Now()),
		batchSize,
	)
	if err != nil {
		return nil, fmt.Errorf("claim notifications: %w", err)
	}
	defer rows.Close()

	var batch []*Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		batch = append(batch, notification)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(batch)+2)
	args = append(args, StatusSending, storage.FormatTime(time.Now()))
	for _, notification := range batch {
		args = append(args, notification.ID)
	}
	if _, err := s.db.ExecRetry(
		ctx,
		`UPDATE notifications SET status = ?, updated_at = ? WHERE id IN (`+storage.Placeholders(len(batch))+`)`,
		args...,
	); err != nil {
		return nil, fmt.Errorf("mark notifications sending: %w", err)
	}
	for _, notification := range batch {
		notification.Status = StatusSending
	}
	return batch, nil
}

// ReclaimSending returns sending rows to pending. A row can only be left
// sending by a process that died mid-delivery, so the daemon calls this once
// at startup before the drain loop begins.
func (s *Store) ReclaimSending(ctx context.Context) (int64, error) {
	res, err := s.db.ExecRetry(
		ctx,
		`UPDATE notifications SET status = ?, updated_at = ? WHERE status = ?`,
		StatusPending,
		storage.FormatTime(time.Now()),
		StatusSending,
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim sending notifications: %w", err)
	}
	return res.RowsAffected()
}

// MarkSent records a successful delivery.
func (s *Store) MarkSent(ctx context.Context, notification *Notification) error {
	now := storage.FormatTime(time.Now())
	if _, err := s.db.ExecRetry(
		ctx,
		`UPDATE notifications SET status = ?, attempts = ?, last_error = NULL, updated_at = ? WHERE id = ?`,
		StatusSent,
		notification.Attempts+1,
		now,
		notification.ID,
	); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// MarkAttemptFailed records a delivery failure. The notification stays
// pending with a deferred schedule until attempts reach the maximum, then it
// moves to failed.
func (s *Store) MarkAttemptFailed(ctx context.Context, notification *Notification, attemptErr error, retryDelay time.Duration) error {
	attempts := notification.Attempts + 1
	status := StatusPending
	if attempts >= notification.MaxAttempts {
		status = StatusFailed
	}
	now := time.Now()
	if _, err := s.db.ExecRetry(
		ctx,
		`UPDATE notifications SET status = ?, attempts = ?, last_error = ?, scheduled_at = ?, updated_at = ? WHERE id = ?`,
		status,
		attempts,
		attemptErr.Error(),
		storage.FormatTime(now.Add(retryDelay)),
		storage.FormatTime(now),
		notification.ID,
	); err != nil {
		return fmt.Errorf("mark attempt failed: %w", err)
	}
	return nil
}

// GetByID fetches one notification, nil when unknown.
func (s *Store) GetByID(ctx context.Context, id int64) (*Notification, error) {
	row := s.db.QueryRow(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id = ?`, id)
	notification, err := scanNotification(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return notification, nil
}

func scanNotification(scanner interface{ Scan(dest ...any) error }) (*Notification, error) {
	var (
		notification Notification
		recipient    sql.NullString
		lastError    sql.NullString
		scheduledRaw string
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&notification.ID,
		&recipient,
		&notification.TemplateKey,
		&notification.VarsHash,
		&notification.Subject,
		&notification.Body,
		&notification.Priority,
		&notification.Status,
		&notification.Attempts,
		&notification.MaxAttempts,
		&lastError,
		&scheduledRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	notification.Recipient = recipient.String
	notification.LastError = lastError.String
	if scheduled, err := storage.ParseTime(scheduledRaw); err == nil {
		notification.ScheduledAt = scheduled
	}
	if created, err := storage.ParseTime(createdRaw); err == nil {
		notification.CreatedAt = created
	}
	if updated, err := storage.ParseTime(updatedRaw); err == nil {
		notification.UpdatedAt = updated
	}
	return &notification, nil
}
