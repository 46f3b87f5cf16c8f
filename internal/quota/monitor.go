package quota

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/storage"
)

// Decision is the outcome of an admission check for one provider.
type Decision struct {
	Allowed      bool
	CurrentUsage float64
	Limit        float64
}

// Monitor tracks provider usage over a trailing window and answers admission
// checks. Providers without a configured limit are always admitted.
type Monitor struct {
	db     *storage.DB
	window time.Duration
	limits map[string]float64
	logger *slog.Logger
}

// NewMonitor builds a monitor from the quota configuration.
func NewMonitor(db *storage.DB, cfg config.Quota, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	limits := make(map[string]float64, len(cfg.Limits))
	for provider, limit := range cfg.Limits {
		limits[strings.ToLower(strings.TrimSpace(provider))] = limit
	}
	return &Monitor{
		db:     db,
		window: time.Duration(cfg.WindowSeconds) * time.Second,
		limits: limits,
		logger: logging.NewComponentLogger(logger, "quota"),
	}
}

// CanProcess reports whether admitting units of work would keep the provider
// inside its windowed limit. The check is advisory and does not reserve
// capacity. When usage cannot be read the monitor admits the request rather
// than blocking the pipeline on its own bookkeeping.
func (m *Monitor) CanProcess(ctx context.Context, provider string, units float64) (Decision, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	limit, limited := m.limits[provider]
	if !limited || limit <= 0 {
		return Decision{Allowed: true, Limit: limit}, nil
	}

	usage, err := m.usageInWindow(ctx, provider)
	if err != nil {
		m.logger.WarnContext(ctx, "quota usage read failed, admitting request",
			logging.String(logging.FieldProvider, provider),
			logging.Error(err))
		return Decision{Allowed: true, Limit: limit}, nil
	}

	decision := Decision{
		Allowed:      usage+units <= limit,
		CurrentUsage: usage,
		Limit:        limit,
	}
	m.logThresholds(ctx, provider, usage, limit)
	return decision, nil
}

// RecordUsage appends a usage event after work completes against a provider.
func (m *Monitor) RecordUsage(ctx context.Context, provider string, units, cost float64) error {
	provider = strings.ToLower(strings.TrimSpace(provider))
	_, err := m.db.ExecRetry(
		ctx,
		`INSERT INTO usage_events (provider, units, cost, created_at) VALUES (?, ?, ?, ?)`,
		provider,
		units,
		cost,
		storage.FormatTime(time.Now()),
	)
	return err
}

// Usage returns the provider's consumed units within the trailing window.
func (m *Monitor) Usage(ctx context.Context, provider string) (float64, error) {
	return m.usageInWindow(ctx, strings.ToLower(strings.TrimSpace(provider)))
}

func (m *Monitor) usageInWindow(ctx context.Context, provider string) (float64, error) {
	cutoff := storage.FormatTime(time.Now().Add(-m.window))
	var total float64
	row := m.db.QueryRow(
		ctx,
		`SELECT COALESCE(SUM(units), 0) FROM usage_events WHERE provider = ? AND created_at > ?`,
		provider,
		cutoff,
	)
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (m *Monitor) logThresholds(ctx context.Context, provider string, usage, limit float64) {
	ratio := usage / limit
	switch {
	case ratio >= 0.95:
		m.logger.WarnContext(ctx, "provider quota nearly exhausted",
			logging.String(logging.FieldProvider, provider),
			logging.Float64("usage", usage),
			logging.Float64("limit", limit))
	case ratio >= 0.80:
		m.logger.InfoContext(ctx, "provider quota above warning threshold",
			logging.String(logging.FieldProvider, provider),
			logging.Float64("usage", usage),
			logging.Float64("limit", limit))
	}
}
