package notify

import (
	"context"
	"log/slog"
	"time"

	"lectern/internal/config"
	"lectern/internal/logging"
)

// Drainer delivers queued notifications. It is the only writer of delivery
// outcomes, so a single drainer must run per database.
type Drainer struct {
	store      *Store
	sender     Sender
	logger     *slog.Logger
	interval   time.Duration
	batchSize  int
	retryDelay time.Duration
}

// NewDrainer builds a drainer from the notifications configuration.
func NewDrainer(store *Store, sender Sender, cfg config.Notifications, logger *slog.Logger) *Drainer {
	if logger == nil {
		logger = logging.NewNop()
	}
	interval := time.Duration(cfg.DrainIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 15 * time.Second
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Drainer{
		store:      store,
		sender:     sender,
		logger:     logging.NewComponentLogger(logger, "notify"),
		interval:   interval,
		batchSize:  batchSize,
		retryDelay: interval,
	}
}

// Run drains on a fixed interval until the context is cancelled.
func (d *Drainer) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := d.DrainOnce(ctx); err != nil {
				d.logger.ErrorContext(ctx, "notification drain failed", logging.Error(err))
			}
		}
	}
}

// DrainOnce claims one batch and attempts delivery, returning sent and
// failed-attempt counts.
func (d *Drainer) DrainOnce(ctx context.Context) (sent, failed int, err error) {
	batch, err := d.store.Claim(ctx, d.batchSize)
	if err != nil {
		return 0, 0, err
	}
	for _, notification := range batch {
		if err := d.sender.Send(ctx, notification); err != nil {
			failed++
			d.logger.WarnContext(ctx, "notification delivery failed",
				logging.Int64("notification_id", notification.ID),
				logging.String("template", notification.TemplateKey),
				logging.Int("attempt", notification.Attempts+1),
				logging.Error(err))
			if markErr := d.store.MarkAttemptFailed(ctx, notification, err, d.retryDelay); markErr != nil {
				return sent, failed, markErr
			}
			continue
		}
		sent++
		d.logger.InfoContext(ctx, "notification delivered",
			logging.Int64("notification_id", notification.ID),
			logging.String("template", notification.TemplateKey))
		if markErr := d.store.MarkSent(ctx, notification); markErr != nil {
			return sent, failed, markErr
		}
	}
	return sent, failed, nil
}
