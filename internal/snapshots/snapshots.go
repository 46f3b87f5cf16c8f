package snapshots

import (
	"context"
	"log/slog"
	"time"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/queue"
)

// Cache holds the latest status snapshot per job for cheap status reads.
// Snapshots are a derived view; the jobs table stays authoritative.
type Cache interface {
	Put(ctx context.Context, snapshot queue.Snapshot) error
	Get(ctx context.Context, jobID string) (*queue.Snapshot, bool, error)
	Delete(ctx context.Context, jobID string) error
	Close() error
}

// NewFromConfig selects the snapshot backend. An empty redis address, or a
// Redis that does not answer a ping, yields the in-process cache so status
// reads keep working without the external dependency.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) Cache {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "snapshots")

	ttl := time.Duration(cfg.Snapshots.TTLSeconds) * time.Second
	if cfg.Snapshots.RedisAddr == "" {
		return NewMemoryCache(ttl)
	}

	redisCache := NewRedisCache(cfg.Snapshots, ttl)
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisCache.Ping(pingCtx); err != nil {
		logger.Warn("redis unreachable, using in-process snapshot cache",
			logging.String("addr", cfg.Snapshots.RedisAddr),
			logging.Error(err))
		_ = redisCache.Close()
		return NewMemoryCache(ttl)
	}
	logger.Info("snapshot cache backed by redis", logging.String("addr", cfg.Snapshots.RedisAddr))
	return redisCache
}
