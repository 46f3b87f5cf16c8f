package snapshots

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"lectern/internal/config"
	"lectern/internal/queue"
)

// RedisCache stores snapshots as JSON values under job:<id> keys.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache builds a redis-backed snapshot cache.
func NewRedisCache(cfg config.Snapshots, ttl time.Duration) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return &RedisCache{client: client, ttl: ttl}
}

// Ping verifies the backend is reachable.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Put(ctx context.Context, snapshot queue.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, snapshotKey(snapshot.JobID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, jobID string) (*queue.Snapshot, bool, error) {
	payload, err := c.client.Get(ctx, snapshotKey(jobID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read snapshot: %w", err)
	}
	var snapshot queue.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		return nil, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snapshot, true, nil
}

func (c *RedisCache) Delete(ctx context.Context, jobID string) error {
	if err := c.client.Del(ctx, snapshotKey(jobID)).Err(); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func snapshotKey(jobID string) string {
	return "job:" + jobID
}
