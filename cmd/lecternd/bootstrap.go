package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"lectern/internal/analysis"
	"lectern/internal/config"
	"lectern/internal/extraction"
	"lectern/internal/logging"
	"lectern/internal/notify"
	"lectern/internal/pipeline"
	"lectern/internal/queue"
	"lectern/internal/quota"
	"lectern/internal/resultcache"
	"lectern/internal/snapshots"
	"lectern/internal/storage"
	"lectern/internal/transcribe"
)

const cachePruneInterval = time.Hour

// daemon wires the stores and background loops together and enforces
// single-instance execution through a lock file.
type daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	db            *storage.DB
	jobs          *queue.Store
	cache         *resultcache.Store
	snapshots     snapshots.Cache
	notifications *notify.Store
	manager       *pipeline.Manager
	drainer       *notify.Drainer

	lockPath string
	lock     *flock.Flock

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newDaemon(cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	db, err := storage.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	jobs := queue.NewStore(db)
	cache := resultcache.NewStore(db, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
	snapshotCache := snapshots.NewFromConfig(cfg, logger)
	registry := notify.NewRegistry()
	notifications := notify.NewStore(db, registry, cfg.Notifications)

	monitor := quota.NewMonitor(db, cfg.Quota, logger)
	transcriber, err := transcribe.NewClientFromConfig(cfg, monitor, logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("configure transcription: %w", err)
	}
	analyzer := analysis.NewAnalyzer(analysis.NewLLMClient(cfg.LLM))

	orchestrator := pipeline.NewOrchestrator(
		cfg,
		jobs,
		cache,
		snapshotCache,
		notifications,
		extraction.NewExtractor(cfg),
		transcriber,
		analyzer,
		logger,
	)

	lockPath := filepath.Join(cfg.Paths.DataDir, "lecternd.lock")
	return &daemon{
		cfg:           cfg,
		logger:        logger,
		db:            db,
		jobs:          jobs,
		cache:         cache,
		snapshots:     snapshotCache,
		notifications: notifications,
		manager:       pipeline.NewManager(orchestrator, jobs, cfg.Workflow, logger),
		drainer:       notify.NewDrainer(notifications, notify.NewSender(cfg.Notifications), cfg.Notifications, logger),
		lockPath:      lockPath,
		lock:          flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, reclaims jobs orphaned by a previous
// crash, and launches the processing and notification loops.
func (d *daemon) Start(ctx context.Context) error {
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another lecternd instance is already running")
	}

	reclaimed, err := d.jobs.FailRunning(ctx, queue.DaemonStopReason)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reclaim orphaned jobs: %w", err)
	}
	if reclaimed > 0 {
		d.logger.Warn("failed jobs left running by previous instance", logging.Int64("count", reclaimed))
	}

	requeued, err := d.notifications.ReclaimSending(ctx)
	if err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("reclaim sending notifications: %w", err)
	}
	if requeued > 0 {
		d.logger.Warn("requeued notifications left sending by previous instance", logging.Int64("count", requeued))
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.manager.Run(runCtx)
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.drainer.Run(runCtx)
	}()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.pruneLoop(runCtx)
	}()

	d.logger.Info("lecternd started",
		logging.String("database", d.db.Path()),
		logging.String("lock", d.lockPath),
	)
	return nil
}

func (d *daemon) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(cachePruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := d.cache.PruneExpired(ctx)
			if err != nil {
				d.logger.Warn("cache prune failed", logging.Error(err))
				continue
			}
			if pruned > 0 {
				d.logger.Info("expired cache entries pruned", logging.Int64("count", pruned))
			}
		}
	}
}

// Close stops the background loops and releases the lock and database.
func (d *daemon) Close() error {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("release daemon lock", logging.Error(err))
	}
	if d.snapshots != nil {
		_ = d.snapshots.Close()
	}
	return d.db.Close()
}
