package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/queue"
)

// Manager polls for pending jobs and runs them through the orchestrator,
// bounded by the configured concurrency.
type Manager struct {
	orchestrator *Orchestrator
	jobs         *queue.Store
	logger       *slog.Logger
	pollInterval time.Duration
	retryDelay   time.Duration
	slots        chan struct{}

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

// NewManager builds a manager from the workflow configuration.
func NewManager(orchestrator *Orchestrator, jobs *queue.Store, cfg config.Workflow, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	pollInterval := time.Duration(cfg.JobPollInterval) * time.Second
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	retryDelay := time.Duration(cfg.ErrorRetryInterval) * time.Second
	if retryDelay <= 0 {
		retryDelay = pollInterval
	}
	concurrency := cfg.MaxConcurrentJobs
	if concurrency < 1 {
		concurrency = 1
	}
	return &Manager{
		orchestrator: orchestrator,
		jobs:         jobs,
		logger:       logging.NewComponentLogger(logger, "manager"),
		pollInterval: pollInterval,
		retryDelay:   retryDelay,
		slots:        make(chan struct{}, concurrency),
		inflight:     make(map[string]struct{}),
	}
}

// Run polls until the context is cancelled, then waits for running jobs.
func (m *Manager) Run(ctx context.Context) {
	defer m.wg.Wait()
	for {
		if err := m.dispatchNext(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.ErrorContext(ctx, "job dispatch failed", logging.Error(err))
			if !sleepCtx(ctx, m.retryDelay) {
				return
			}
			continue
		}
		if !sleepCtx(ctx, m.pollInterval) {
			return
		}
	}
}

// dispatchNext starts every pending job it can claim a slot for.
func (m *Manager) dispatchNext(ctx context.Context) error {
	for {
		job, err := m.nextDispatchable(ctx)
		if err != nil {
			return err
		}
		if job == nil {
			return nil
		}

		select {
		case m.slots <- struct{}{}:
		case <-ctx.Done():
			m.untrack(job.ID)
			return ctx.Err()
		}

		m.wg.Add(1)
		go func(job *queue.Job) {
			defer m.wg.Done()
			defer func() { <-m.slots }()
			defer m.untrack(job.ID)
			if err := m.orchestrator.Process(ctx, job); err != nil && ctx.Err() == nil {
				m.logger.WarnContext(ctx, "job ended with error",
					logging.String(logging.FieldJobID, job.ID),
					logging.Error(err))
			}
		}(job)
	}
}

// nextDispatchable returns the oldest pending job not already in flight.
func (m *Manager) nextDispatchable(ctx context.Context) (*queue.Job, error) {
	pending, err := m.jobs.List(ctx, queue.StatusPending)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, job := range pending {
		if _, busy := m.inflight[job.ID]; busy {
			continue
		}
		m.inflight[job.ID] = struct{}{}
		return job, nil
	}
	return nil, nil
}

func (m *Manager) untrack(jobID string) {
	m.mu.Lock()
	delete(m.inflight, jobID)
	m.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
