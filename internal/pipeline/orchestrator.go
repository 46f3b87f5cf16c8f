package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lectern/internal/analysis"
	"lectern/internal/config"
	"lectern/internal/extraction"
	"lectern/internal/logging"
	"lectern/internal/notify"
	"lectern/internal/queue"
	"lectern/internal/resultcache"
	"lectern/internal/services"
	"lectern/internal/snapshots"
	"lectern/internal/transcribe"
)

// Extractor is the media acquisition surface the pipeline drives.
type Extractor interface {
	Metadata(ctx context.Context, url string) (*extraction.Metadata, error)
	Audio(ctx context.Context, url, jobID string) (string, error)
	SplitAudio(ctx context.Context, audioPath string, chunkSeconds int) ([]string, error)
	Cleanup(jobID string) error
}

// Transcriber produces a transcript from ordered audio chunks.
type Transcriber interface {
	TranscribeChunks(ctx context.Context, chunks []string, language string, estimatedSeconds float64) (*transcribe.Transcript, error)
}

// Analyzer produces study material from a transcript.
type Analyzer interface {
	Analyze(ctx context.Context, meta *extraction.Metadata, transcript *transcribe.Transcript) (*analysis.ContentAnalysis, error)
	GenerateKnowledgeGraph(ctx context.Context, analysis *analysis.ContentAnalysis) (*analysis.KnowledgeGraph, error)
}

// Orchestrator owns the job lifecycle. Submissions either reuse a cached
// result or enter the pending queue; the manager drives pending jobs through
// the stages.
type Orchestrator struct {
	cfg           *config.Config
	jobs          *queue.Store
	cache         *resultcache.Store
	snapshots     snapshots.Cache
	notifications *notify.Store
	extractor     Extractor
	transcriber   Transcriber
	analyzer      Analyzer
	logger        *slog.Logger
}

// NewOrchestrator wires the pipeline's collaborators together.
func NewOrchestrator(
	cfg *config.Config,
	jobs *queue.Store,
	cache *resultcache.Store,
	snapshotCache snapshots.Cache,
	notifications *notify.Store,
	extractor Extractor,
	transcriber Transcriber,
	analyzer Analyzer,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:           cfg,
		jobs:          jobs,
		cache:         cache,
		snapshots:     snapshotCache,
		notifications: notifications,
		extractor:     extractor,
		transcriber:   transcriber,
		analyzer:      analyzer,
		logger:        logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Submit validates a URL and either serves it from the result cache or
// queues it for processing. The returned job reflects the stored state.
func (o *Orchestrator) Submit(ctx context.Context, inputURL, requester string) (*queue.Job, error) {
	fingerprint, err := resultcache.Fingerprint(inputURL)
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "submit", "fingerprint", "unusable video url", err)
	}

	if o.cfg.Cache.Enabled {
		entry, hit, err := o.cache.Lookup(ctx, fingerprint)
		if err != nil {
			return nil, err
		}
		if hit {
			return o.completeFromCache(ctx, inputURL, requester, fingerprint, entry)
		}
	}

	job, err := o.jobs.NewJob(ctx, inputURL, requester, fingerprint, stageSumEstimate())
	if err != nil {
		return nil, err
	}
	o.putSnapshot(ctx, job)
	o.logger.InfoContext(ctx, "job queued",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("url", inputURL))
	return job, nil
}

func (o *Orchestrator) completeFromCache(ctx context.Context, inputURL, requester, fingerprint string, entry *resultcache.Entry) (*queue.Job, error) {
	job, err := o.jobs.NewJob(ctx, inputURL, requester, fingerprint, cacheHitEstimateSeconds)
	if err != nil {
		return nil, err
	}
	job.FromCache = true
	job.SetCompleted(entry.ResultPayload)
	if err := o.jobs.Update(ctx, job); err != nil {
		return nil, err
	}
	if err := o.cache.RecordAccess(ctx, fingerprint, resultcache.AccessReuse, requester); err != nil {
		o.logger.WarnContext(ctx, "cache access recording failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
	o.putSnapshot(ctx, job)
	o.enqueueNotification(ctx, "cache_hit", map[string]string{"title": resultTitle(entry.ResultPayload, inputURL)})
	o.logger.InfoContext(ctx, "job served from cache",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("fingerprint", fingerprint))
	return job, nil
}

// Status returns the job's snapshot, preferring the snapshot cache and
// falling back to the database.
func (o *Orchestrator) Status(ctx context.Context, jobID string) (*queue.Snapshot, error) {
	if snapshot, ok, err := o.snapshots.Get(ctx, jobID); err == nil && ok {
		return snapshot, nil
	} else if err != nil {
		o.logger.WarnContext(ctx, "snapshot read failed, falling back to database",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err))
	}

	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "status", "lookup", "unknown job id", nil)
	}
	snapshot := job.Snapshot()
	o.putSnapshot(ctx, job)
	return &snapshot, nil
}

// Resolve returns the full stored job, including its result payload.
func (o *Orchestrator) Resolve(ctx context.Context, jobID string) (*queue.Job, error) {
	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, services.Wrap(services.ErrNotFound, "result", "lookup", "unknown job id", nil)
	}
	return job, nil
}

func (o *Orchestrator) putSnapshot(ctx context.Context, job *queue.Job) {
	snapshot := job.Snapshot()
	if err := o.snapshots.Put(ctx, snapshot); err != nil {
		o.logger.WarnContext(ctx, "snapshot write failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
}

func (o *Orchestrator) enqueueNotification(ctx context.Context, templateKey string, vars map[string]string) {
	if o.notifications == nil {
		return
	}
	if _, err := o.notifications.Enqueue(ctx, o.cfg.Notifications.Recipient, templateKey, vars); err != nil {
		o.logger.WarnContext(ctx, "notification enqueue failed",
			logging.String("template", templateKey),
			logging.Error(err))
	}
}

func resultTitle(payload, fallback string) string {
	result, err := DecodeResult(payload)
	if err == nil && result.Metadata != nil && result.Metadata.Title != "" {
		return result.Metadata.Title
	}
	return fallback
}

// formatAudioDuration renders a duration for notifications.
func formatAudioDuration(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	return (time.Duration(seconds) * time.Second).Round(time.Second).String()
}

var errJobNotRunnable = errors.New("job is not pending")
