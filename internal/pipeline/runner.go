package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lectern/internal/logging"
	"lectern/internal/queue"
	"lectern/internal/resultcache"
	"lectern/internal/services"
	"lectern/internal/transcribe"
)

// Process drives one pending job through every stage. State transitions are
// persisted before work continues so a crash never loses progress history.
func (o *Orchestrator) Process(ctx context.Context, job *queue.Job) error {
	if job.Status != queue.StatusPending {
		return errJobNotRunnable
	}
	ctx = services.WithJobID(ctx, job.ID)

	job.Status = queue.StatusRunning
	if err := o.transition(ctx, job, StageExtractInfo); err != nil {
		return err
	}

	meta, err := o.extractor.Metadata(ctx, job.InputURL)
	if err != nil {
		return o.fail(ctx, job, StageExtractInfo, err)
	}
	o.completeStage(ctx, job, StageExtractInfo)
	if err := o.transition(ctx, job, StageExtractAudio); err != nil {
		return err
	}

	audioPath, err := o.extractor.Audio(ctx, job.InputURL, job.ID)
	if err != nil {
		return o.fail(ctx, job, StageExtractAudio, err)
	}
	o.completeStage(ctx, job, StageExtractAudio)
	if err := o.transition(ctx, job, StageTranscribe); err != nil {
		return err
	}

	chunkSeconds := o.cfg.Transcription.ChunkSeconds
	if chunkSeconds > 0 && meta.DurationSeconds <= float64(chunkSeconds) {
		chunkSeconds = 0
	}
	chunks, err := o.extractor.SplitAudio(ctx, audioPath, chunkSeconds)
	if err != nil {
		return o.fail(ctx, job, StageTranscribe, err)
	}
	language := meta.Language
	if language == "" {
		language = o.cfg.Transcription.DefaultLanguage
	}
	transcript, err := o.transcriber.TranscribeChunks(ctx, chunks, transcribe.NormalizeLanguage(language), meta.DurationSeconds)
	if err != nil {
		return o.fail(ctx, job, StageTranscribe, err)
	}
	o.completeStage(ctx, job, StageTranscribe)
	if err := o.transition(ctx, job, StageAnalyze); err != nil {
		return err
	}

	contentAnalysis, err := o.analyzer.Analyze(ctx, meta, transcript)
	if err != nil {
		return o.fail(ctx, job, StageAnalyze, err)
	}
	o.completeStage(ctx, job, StageAnalyze)
	if err := o.transition(ctx, job, StageKnowledgeGraph); err != nil {
		return err
	}

	graph, err := o.analyzer.GenerateKnowledgeGraph(ctx, contentAnalysis)
	if err != nil {
		return o.fail(ctx, job, StageKnowledgeGraph, err)
	}
	o.completeStage(ctx, job, StageKnowledgeGraph)
	if err := o.transition(ctx, job, StageFinalize); err != nil {
		return err
	}

	result := &Result{
		Metadata:       newResultMetadata(meta),
		Transcript:     transcript,
		Analysis:       contentAnalysis,
		KnowledgeGraph: graph,
		ProcessedAt:    time.Now().UTC(),
	}
	payload, err := result.Encode()
	if err != nil {
		return o.fail(ctx, job, StageFinalize, err)
	}

	if o.cfg.Cache.Enabled {
		// A concurrent job for the same video may have finished first. The
		// existing entry wins and this job still completes with its own result.
		if err := o.cache.Store(ctx, job.Fingerprint, payload); err != nil {
			if !errors.Is(err, services.ErrCacheConflict) {
				return o.fail(ctx, job, StageFinalize, err)
			}
			o.logger.DebugContext(ctx, "cache entry already populated",
				logging.String("fingerprint", job.Fingerprint))
		} else {
			if err := o.cache.RecordAccess(ctx, job.Fingerprint, resultcache.AccessCreate, job.Requester); err != nil {
				o.logger.WarnContext(ctx, "cache access recording failed", logging.Error(err))
			}
		}
	}

	job.SetCompleted(payload)
	if err := o.jobs.Update(ctx, job); err != nil {
		return err
	}
	o.putSnapshot(ctx, job)
	o.cleanup(ctx, job.ID)
	o.enqueueNotification(ctx, "job_completed", map[string]string{
		"title":    meta.Title,
		"duration": formatAudioDuration(transcript.DurationSeconds),
		"provider": transcript.Provider,
	})
	o.logger.InfoContext(ctx, "job completed",
		logging.String(logging.FieldJobID, job.ID),
		logging.String("title", meta.Title))
	return nil
}

// transition moves the job into a stage and persists before the stage runs.
func (o *Orchestrator) transition(ctx context.Context, job *queue.Job, stage string) error {
	job.SetStage(stage)
	job.ProgressPercent = progressBefore(stage)
	if err := o.jobs.Update(ctx, job); err != nil {
		return err
	}
	o.putSnapshot(ctx, job)
	o.logger.InfoContext(ctx, "stage started",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldStage, stage))
	return nil
}

// completeStage publishes the cumulative progress for a finished stage on the
// fast read path. The durable write rides the next transition.
func (o *Orchestrator) completeStage(ctx context.Context, job *queue.Job, stage string) {
	job.ProgressPercent = progressAfter(stage)
	o.putSnapshot(ctx, job)
}

// fail marks the job failed at a stage. Progress keeps the value reached
// before the stage so readers can see where processing stopped.
func (o *Orchestrator) fail(ctx context.Context, job *queue.Job, stage string, cause error) error {
	detail := fmt.Sprintf("%s: %v", stage, cause)
	job.SetFailed(detail)
	if err := o.jobs.Update(ctx, job); err != nil {
		return err
	}
	o.putSnapshot(ctx, job)
	o.cleanup(ctx, job.ID)
	o.enqueueNotification(ctx, "job_failed", map[string]string{
		"title":  job.InputURL,
		"stage":  stage,
		"reason": cause.Error(),
	})
	o.logger.ErrorContext(ctx, "job failed",
		logging.String(logging.FieldJobID, job.ID),
		logging.String(logging.FieldStage, stage),
		logging.Error(cause))
	return cause
}

func (o *Orchestrator) cleanup(ctx context.Context, jobID string) {
	if err := o.extractor.Cleanup(jobID); err != nil {
		o.logger.WarnContext(ctx, "artifact cleanup failed",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err))
	}
}
