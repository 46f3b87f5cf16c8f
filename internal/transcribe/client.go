package transcribe

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"lectern/internal/config"
	"lectern/internal/logging"
	"lectern/internal/quota"
	"lectern/internal/services"
)

// Client runs transcription against a primary provider with automatic
// fallback to a secondary. Rate limits on the primary either wait out the
// advertised delay (when it fits under the configured cap) or divert to the
// secondary; the primary is never retried more than once after a throttle.
type Client struct {
	primary       Provider
	secondary     Provider
	quota         *quota.Monitor
	retryAttempts int
	retryDelay    time.Duration
	waitCap       time.Duration
	logger        *slog.Logger
}

// NewClient builds a transcription client. secondary may be nil.
func NewClient(cfg config.Transcription, primary, secondary Provider, monitor *quota.Monitor, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	retryAttempts := cfg.RetryAttempts
	if retryAttempts < 1 {
		retryAttempts = 1
	}
	return &Client{
		primary:       primary,
		secondary:     secondary,
		quota:         monitor,
		retryAttempts: retryAttempts,
		retryDelay:    time.Duration(cfg.RetryDelaySeconds) * time.Second,
		waitCap:       time.Duration(cfg.RateLimitWaitCapSeconds) * time.Second,
		logger:        logging.NewComponentLogger(logger, "transcribe"),
	}
}

// Transcribe produces a transcript for the request. estimatedSeconds is the
// expected audio length used for quota admission; actual usage is recorded
// from the returned transcript when available.
func (c *Client) Transcribe(ctx context.Context, req Request, estimatedSeconds float64) (*Transcript, error) {
	if c.primary == nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, "transcribe", "dispatch", "no primary provider configured", nil)
	}

	primaryAdmitted := c.admit(ctx, c.primary, estimatedSeconds)
	if primaryAdmitted {
		transcript, err := c.runPrimary(ctx, req)
		if err == nil {
			c.recordUsage(ctx, c.primary, transcript, estimatedSeconds)
			return transcript, nil
		}
		if !errors.Is(err, services.ErrRateLimited) && !services.Recoverable(err) {
			return nil, err
		}
		transcript, fallbackErr := c.runSecondary(ctx, req, estimatedSeconds)
		if fallbackErr == nil {
			return transcript, nil
		}
		// The primary's failure is the representative error for the job.
		return nil, err
	}

	c.logger.WarnContext(ctx, "primary provider over quota, trying secondary",
		logging.String(logging.FieldProvider, c.primary.Name()))
	transcript, err := c.runSecondary(ctx, req, estimatedSeconds)
	if err == nil {
		return transcript, nil
	}
	return nil, services.Wrap(services.ErrQuotaExceeded, "transcribe", "admission", "no provider has quota headroom", err)
}

// runPrimary attempts the primary provider, waiting out one rate limit when
// the advertised delay fits under the cap.
func (c *Client) runPrimary(ctx context.Context, req Request) (*Transcript, error) {
	transcript, err := c.attempt(ctx, c.primary, req)
	if err == nil {
		return transcript, nil
	}
	if !errors.Is(err, services.ErrRateLimited) {
		return nil, err
	}

	hint, ok := services.RetryAfterHint(err)
	if !ok || hint > c.waitCap {
		c.logger.WarnContext(ctx, "primary rate limited beyond wait cap",
			logging.String(logging.FieldProvider, c.primary.Name()),
			logging.Duration("retry_after", hint))
		return nil, err
	}

	c.logger.InfoContext(ctx, "primary rate limited, waiting before a single retry",
		logging.String(logging.FieldProvider, c.primary.Name()),
		logging.Duration("retry_after", hint))
	if sleepErr := SleepWithContext(ctx, hint); sleepErr != nil {
		return nil, sleepErr
	}
	return c.attempt(ctx, c.primary, req)
}

func (c *Client) runSecondary(ctx context.Context, req Request, estimatedSeconds float64) (*Transcript, error) {
	if c.secondary == nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, "transcribe", "fallback", "no secondary provider configured", nil)
	}
	if !c.admit(ctx, c.secondary, estimatedSeconds) {
		return nil, services.Wrap(services.ErrQuotaExceeded, "transcribe", "fallback", "secondary provider over quota", nil)
	}
	c.logger.InfoContext(ctx, "falling back to secondary provider",
		logging.String(logging.FieldProvider, c.secondary.Name()))
	transcript, err := c.attempt(ctx, c.secondary, req)
	if err != nil {
		return nil, err
	}
	c.recordUsage(ctx, c.secondary, transcript, estimatedSeconds)
	return transcript, nil
}

// attempt runs one provider with bounded retries for transient failures.
// Rate limits are surfaced immediately so the caller can wait or fall back.
func (c *Client) attempt(ctx context.Context, provider Provider, req Request) (*Transcript, error) {
	var transcript *Transcript
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(c.retryAttempts-1)),
		ctx,
	)
	err := backoff.Retry(func() error {
		result, err := provider.Transcribe(ctx, req)
		if err != nil {
			if errors.Is(err, services.ErrRateLimited) || !IsRetriable(err) {
				return backoff.Permanent(err)
			}
			c.logger.WarnContext(ctx, "transient provider failure, retrying",
				logging.String(logging.FieldProvider, provider.Name()),
				logging.Error(err))
			return err
		}
		transcript = result
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}
	return transcript, nil
}

func (c *Client) admit(ctx context.Context, provider Provider, estimatedSeconds float64) bool {
	if c.quota == nil {
		return true
	}
	decision, err := c.quota.CanProcess(ctx, provider.Name(), estimatedSeconds)
	if err != nil {
		return true
	}
	return decision.Allowed
}

func (c *Client) recordUsage(ctx context.Context, provider Provider, transcript *Transcript, estimatedSeconds float64) {
	if c.quota == nil {
		return
	}
	units := estimatedSeconds
	if transcript != nil && transcript.DurationSeconds > 0 {
		units = transcript.DurationSeconds
	}
	if err := c.quota.RecordUsage(ctx, provider.Name(), units, 0); err != nil {
		c.logger.WarnContext(ctx, "usage recording failed",
			logging.String(logging.FieldProvider, provider.Name()),
			logging.Error(err))
	}
}
