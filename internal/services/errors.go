package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidInput marks submissions rejected before any work is scheduled.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound marks lookups for unknown job identifiers.
	ErrNotFound = errors.New("not found")
	// ErrQuotaExceeded marks work refused by the admission monitor.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrRateLimited marks provider-side throttling; see RateLimitError for the hint.
	ErrRateLimited = errors.New("rate limited")
	// ErrProviderUnavailable marks provider outages and credential failures.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrUnsupportedFormat marks audio assets a provider cannot accept.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrEmptyAudio marks extractions that produced no usable audio.
	ErrEmptyAudio = errors.New("empty audio")
	// ErrTemplateNotFound marks enqueue calls naming an unregistered template.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrCacheConflict marks duplicate fingerprint inserts. It signals another
	// job already cached the same result and is swallowed by callers.
	ErrCacheConflict = errors.New("cache write conflict")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrProviderUnavailable
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// RateLimitError carries the provider-supplied retry hint alongside the
// ErrRateLimited marker so callers can decide between waiting and falling back.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited by %s, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("rate limited by %s", e.Provider)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// RetryAfterHint extracts the provider retry hint when err is a rate limit.
func RetryAfterHint(err error) (time.Duration, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle.RetryAfter, true
	}
	return 0, false
}

// Recoverable reports whether a transcription failure may be resolved by
// falling back to another provider.
func Recoverable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProviderUnavailable)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
