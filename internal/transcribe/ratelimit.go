package transcribe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// SleepWithContext blocks for the given duration, returning early if the
// context is cancelled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRetriable reports whether err represents a transient condition that
// warrants an automatic retry (timeouts, connection errors, server outages).
// Rate limits are handled separately so the wait-or-fallback logic sees them.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	message := strings.ToLower(err.Error())
	for _, code := range []string{"502", "503", "504"} {
		if strings.Contains(message, code) {
			return true
		}
	}
	transientTokens := []string{
		"timeout",
		"deadline exceeded",
		"client.timeout exceeded",
		"connection reset",
		"connection refused",
		"temporary failure",
		"awaiting headers",
	}
	for _, token := range transientTokens {
		if strings.Contains(message, token) {
			return true
		}
	}
	return false
}

// retryAfterFromResponse reads the throttle delay from a 429 response,
// preferring the Retry-After header and falling back to natural-language
// hints in the body ("try again in 30m", "retry after 90 seconds").
func retryAfterFromResponse(resp *http.Response, body string) time.Duration {
	if resp != nil {
		if d, ok := parseRetryAfterHeader(resp.Header.Get("Retry-After")); ok {
			return d
		}
	}
	if d, ok := parseRetryAfterText(body); ok {
		return d
	}
	return 0
}

func parseRetryAfterHeader(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

var retryAfterPhrase = regexp.MustCompile(`(?i)(?:try\s+again|retry)(?:\s+after)?(?:\s+in)?\s+(?:(\d+)\s*h(?:ours?)?)?\s*(?:(\d+)\s*m(?:in(?:utes?)?)?)?\s*(?:(\d+)\s*s(?:ec(?:onds?)?)?)?`)

func parseRetryAfterText(body string) (time.Duration, bool) {
	match := retryAfterPhrase.FindStringSubmatch(body)
	if match == nil {
		return 0, false
	}
	var total time.Duration
	if match[1] != "" {
		hours, _ := strconv.Atoi(match[1])
		total += time.Duration(hours) * time.Hour
	}
	if match[2] != "" {
		minutes, _ := strconv.Atoi(match[2])
		total += time.Duration(minutes) * time.Minute
	}
	if match[3] != "" {
		seconds, _ := strconv.Atoi(match[3])
		total += time.Duration(seconds) * time.Second
	}
	if total <= 0 {
		return 0, false
	}
	return total, true
}
