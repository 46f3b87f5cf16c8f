package services_test

import (
	"errors"
	"testing"
	"time"

	"lectern/internal/services"
)

func TestWrapTagsMarkerAndDetail(t *testing.T) {
	underlying := errors.New("socket closed")
	err := services.Wrap(services.ErrProviderUnavailable, "transcribe", "upload", "primary refused", underlying)
	if !errors.Is(err, services.ErrProviderUnavailable) {
		t.Fatalf("expected provider unavailable marker, got %v", err)
	}
	if !errors.Is(err, underlying) {
		t.Fatal("expected underlying error preserved")
	}
	want := "provider unavailable: transcribe: upload: primary refused: socket closed"
	if err.Error() != want {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}

func TestRateLimitErrorCarriesHint(t *testing.T) {
	err := services.Wrap(nil, "transcribe", "", "", &services.RateLimitError{
		Provider:   "whisperapi",
		RetryAfter: 30 * time.Minute,
	})
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("expected rate limited marker, got %v", err)
	}
	hint, ok := services.RetryAfterHint(err)
	if !ok || hint != 30*time.Minute {
		t.Fatalf("expected 30m hint, got %v ok=%v", hint, ok)
	}
}

func TestRecoverable(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{services.ErrRateLimited, true},
		{services.ErrProviderUnavailable, true},
		{services.ErrQuotaExceeded, false},
		{services.ErrUnsupportedFormat, false},
		{services.ErrEmptyAudio, false},
	}
	for _, tc := range cases {
		if got := services.Recoverable(tc.err); got != tc.want {
			t.Fatalf("Recoverable(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
