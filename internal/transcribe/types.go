package transcribe

import "context"

// Segment is one timed span of transcribed speech. Start and End are seconds
// from the beginning of the full audio track.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Transcript is the full output of a transcription run.
type Transcript struct {
	Text            string    `json:"text"`
	Language        string    `json:"language,omitempty"`
	Provider        string    `json:"provider"`
	DurationSeconds float64   `json:"duration_seconds"`
	Segments        []Segment `json:"segments,omitempty"`
}

// Request describes one transcription call against a provider.
type Request struct {
	AudioPath string
	Language  string
}

// Provider turns an audio file into a transcript. Implementations return
// services.RateLimitError when the upstream throttles and wrap other
// upstream failures in services.ErrProviderUnavailable.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, req Request) (*Transcript, error)
}
