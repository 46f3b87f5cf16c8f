package pipeline

import (
	"encoding/json"
	"fmt"
	"time"

	"lectern/internal/analysis"
	"lectern/internal/extraction"
	"lectern/internal/transcribe"
)

// Result is the learning-material payload stored for a completed job and
// served to later submissions of the same video.
type Result struct {
	Metadata       *analysisMetadata         `json:"metadata"`
	Transcript     *transcribe.Transcript    `json:"transcript"`
	Analysis       *analysis.ContentAnalysis `json:"analysis"`
	KnowledgeGraph *analysis.KnowledgeGraph  `json:"knowledge_graph,omitempty"`
	ProcessedAt    time.Time                 `json:"processed_at"`
}

// analysisMetadata is the subset of downloader metadata worth persisting.
type analysisMetadata struct {
	Title           string  `json:"title"`
	Channel         string  `json:"channel,omitempty"`
	DurationSeconds float64 `json:"duration_seconds"`
	UploadDate      string  `json:"upload_date,omitempty"`
	WebpageURL      string  `json:"webpage_url,omitempty"`
	Language        string  `json:"language,omitempty"`
}

func newResultMetadata(meta *extraction.Metadata) *analysisMetadata {
	if meta == nil {
		return nil
	}
	return &analysisMetadata{
		Title:           meta.Title,
		Channel:         meta.Channel,
		DurationSeconds: meta.DurationSeconds,
		UploadDate:      meta.UploadDate,
		WebpageURL:      meta.WebpageURL,
		Language:        meta.Language,
	}
}

// Encode renders the result as its stored JSON form.
func (r *Result) Encode() (string, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(payload), nil
}

// DecodeResult parses a stored result payload.
func DecodeResult(payload string) (*Result, error) {
	var result Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &result, nil
}
