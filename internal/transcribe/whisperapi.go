package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"lectern/internal/config"
	"lectern/internal/services"
)

const (
	whisperDefaultBaseURL = "https://api.openai.com/v1/audio/transcriptions"
	whisperDefaultModel   = "whisper-1"
)

// WhisperAPIProvider transcribes audio through an OpenAI-compatible
// transcription endpoint.
type WhisperAPIProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewWhisperAPIProvider builds a provider from its config section.
func NewWhisperAPIProvider(cfg config.Provider) *WhisperAPIProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = whisperDefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = whisperDefaultModel
	}
	return &WhisperAPIProvider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

func (p *WhisperAPIProvider) Name() string { return "whisperapi" }

func (p *WhisperAPIProvider) Transcribe(ctx context.Context, req Request) (*Transcript, error) {
	audio, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "transcribe", "whisperapi", "open audio file", err)
	}
	defer audio.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filepath.Base(req.AudioPath))
	if err != nil {
		return nil, fmt.Errorf("build multipart request: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("copy audio into request: %w", err)
	}
	_ = writer.WriteField("model", p.model)
	_ = writer.WriteField("response_format", "verbose_json")
	if lang := NormalizeLanguage(req.Language); lang != "" {
		_ = writer.WriteField("language", lang)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize multipart request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, "transcribe", "whisperapi", "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, "transcribe", "whisperapi", "read response", err)
	}
	if err := checkProviderResponse(p.Name(), resp, payload); err != nil {
		return nil, err
	}

	var decoded struct {
		Text     string  `json:"text"`
		Language string  `json:"language"`
		Duration float64 `json:"duration"`
		Segments []struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Text  string  `json:"text"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, services.Wrap(services.ErrUnsupportedFormat, "transcribe", "whisperapi", "decode response", err)
	}

	transcript := &Transcript{
		Text:            decoded.Text,
		Language:        NormalizeLanguage(decoded.Language),
		Provider:        p.Name(),
		DurationSeconds: decoded.Duration,
	}
	for _, segment := range decoded.Segments {
		transcript.Segments = append(transcript.Segments, Segment{
			Start: segment.Start,
			End:   segment.End,
			Text:  segment.Text,
		})
	}
	return transcript, nil
}

// checkProviderResponse maps upstream HTTP failures onto service errors.
// 429 carries the throttle delay so callers can wait or fall back.
func checkProviderResponse(provider string, resp *http.Response, payload []byte) error {
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return &services.RateLimitError{
			Provider:   provider,
			RetryAfter: retryAfterFromResponse(resp, string(payload)),
		}
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnsupportedMediaType:
		return services.Wrap(services.ErrUnsupportedFormat, "transcribe", provider,
			fmt.Sprintf("provider rejected audio (status %d)", resp.StatusCode), nil)
	default:
		return services.Wrap(services.ErrProviderUnavailable, "transcribe", provider,
			fmt.Sprintf("provider returned status %d: %s", resp.StatusCode, truncate(string(payload), 200)), nil)
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
