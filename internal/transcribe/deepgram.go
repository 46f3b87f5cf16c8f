package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"lectern/internal/config"
	"lectern/internal/services"
)

const (
	deepgramDefaultBaseURL = "https://api.deepgram.com/v1/listen"
	deepgramDefaultModel   = "nova-2"
)

// DeepgramProvider transcribes audio through Deepgram's pre-recorded API.
type DeepgramProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

// NewDeepgramProvider builds a provider from its config section.
func NewDeepgramProvider(cfg config.Provider) *DeepgramProvider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = deepgramDefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = deepgramDefaultModel
	}
	return &DeepgramProvider{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 10 * time.Minute},
	}
}

func (p *DeepgramProvider) Name() string { return "deepgram" }

func (p *DeepgramProvider) Transcribe(ctx context.Context, req Request) (*Transcript, error) {
	audio, err := os.Open(req.AudioPath)
	if err != nil {
		return nil, services.Wrap(services.ErrInvalidInput, "transcribe", "deepgram", "open audio file", err)
	}
	defer audio.Close()

	endpoint, err := url.Parse(p.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	query := endpoint.Query()
	query.Set("model", p.model)
	query.Set("smart_format", "true")
	query.Set("utterances", "true")
	if lang := NormalizeLanguage(req.Language); lang != "" {
		query.Set("language", lang)
	}
	endpoint.RawQuery = query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), audio)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Token "+p.apiKey)
	httpReq.Header.Set("Content-Type", "audio/mpeg")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, "transcribe", "deepgram", "request failed", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrProviderUnavailable, "transcribe", "deepgram", "read response", err)
	}
	if err := checkProviderResponse(p.Name(), resp, payload); err != nil {
		return nil, err
	}

	var decoded struct {
		Metadata struct {
			Duration float64 `json:"duration"`
		} `json:"metadata"`
		Results struct {
			Channels []struct {
				DetectedLanguage string `json:"detected_language"`
				Alternatives     []struct {
					Transcript string  `json:"transcript"`
					Confidence float64 `json:"confidence"`
				} `json:"alternatives"`
			} `json:"channels"`
			Utterances []struct {
				Start      float64 `json:"start"`
				End        float64 `json:"end"`
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"utterances"`
		} `json:"results"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, services.Wrap(services.ErrUnsupportedFormat, "transcribe", "deepgram", "decode response", err)
	}
	if len(decoded.Results.Channels) == 0 || len(decoded.Results.Channels[0].Alternatives) == 0 {
		return nil, services.Wrap(services.ErrEmptyAudio, "transcribe", "deepgram", "provider returned no transcript", nil)
	}

	channel := decoded.Results.Channels[0]
	transcript := &Transcript{
		Text:            channel.Alternatives[0].Transcript,
		Language:        NormalizeLanguage(channel.DetectedLanguage),
		Provider:        p.Name(),
		DurationSeconds: decoded.Metadata.Duration,
	}
	for _, utterance := range decoded.Results.Utterances {
		transcript.Segments = append(transcript.Segments, Segment{
			Start:      utterance.Start,
			End:        utterance.End,
			Text:       utterance.Transcript,
			Confidence: utterance.Confidence,
		})
	}
	return transcript, nil
}
