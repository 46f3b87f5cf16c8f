package transcribe

import (
	"fmt"
	"log/slog"
	"strings"

	"lectern/internal/config"
	"lectern/internal/quota"
)

// NewProvider instantiates the named provider, or nil when the section is
// left unconfigured.
func NewProvider(cfg config.Provider) (Provider, error) {
	if !cfg.Configured() {
		return nil, nil
	}
	switch strings.ToLower(cfg.Name) {
	case "whisperapi":
		return NewWhisperAPIProvider(cfg), nil
	case "deepgram":
		return NewDeepgramProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported transcription provider %q", cfg.Name)
	}
}

// NewClientFromConfig wires the configured primary and secondary providers
// into a fallback client.
func NewClientFromConfig(cfg *config.Config, monitor *quota.Monitor, logger *slog.Logger) (*Client, error) {
	primary, err := NewProvider(cfg.Transcription.Primary)
	if err != nil {
		return nil, err
	}
	secondary, err := NewProvider(cfg.Transcription.Secondary)
	if err != nil {
		return nil, err
	}
	return NewClient(cfg.Transcription, primary, secondary, monitor, logger), nil
}
