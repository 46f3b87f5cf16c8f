package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateQuota(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateIntervals(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTranscription() error {
	if !c.Transcription.Primary.Configured() && !c.Transcription.Secondary.Configured() {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/lectern/config.toml"
		}
		return fmt.Errorf("no transcription provider configured. Set WHISPERAPI_API_KEY or DEEPGRAM_API_KEY env vars or edit %s (create with 'lectern config init')", defaultPath)
	}
	for _, p := range []Provider{c.Transcription.Primary, c.Transcription.Secondary} {
		if !p.Configured() {
			continue
		}
		switch p.Name {
		case "whisperapi", "deepgram":
		default:
			return fmt.Errorf("transcription provider %q is not supported", p.Name)
		}
	}
	return nil
}

func (c *Config) validateQuota() error {
	for provider, limit := range c.Quota.Limits {
		if limit < 0 {
			return fmt.Errorf("quota.limits[%s] must not be negative", provider)
		}
	}
	return nil
}

func (c *Config) validateLLM() error {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/lectern/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set OPENROUTER_API_KEY env var or edit %s (create with 'lectern config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateIntervals() error {
	return ensurePositiveMap(map[string]int{
		"extraction.timeout_seconds":            c.Extraction.TimeoutSeconds,
		"transcription.retry_attempts":          c.Transcription.RetryAttempts,
		"transcription.chunk_seconds":           c.Transcription.ChunkSeconds,
		"quota.window_seconds":                  c.Quota.WindowSeconds,
		"notifications.request_timeout":         c.Notifications.RequestTimeout,
		"notifications.max_attempts":            c.Notifications.MaxAttempts,
		"notifications.batch_size":              c.Notifications.BatchSize,
		"notifications.drain_interval_seconds":  c.Notifications.DrainIntervalSeconds,
		"workflow.job_poll_interval":            c.Workflow.JobPollInterval,
		"workflow.error_retry_interval":         c.Workflow.ErrorRetryInterval,
		"workflow.max_concurrent_jobs":          c.Workflow.MaxConcurrentJobs,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return errors.New(name + " must be positive")
		}
	}
	return nil
}
