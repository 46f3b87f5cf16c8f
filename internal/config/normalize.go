package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeExtraction()
	c.normalizeTranscription()
	c.normalizeQuota()
	c.normalizeLLM()
	c.normalizeNotifications()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeExtraction() {
	if strings.TrimSpace(c.Extraction.YtDlpBinary) == "" {
		c.Extraction.YtDlpBinary = defaultYtDlpBinary
	}
	if strings.TrimSpace(c.Extraction.FFmpegBinary) == "" {
		c.Extraction.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Extraction.TimeoutSeconds <= 0 {
		c.Extraction.TimeoutSeconds = defaultExtractionTimeout
	}
}

func (c *Config) normalizeTranscription() {
	normalizeProvider(&c.Transcription.Primary, "WHISPERAPI_API_KEY")
	normalizeProvider(&c.Transcription.Secondary, "DEEPGRAM_API_KEY")
	if c.Transcription.RetryAttempts <= 0 {
		c.Transcription.RetryAttempts = defaultRetryAttempts
	}
	if c.Transcription.RetryDelaySeconds <= 0 {
		c.Transcription.RetryDelaySeconds = defaultRetryDelaySeconds
	}
	if c.Transcription.RateLimitWaitCapSeconds <= 0 {
		c.Transcription.RateLimitWaitCapSeconds = defaultRateLimitWaitCap
	}
	if c.Transcription.ChunkSeconds <= 0 {
		c.Transcription.ChunkSeconds = defaultChunkSeconds
	}
	if strings.TrimSpace(c.Transcription.DefaultLanguage) == "" {
		c.Transcription.DefaultLanguage = defaultLanguageHint
	}
}

func normalizeProvider(p *Provider, envKey string) {
	p.Name = strings.ToLower(strings.TrimSpace(p.Name))
	p.APIKey = strings.TrimSpace(p.APIKey)
	p.BaseURL = strings.TrimSpace(p.BaseURL)
	if p.APIKey == "" {
		if value, ok := os.LookupEnv(envKey); ok {
			p.APIKey = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeQuota() {
	if c.Quota.WindowSeconds <= 0 {
		c.Quota.WindowSeconds = defaultQuotaWindowSeconds
	}
	if c.Quota.Limits == nil {
		c.Quota.Limits = map[string]float64{}
	}
	normalized := make(map[string]float64, len(c.Quota.Limits))
	for provider, limit := range c.Quota.Limits {
		normalized[strings.ToLower(strings.TrimSpace(provider))] = limit
	}
	c.Quota.Limits = normalized
}

func (c *Config) normalizeLLM() {
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = value
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	if strings.TrimSpace(c.LLM.Model) == "" {
		c.LLM.Model = defaultLLMModel
	}
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.Endpoint = strings.TrimSpace(c.Notifications.Endpoint)
	c.Notifications.Recipient = strings.TrimSpace(c.Notifications.Recipient)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	if c.Notifications.MaxAttempts <= 0 {
		c.Notifications.MaxAttempts = defaultNotifyMaxAttempts
	}
	if c.Notifications.BatchSize <= 0 {
		c.Notifications.BatchSize = defaultNotifyBatchSize
	}
	if c.Notifications.DrainIntervalSeconds <= 0 {
		c.Notifications.DrainIntervalSeconds = defaultNotifyDrainInterval
	}
	if c.Notifications.DedupWindowSeconds <= 0 {
		c.Notifications.DedupWindowSeconds = defaultNotifyDedupWindow
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.JobPollInterval <= 0 {
		c.Workflow.JobPollInterval = defaultJobPollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.MaxConcurrentJobs <= 0 {
		c.Workflow.MaxConcurrentJobs = defaultMaxConcurrentJobs
	}
	if c.Snapshots.TTLSeconds <= 0 {
		c.Snapshots.TTLSeconds = defaultSnapshotTTLSeconds
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
