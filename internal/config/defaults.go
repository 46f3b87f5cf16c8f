package config

const (
	defaultDataDir = "~/.local/share/lectern"
	defaultWorkDir = "~/.local/share/lectern/work"
	defaultLogDir  = "~/.local/share/lectern/logs"

	defaultYtDlpBinary        = "yt-dlp"
	defaultFFmpegBinary       = "ffmpeg"
	defaultExtractionTimeout  = 600
	defaultPrimaryProvider    = "whisperapi"
	defaultPrimaryBaseURL     = "https://api.openai.com/v1/audio/transcriptions"
	defaultPrimaryModel       = "whisper-1"
	defaultSecondaryProvider  = "deepgram"
	defaultSecondaryBaseURL   = "https://api.deepgram.com/v1/listen"
	defaultSecondaryModel     = "nova-2"
	defaultRetryAttempts      = 3
	defaultRetryDelaySeconds  = 2
	defaultRateLimitWaitCap   = 120
	defaultChunkSeconds       = 1200
	defaultLanguageHint       = "en"
	defaultQuotaWindowSeconds = 3600
	defaultQuotaLimitSeconds  = 7200

	defaultCacheEnabled = true

	defaultLLMBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel          = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds = 120

	defaultNotifyRequestTimeout = 10
	defaultNotifyMaxAttempts    = 3
	defaultNotifyBatchSize      = 20
	defaultNotifyDrainInterval  = 30
	defaultNotifyDedupWindow    = 86400

	defaultSnapshotTTLSeconds = 3600

	defaultJobPollInterval    = 5
	defaultErrorRetryInterval = 10
	defaultMaxConcurrentJobs  = 4

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Extraction: Extraction{
			YtDlpBinary:    defaultYtDlpBinary,
			FFmpegBinary:   defaultFFmpegBinary,
			TimeoutSeconds: defaultExtractionTimeout,
		},
		Transcription: Transcription{
			Primary: Provider{
				Name:    defaultPrimaryProvider,
				BaseURL: defaultPrimaryBaseURL,
				Model:   defaultPrimaryModel,
			},
			Secondary: Provider{
				Name:    defaultSecondaryProvider,
				BaseURL: defaultSecondaryBaseURL,
				Model:   defaultSecondaryModel,
			},
			RetryAttempts:           defaultRetryAttempts,
			RetryDelaySeconds:       defaultRetryDelaySeconds,
			RateLimitWaitCapSeconds: defaultRateLimitWaitCap,
			ChunkSeconds:            defaultChunkSeconds,
			DefaultLanguage:         defaultLanguageHint,
		},
		Quota: Quota{
			WindowSeconds: defaultQuotaWindowSeconds,
			Limits: map[string]float64{
				defaultPrimaryProvider:   defaultQuotaLimitSeconds,
				defaultSecondaryProvider: defaultQuotaLimitSeconds,
			},
		},
		Cache: Cache{
			Enabled: defaultCacheEnabled,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout:       defaultNotifyRequestTimeout,
			MaxAttempts:          defaultNotifyMaxAttempts,
			BatchSize:            defaultNotifyBatchSize,
			DrainIntervalSeconds: defaultNotifyDrainInterval,
			DedupWindowSeconds:   defaultNotifyDedupWindow,
		},
		Snapshots: Snapshots{
			TTLSeconds: defaultSnapshotTTLSeconds,
		},
		Workflow: Workflow{
			JobPollInterval:    defaultJobPollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			MaxConcurrentJobs:  defaultMaxConcurrentJobs,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
