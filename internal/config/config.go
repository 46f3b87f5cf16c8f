package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Extraction contains configuration for the media extraction tooling.
type Extraction struct {
	YtDlpBinary    string `toml:"ytdlp_binary"`
	FFmpegBinary   string `toml:"ffmpeg_binary"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Provider contains connection settings for one transcription provider.
type Provider struct {
	Name    string `toml:"name"`
	APIKey  string `toml:"api_key"`
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

// Configured reports whether the provider has usable credentials.
func (p Provider) Configured() bool {
	return strings.TrimSpace(p.Name) != "" && strings.TrimSpace(p.APIKey) != ""
}

// Transcription contains configuration for speech-to-text providers.
type Transcription struct {
	Primary   Provider `toml:"primary"`
	Secondary Provider `toml:"secondary"`
	// RetryAttempts bounds retries per provider for ordinary transient errors.
	RetryAttempts     int `toml:"retry_attempts"`
	RetryDelaySeconds int `toml:"retry_delay_seconds"`
	// RateLimitWaitCapSeconds is the longest provider-suggested wait the client
	// will honor inline; longer hints trigger fallback instead.
	RateLimitWaitCapSeconds int    `toml:"rate_limit_wait_cap_seconds"`
	ChunkSeconds            int    `toml:"chunk_seconds"`
	DefaultLanguage         string `toml:"default_language"`
}

// Quota contains per-provider usage window limits.
type Quota struct {
	WindowSeconds int `toml:"window_seconds"`
	// Limits maps provider name to audio-seconds allowed per window.
	Limits map[string]float64 `toml:"limits"`
}

// Cache contains configuration for the content-addressed result cache.
type Cache struct {
	Enabled bool `toml:"enabled"`
	// TTLSeconds controls entry expiry; zero means entries never expire.
	TTLSeconds int `toml:"ttl_seconds"`
}

// LLM contains shared connection settings for the content analysis provider.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications contains configuration for outbound push notifications.
type Notifications struct {
	Endpoint             string `toml:"endpoint"`
	Recipient            string `toml:"recipient"`
	RequestTimeout       int    `toml:"request_timeout"`
	MaxAttempts          int    `toml:"max_attempts"`
	BatchSize            int    `toml:"batch_size"`
	DrainIntervalSeconds int    `toml:"drain_interval_seconds"`
	DedupWindowSeconds   int    `toml:"dedup_window_seconds"`
}

// Snapshots contains configuration for the fast status read-path cache.
// When RedisAddr is empty an in-process cache is used instead.
type Snapshots struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	TTLSeconds    int    `toml:"ttl_seconds"`
}

// Workflow contains daemon timing and concurrency settings.
type Workflow struct {
	JobPollInterval    int `toml:"job_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	MaxConcurrentJobs  int `toml:"max_concurrent_jobs"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Lectern.
//
// Configuration sections by subsystem:
//   - Paths: data, scratch, and log directories
//   - Extraction: yt-dlp/ffmpeg binaries and timeouts
//   - Transcription: primary/secondary speech-to-text providers and retry knobs
//   - Quota: rolling per-provider usage window limits
//   - Cache: content-addressed result cache behavior
//   - LLM: content analysis provider connection settings
//   - Notifications: outbound delivery queue and sender endpoint
//   - Snapshots: fast status read-path store (redis or in-process)
//   - Workflow: daemon polling intervals and job concurrency
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Extraction    Extraction    `toml:"extraction"`
	Transcription Transcription `toml:"transcription"`
	Quota         Quota         `toml:"quota"`
	Cache         Cache         `toml:"cache"`
	LLM           LLM           `toml:"llm"`
	Notifications Notifications `toml:"notifications"`
	Snapshots     Snapshots     `toml:"snapshots"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/lectern/config.toml")
}

// SampleConfig returns the embedded annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("lectern.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.WorkDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the durable SQLite store.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "lectern.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
