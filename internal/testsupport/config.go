package testsupport

import (
	"path/filepath"
	"testing"

	"lectern/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Transcription.Primary.APIKey = "test"
	cfgVal.Transcription.Secondary.APIKey = "test"
	cfgVal.LLM.APIKey = "test"
	cfgVal.Snapshots.RedisAddr = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return builder.cfg
}

// WithProviders overrides the transcription provider names on the test config.
func WithProviders(primary, secondary string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transcription.Primary.Name = primary
		b.cfg.Transcription.Secondary.Name = secondary
	}
}

// WithQuotaLimit sets a per-provider quota limit on the test config.
func WithQuotaLimit(provider string, limit float64) ConfigOption {
	return func(b *configBuilder) {
		if b.cfg.Quota.Limits == nil {
			b.cfg.Quota.Limits = make(map[string]float64)
		}
		b.cfg.Quota.Limits[provider] = limit
	}
}

// WithCacheTTL sets the result cache TTL in seconds on the test config.
func WithCacheTTL(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Cache.TTLSeconds = seconds
	}
}
