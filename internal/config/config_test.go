package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"lectern/internal/config"
)

func TestLoadDefaultsUseEnvKeysAndExpandPaths(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "llm-key")
	t.Setenv("WHISPERAPI_API_KEY", "stt-key")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "lectern")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.LLM.APIKey != "llm-key" {
		t.Fatalf("expected LLM key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Transcription.Primary.APIKey != "stt-key" {
		t.Fatalf("expected primary provider key from env, got %q", cfg.Transcription.Primary.APIKey)
	}
	if cfg.Transcription.Primary.Name != "whisperapi" {
		t.Fatalf("unexpected primary provider: %q", cfg.Transcription.Primary.Name)
	}
	if cfg.Transcription.RateLimitWaitCapSeconds != 120 {
		t.Fatalf("unexpected rate limit wait cap: %d", cfg.Transcription.RateLimitWaitCapSeconds)
	}
	if cfg.Quota.WindowSeconds != 3600 {
		t.Fatalf("unexpected quota window: %d", cfg.Quota.WindowSeconds)
	}
	if !cfg.Cache.Enabled {
		t.Fatal("expected cache enabled by default")
	}
	if cfg.DatabasePath() != filepath.Join(wantData, "lectern.db") {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
}

func TestLoadParsesConfigFile(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := strings.Join([]string{
		"[llm]",
		`api_key = "file-key"`,
		"[transcription.primary]",
		`name = "Deepgram"`,
		`api_key = "dg"`,
		"[quota.limits]",
		"Deepgram = 100.0",
		"[workflow]",
		"max_concurrent_jobs = 2",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected config at %q to be used, got %q exists=%v", path, resolved, exists)
	}
	if cfg.LLM.APIKey != "file-key" {
		t.Fatalf("unexpected llm key: %q", cfg.LLM.APIKey)
	}
	if cfg.Transcription.Primary.Name != "deepgram" {
		t.Fatalf("expected provider name lowercased, got %q", cfg.Transcription.Primary.Name)
	}
	if cfg.Quota.Limits["deepgram"] != 100 {
		t.Fatalf("expected normalized quota key, got %#v", cfg.Quota.Limits)
	}
	if cfg.Workflow.MaxConcurrentJobs != 2 {
		t.Fatalf("unexpected max concurrent jobs: %d", cfg.Workflow.MaxConcurrentJobs)
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = "k"
	cfg.Transcription.Primary = config.Provider{Name: "acme", APIKey: "k"}
	cfg.Transcription.Secondary = config.Provider{}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for unknown provider")
	}
}

func TestValidateRequiresSomeProvider(t *testing.T) {
	t.Setenv("WHISPERAPI_API_KEY", "")
	t.Setenv("DEEPGRAM_API_KEY", "")
	cfg := config.Default()
	cfg.LLM.APIKey = "k"
	cfg.Transcription.Primary.APIKey = ""
	cfg.Transcription.Secondary.APIKey = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error when no provider configured")
	}
	if !strings.Contains(err.Error(), "transcription provider") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSampleConfigMentionsEverySection(t *testing.T) {
	sample := config.SampleConfig()
	for _, section := range []string{"[paths]", "[extraction]", "[transcription]", "[quota]", "[cache]", "[llm]", "[notifications]", "[snapshots]", "[workflow]", "[logging]"} {
		if !strings.Contains(sample, section) {
			t.Fatalf("sample config missing %s", section)
		}
	}
}
