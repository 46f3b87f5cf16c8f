package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"lectern/internal/testsupport"
)

type cliTestEnv struct {
	configPath string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	t.Setenv("HOME", t.TempDir())

	cfg := testsupport.NewConfig(t)
	payload, err := toml.Marshal(*cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, payload, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{configPath: configPath}
}

func runCLI(t *testing.T, args []string, configPath string) (string, error) {
	t.Helper()

	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	cmd := newRootCommand()
	cmd.SetArgs(args)

	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	err := cmd.Execute()
	return buf.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("output missing %q:\n%s", want, output)
	}
}

func TestSubmitAndInspectJob(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"submit", "https://youtube.com/watch?v=cli123"}, env.configPath)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "Queued job")
	requireContains(t, out, "Estimated processing time:")

	fields := strings.Fields(out)
	var jobID string
	for i, field := range fields {
		if field == "job" && i+1 < len(fields) {
			jobID = fields[i+1]
			break
		}
	}
	if jobID == "" {
		t.Fatalf("no job id in output:\n%s", out)
	}

	out, err = runCLI(t, []string{"status", jobID}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "pending")

	out, err = runCLI(t, []string{"jobs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs list: %v", err)
	}
	requireContains(t, out, "cli123")

	out, err = runCLI(t, []string{"jobs", "show", jobID}, env.configPath)
	if err != nil {
		t.Fatalf("jobs show: %v", err)
	}
	requireContains(t, out, "Fingerprint:")

	out, err = runCLI(t, []string{"jobs", "health"}, env.configPath)
	if err != nil {
		t.Fatalf("jobs health: %v", err)
	}
	requireContains(t, out, "pending")
}

func TestSubmitRejectsBadURL(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := runCLI(t, []string{"submit", "not a url"}, env.configPath)
	if err == nil {
		t.Fatal("expected submit to fail for an unusable URL")
	}
}

func TestStatusUnknownJobFails(t *testing.T) {
	env := setupCLITestEnv(t)

	_, err := runCLI(t, []string{"status", "no-such-job"}, env.configPath)
	if err == nil {
		t.Fatal("expected status to fail for an unknown job")
	}
}

func TestResultBeforeCompletionFails(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"submit", "https://youtube.com/watch?v=cli456", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "pending")

	var snapshot struct {
		JobID string `json:"job_id"`
	}
	if unmarshalErr := json.Unmarshal([]byte(out), &snapshot); unmarshalErr != nil {
		t.Fatalf("decode submit output: %v", unmarshalErr)
	}

	_, err = runCLI(t, []string{"result", snapshot.JobID}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "no result yet") {
		t.Fatalf("expected pending-result error, got %v", err)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	setupCLITestEnv(t)

	out, err := runCLI(t, []string{"config", "validate"}, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected overwrite guard, got %v", err)
	}
}

func TestNotifyTestWithoutEndpoint(t *testing.T) {
	env := setupCLITestEnv(t)

	out, err := runCLI(t, []string{"notify", "test"}, env.configPath)
	if err != nil {
		t.Fatalf("notify test: %v", err)
	}
	requireContains(t, out, "No notification endpoint configured")
}
