package config

import (
	"os"
	"testing"
)

const sampleConfig = `
server:
  host: 127.0.0.1
  port: "9000"
llm:
  base_url: https://llm.example.com/v1
  api_key: dummy
  model: gpt-4o
  cheap_model: gpt-4o-mini
chat:
  history_limit: 12
  summarize_after: 4
  use_cheap_model_for_summary: false
encryption:
  key: test-secret
auth:
  jwt_secret: test-jwt
  jwt_expiration_days: 7
`

// TestLoad verifies that Load unmarshals a yaml config file.
func TestLoad(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "cfg-*.yaml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	if _, err := tmp.WriteString(sampleConfig); err != nil {
		t.Fatalf("write: %v", err)
	}
	tmp.Close()

	t.Setenv("CONFIG_PATH", tmp.Name())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9000" {
		t.Fatalf("unexpected port: %s", cfg.Server.Port)
	}
	if cfg.LLM.CheapModel != "gpt-4o-mini" {
		t.Fatalf("unexpected cheap model: %s", cfg.LLM.CheapModel)
	}
	if cfg.Chat.HistoryLimit != 12 || cfg.Chat.SummarizeAfter != 4 {
		t.Fatalf("chat knobs not parsed: %+v", cfg.Chat)
	}
	if cfg.Chat.UseCheapModelForSummary {
		t.Fatalf("expected use_cheap_model_for_summary=false")
	}
	if cfg.Encryption.Key != "test-secret" {
		t.Fatalf("encryption key not parsed")
	}
	if cfg.Auth.JWTExpirationDays != 7 {
		t.Fatalf("jwt expiration not parsed: %d", cfg.Auth.JWTExpirationDays)
	}
}

// chdir switches the working directory for the test and restores it on
// cleanup (stand-in for t.Chdir, which needs Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(cwd); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	})
}

// TestLoadDefaults verifies defaults apply when no config file exists.
func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Chat.HistoryLimit != 10 {
		t.Fatalf("expected default history_limit 10, got %d", cfg.Chat.HistoryLimit)
	}
	if cfg.Chat.SummarizeAfter != 6 {
		t.Fatalf("expected default summarize_after 6, got %d", cfg.Chat.SummarizeAfter)
	}
	if !cfg.Chat.UseCheapModelForSummary {
		t.Fatalf("expected cheap-model summaries on by default")
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Fatalf("unexpected default model: %s", cfg.LLM.Model)
	}
}

// TestLoadEnvOverride verifies environment variables override file values.
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("NOUS_LLM_API_KEY", "from-env")
	chdir(t, t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.APIKey != "from-env" {
		t.Fatalf("env override not applied: %q", cfg.LLM.APIKey)
	}
}
