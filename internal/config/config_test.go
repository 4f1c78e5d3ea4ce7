package config

import (
	"os"
	"testing"
)

const sampleConfig = `
llm:
  provider: openai
  base_url: https://api.example.com/v1
  api_key: dummy
  model: gpt-4o
  max_tokens: 512
  temperature: 0.2
storage:
  driver: sqlite
  path: /tmp/sessions.db
  debounce_ms: 50
  max_sessions: 5
pricing:
  gpt-4o: 0.004
server:
  host: 0.0.0.0
  port: "9090"
log:
  level: debug
`

// TestLoad verifies that Load unmarshals a full configuration file.
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
	if cfg.LLM.Model != "gpt-4o" {
		t.Fatalf("unexpected model: %s", cfg.LLM.Model)
	}
	if cfg.LLM.MaxTokens != 512 {
		t.Fatalf("unexpected max_tokens: %d", cfg.LLM.MaxTokens)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("unexpected driver: %s", cfg.Storage.Driver)
	}
	if cfg.Storage.MaxSessions != 5 {
		t.Fatalf("unexpected max_sessions: %d", cfg.Storage.MaxSessions)
	}
	if cfg.Pricing["gpt-4o"] != 0.004 {
		t.Fatalf("pricing not parsed: %v", cfg.Pricing)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("unexpected port: %s", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log level: %s", cfg.Log.Level)
	}
}

// TestLoad_Defaults verifies that a missing config file yields defaults
// instead of an error.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("unexpected default model: %s", cfg.LLM.Model)
	}
	if cfg.Storage.Driver != "file" {
		t.Fatalf("unexpected default driver: %s", cfg.Storage.Driver)
	}
	if cfg.Storage.MaxSessions != 10 {
		t.Fatalf("unexpected default max_sessions: %d", cfg.Storage.MaxSessions)
	}
	if cfg.Storage.DebounceMs != 300 {
		t.Fatalf("unexpected default debounce: %d", cfg.Storage.DebounceMs)
	}
}
