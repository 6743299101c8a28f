package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  extra: true
llm:
  provider: databricks
`)

	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestLoadValidatesProvider(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: openai
`)

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "llm.provider") {
		t.Fatalf("expected llm.provider error, got %v", err)
	}
}

func TestLoadValidatesSandboxPermissionMode(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: databricks
policy:
  sandbox:
    permission_mode: nope
`)

	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "permission_mode") {
		t.Fatalf("expected permission_mode error, got %v", err)
	}
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9000
llm:
  provider: azure
  azure_anthropic:
    endpoint: https://example.openai.azure.com/v1/messages
    api_key: test-key
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected config to load, got %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Fatalf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Cache.MaxEntries != 64 {
		t.Fatalf("expected default cache.max_entries=64, got %d", cfg.Cache.MaxEntries)
	}
	if cfg.Policy.MaxSteps != 8 {
		t.Fatalf("expected default policy.max_steps=8, got %d", cfg.Policy.MaxSteps)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
llm:
  provider: databricks
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Session.DBPath != "data/sessions.db" {
		t.Fatalf("expected default session db path, got %q", cfg.Session.DBPath)
	}
	if cfg.WebSearch.Endpoint != "http://localhost:8888/search" {
		t.Fatalf("expected default web search endpoint, got %q", cfg.WebSearch.Endpoint)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("MODEL_PROVIDER", "bedrock")
	t.Setenv("SESSION_DB_PATH", "/tmp/custom.db")

	path := writeConfig(t, `
server:
  port: 8080
llm:
  provider: databricks
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Fatalf("expected port override, got %d", cfg.Server.Port)
	}
	if cfg.LLM.Provider != "bedrock" {
		t.Fatalf("expected provider override, got %q", cfg.LLM.Provider)
	}
	if cfg.Session.DBPath != "/tmp/custom.db" {
		t.Fatalf("expected session db path override, got %q", cfg.Session.DBPath)
	}
}

func TestLoadResolvesIncludes(t *testing.T) {
	dir := t.TempDir()
	basePath := filepath.Join(dir, "base.yaml")
	if err := os.WriteFile(basePath, []byte("policy:\n  max_steps: 20\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	mainPath := filepath.Join(dir, "nexus.yaml")
	contents := "include: base.yaml\nllm:\n  provider: databricks\n"
	if err := os.WriteFile(mainPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(mainPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Policy.MaxSteps != 20 {
		t.Fatalf("expected included max_steps=20, got %d", cfg.Policy.MaxSteps)
	}
}

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "agentproxy.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimSpace(contents)), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}
