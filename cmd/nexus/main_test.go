package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	required := []string{"serve", "config", "mcp"}
	for _, name := range required {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

func writeTestConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "agentproxy.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigValidateCommand(t *testing.T) {
	path := writeTestConfig(t, `
llm:
  provider: databricks
  databricks:
    api_base: https://example.cloud.databricks.com
    api_key: token
session:
  db_path: ""
`)

	cmd := buildRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"config", "validate", "--config", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("config OK")) {
		t.Errorf("expected success message, got:\n%s", out.String())
	}
}

func TestMcpListCommand_NoServers(t *testing.T) {
	path := writeTestConfig(t, `
llm:
  provider: databricks
  databricks:
    api_base: https://example.cloud.databricks.com
    api_key: token
session:
  db_path: ""
mcp:
  manifest_dirs: []
`)

	cmd := buildRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"mcp", "list", "--config", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("no MCP servers discovered")) {
		t.Errorf("expected no-servers message, got:\n%s", out.String())
	}
}
