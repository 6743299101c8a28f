package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestServersToolNilManager(t *testing.T) {
	tool := NewServersTool(nil)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success: %s", result.Content)
	}
	if !strings.Contains(result.Content, `"servers"`) {
		t.Fatalf("expected a servers field: %s", result.Content)
	}
}

func TestServersToolReportsConfiguredServers(t *testing.T) {
	cfg := &Config{
		Enabled: true,
		Servers: []*ServerConfig{
			{ID: "docs", Name: "Docs", Transport: TransportStdio, Command: "echo"},
		},
	}
	mgr := NewManager(cfg, slog.Default())
	tool := NewServersTool(mgr)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(result.Content, `"id": "docs"`) {
		t.Fatalf("expected configured server in report: %s", result.Content)
	}
	if !strings.Contains(result.Content, `"connected": false`) {
		t.Fatalf("expected docs to be reported as not connected: %s", result.Content)
	}
}

func TestCallToolNilManager(t *testing.T) {
	tool := NewCallTool(nil)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{"server_id":"docs","tool":"search"}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error with no manager configured")
	}
}

func TestCallToolRequiresServerAndToolName(t *testing.T) {
	mgr := NewManager(&Config{Enabled: true}, slog.Default())
	tool := NewCallTool(mgr)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error when server_id/tool are missing")
	}
}

func TestCallToolServerNotConnected(t *testing.T) {
	mgr := NewManager(&Config{Enabled: true}, slog.Default())
	tool := NewCallTool(mgr)

	result, err := tool.Execute(context.Background(), json.RawMessage(`{"server_id":"docs","tool":"search"}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error calling a tool on a server with no connected client")
	}
}
