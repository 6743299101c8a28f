package testsrun

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/nexusrelay/agentproxy/internal/tools/exec"
)

func TestRunToolUsesDefaultCommand(t *testing.T) {
	mgr := exec.NewManager(t.TempDir())
	store := NewStore()
	tool := NewRunTool(mgr, store, "echo test-output")

	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success: %s", result.Content)
	}
	if !strings.Contains(result.Content, "test-output") {
		t.Fatalf("expected command output in result: %s", result.Content)
	}

	history := store.History(0)
	if len(history) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(history))
	}
}

func TestRunToolNoCommandConfigured(t *testing.T) {
	mgr := exec.NewManager(t.TempDir())
	tool := NewRunTool(mgr, NewStore(), "")
	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected error when no command is configured")
	}
}

func TestSummaryToolReportsCounts(t *testing.T) {
	store := NewStore()
	store.Record("go test", 0, 0, "", "")
	tool := NewSummaryTool(store)
	result, err := tool.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(result.Content, `"total_runs": 1`) {
		t.Fatalf("expected total_runs in summary: %s", result.Content)
	}
}
