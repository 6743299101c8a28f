package testsrun

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nexusrelay/agentproxy/internal/agent"
	"github.com/nexusrelay/agentproxy/internal/tools/exec"
)

// RunTool implements workspace_test_run.
type RunTool struct {
	manager        *exec.Manager
	store          *Store
	defaultCommand string
}

// NewRunTool creates a workspace_test_run tool. defaultCommand is used
// when a call omits "command".
func NewRunTool(manager *exec.Manager, store *Store, defaultCommand string) *RunTool {
	return &RunTool{manager: manager, store: store, defaultCommand: defaultCommand}
}

func (t *RunTool) Name() string        { return "workspace_test_run" }
func (t *RunTool) Description() string { return "Run the workspace's test command and record the result." }
func (t *RunTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"command": map[string]interface{}{
				"type":        "string",
				"description": "Test command to run (default: server-configured test command).",
			},
			"timeout_seconds": map[string]interface{}{
				"type":        "integer",
				"description": "Timeout in seconds (0 = default).",
				"minimum":     0,
			},
		},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *RunTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if t.manager == nil {
		return toolError("exec manager unavailable"), nil
	}
	var in struct {
		Command        string `json:"command"`
		TimeoutSeconds int    `json:"timeout_seconds"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &in); err != nil {
			return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
		}
	}
	command := strings.TrimSpace(in.Command)
	if command == "" {
		command = t.defaultCommand
	}
	if command == "" {
		return toolError("no test command configured; pass \"command\""), nil
	}

	timeout := time.Duration(in.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	result, err := t.manager.RunCommand(ctx, command, "", nil, "", timeout)
	if err != nil {
		return toolError(err.Error()), nil
	}

	var run Run
	if t.store != nil {
		run = t.store.Record(command, result.ExitCode, result.Duration, result.Stdout, result.Stderr)
	} else {
		run = Run{Command: command, Passed: result.ExitCode == 0, ExitCode: result.ExitCode, Duration: result.Duration, Stdout: result.Stdout, Stderr: result.Stderr}
	}

	payload, _ := json.MarshalIndent(run, "", "  ")
	toolResult := &agent.ToolResult{Content: string(payload)}
	if !run.Passed {
		toolResult.IsError = true
	}
	return toolResult, nil
}

// HistoryTool implements workspace_test_history.
type HistoryTool struct{ store *Store }

func NewHistoryTool(store *Store) *HistoryTool { return &HistoryTool{store: store} }

func (t *HistoryTool) Name() string        { return "workspace_test_history" }
func (t *HistoryTool) Description() string { return "List recorded test run results, most recent first." }
func (t *HistoryTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"limit": map[string]interface{}{"type": "integer", "description": "Maximum runs to return (default 20)."},
		},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}
func (t *HistoryTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	var in struct {
		Limit int `json:"limit"`
	}
	if len(params) > 0 {
		_ = json.Unmarshal(params, &in)
	}
	if in.Limit <= 0 {
		in.Limit = 20
	}
	if t.store == nil {
		payload, _ := json.MarshalIndent(map[string]interface{}{"runs": []Run{}}, "", "  ")
		return &agent.ToolResult{Content: string(payload)}, nil
	}
	payload, _ := json.MarshalIndent(map[string]interface{}{"runs": t.store.History(in.Limit)}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

// SummaryTool implements workspace_test_summary.
type SummaryTool struct{ store *Store }

func NewSummaryTool(store *Store) *SummaryTool { return &SummaryTool{store: store} }

func (t *SummaryTool) Name() string        { return "workspace_test_summary" }
func (t *SummaryTool) Description() string { return "Summarize recorded test run pass/fail rates." }
func (t *SummaryTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}
func (t *SummaryTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	_ = params
	if t.store == nil {
		payload, _ := json.MarshalIndent(Summary{}, "", "  ")
		return &agent.ToolResult{Content: string(payload)}, nil
	}
	payload, _ := json.MarshalIndent(t.store.Summary(), "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

func toolError(message string) *agent.ToolResult {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return &agent.ToolResult{Content: string(payload), IsError: true}
}
