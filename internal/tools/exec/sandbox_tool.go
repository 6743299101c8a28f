package exec

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nexusrelay/agentproxy/internal/agent"
)

// SandboxSessionsTool implements workspace_sandbox_sessions: list and
// release bookkeeping entries for the sandbox runner attached to the
// manager, per §4.6's SandboxSession bookkeeping.
type SandboxSessionsTool struct {
	manager *Manager
}

// NewSandboxSessionsTool creates a workspace_sandbox_sessions tool.
func NewSandboxSessionsTool(manager *Manager) *SandboxSessionsTool {
	return &SandboxSessionsTool{manager: manager}
}

func (t *SandboxSessionsTool) Name() string { return "workspace_sandbox_sessions" }

func (t *SandboxSessionsTool) Description() string {
	return "List or release sandboxed-execution session bookkeeping (run count, last used)."
}

func (t *SandboxSessionsTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"action": map[string]interface{}{
				"type":        "string",
				"enum":        []string{"list", "release"},
				"description": "list all sandbox sessions, or release one by session_id.",
			},
			"session_id": map[string]interface{}{
				"type":        "string",
				"description": "Session id to release (required for action=release).",
			},
		},
		"required": []string{"action"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *SandboxSessionsTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	if t.manager == nil || t.manager.sandbox == nil {
		payload, _ := json.MarshalIndent(map[string]interface{}{"sessions": []string{}}, "", "  ")
		return &agent.ToolResult{Content: string(payload)}, nil
	}

	var input struct {
		Action    string `json:"action"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError("invalid parameters: " + err.Error()), nil
	}

	switch strings.ToLower(strings.TrimSpace(input.Action)) {
	case "list", "":
		payload, _ := json.MarshalIndent(map[string]interface{}{
			"sessions": t.manager.sandbox.ListSessions(),
		}, "", "  ")
		return &agent.ToolResult{Content: string(payload)}, nil
	case "release":
		if strings.TrimSpace(input.SessionID) == "" {
			return toolError("session_id is required"), nil
		}
		released := t.manager.sandbox.ReleaseSession(input.SessionID)
		payload, _ := json.MarshalIndent(map[string]interface{}{"released": released}, "", "  ")
		return &agent.ToolResult{Content: string(payload)}, nil
	default:
		return toolError("unsupported action"), nil
	}
}
