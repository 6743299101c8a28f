package edits

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nexusrelay/agentproxy/internal/agent"
)

// PathResolver resolves a workspace-relative path to an absolute one,
// rejecting paths that escape the workspace root. files.Resolver
// satisfies this interface; declaring it here (instead of importing
// internal/tools/files) avoids an import cycle, since files imports
// this package to record write/patch snapshots.
type PathResolver interface {
	Resolve(path string) (string, error)
}

// HistoryTool implements workspace_edit_history.
type HistoryTool struct {
	store *Store
}

// NewHistoryTool creates a workspace_edit_history tool.
func NewHistoryTool(store *Store) *HistoryTool {
	return &HistoryTool{store: store}
}

func (t *HistoryTool) Name() string { return "workspace_edit_history" }

func (t *HistoryTool) Description() string {
	return "List recorded before/after snapshots of workspace writes and patches, optionally filtered by path."
}

func (t *HistoryTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"path": map[string]interface{}{
				"type":        "string",
				"description": "Limit history to this workspace-relative path.",
			},
			"limit": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum entries to return (default 20).",
				"minimum":     1,
			},
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
	var input struct {
		Path  string `json:"path"`
		Limit int    `json:"limit"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &input); err != nil {
			return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
		}
	}
	if input.Limit <= 0 {
		input.Limit = 20
	}
	if t.store == nil {
		payload, _ := json.MarshalIndent(map[string]interface{}{"entries": []Entry{}}, "", "  ")
		return &agent.ToolResult{Content: string(payload)}, nil
	}
	payload, _ := json.MarshalIndent(map[string]interface{}{
		"entries": t.store.History(input.Path, input.Limit),
	}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

// RevertTool implements workspace_edit_revert: writes an entry's
// "before" snapshot back to disk.
type RevertTool struct {
	store    *Store
	resolver PathResolver
}

// NewRevertTool creates a workspace_edit_revert tool using resolver to
// validate revert targets stay within the workspace.
func NewRevertTool(store *Store, resolver PathResolver) *RevertTool {
	return &RevertTool{store: store, resolver: resolver}
}

func (t *RevertTool) Name() string { return "workspace_edit_revert" }

func (t *RevertTool) Description() string {
	return "Revert a file to the 'before' snapshot of a recorded edit-history entry."
}

func (t *RevertTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"edit_id": map[string]interface{}{
				"type":        "string",
				"description": "Edit-history entry id to revert.",
			},
		},
		"required": []string{"edit_id"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *RevertTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	if t.store == nil {
		return toolError("edit history unavailable"), nil
	}
	var input struct {
		EditID string `json:"edit_id"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.EditID) == "" {
		return toolError("edit_id is required"), nil
	}
	entry, ok := t.store.Get(input.EditID)
	if !ok {
		return toolError("edit not found: " + input.EditID), nil
	}
	resolved, err := t.resolver.Resolve(entry.Path)
	if err != nil {
		return toolError(err.Error()), nil
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return toolError(fmt.Sprintf("create directory: %v", err)), nil
	}
	if err := os.WriteFile(resolved, []byte(entry.Before), 0o644); err != nil {
		return toolError(fmt.Sprintf("write file: %v", err)), nil
	}
	t.store.Record("workspace_edit_revert", entry.Path, entry.After, entry.Before)

	payload, _ := json.MarshalIndent(map[string]interface{}{
		"path":     entry.Path,
		"reverted": input.EditID,
	}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

func toolError(message string) *agent.ToolResult {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return &agent.ToolResult{Content: string(payload), IsError: true}
}
