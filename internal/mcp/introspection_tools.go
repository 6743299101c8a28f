package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nexusrelay/agentproxy/internal/agent"
)

// serverReport is workspace_mcp_servers' per-server payload: the connection
// status plus any tool whose input_schema failed to compile as JSON Schema.
type serverReport struct {
	ServerStatus
	InvalidSchemas []string `json:"invalid_schemas,omitempty"`
}

// ServersTool implements workspace_mcp_servers: report the connection
// state of every configured MCP server (§4.5), for a client that wants
// to know what's available before reaching for workspace_mcp_call.
type ServersTool struct {
	manager *Manager
}

// NewServersTool creates a workspace_mcp_servers tool.
func NewServersTool(manager *Manager) *ServersTool {
	return &ServersTool{manager: manager}
}

func (t *ServersTool) Name() string { return "workspace_mcp_servers" }

func (t *ServersTool) Description() string {
	return "List configured MCP servers with their connection state and tool/resource/prompt counts."
}

func (t *ServersTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object"}`)
}

func (t *ServersTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	_ = params
	if t.manager == nil {
		payload, _ := json.MarshalIndent(map[string]interface{}{"servers": []serverReport{}}, "", "  ")
		return &agent.ToolResult{Content: string(payload)}, nil
	}

	allTools := t.manager.AllTools()
	reports := make([]serverReport, 0)
	for _, status := range t.manager.Status() {
		report := serverReport{ServerStatus: status}
		for _, tool := range allTools[status.ID] {
			if _, err := compileToolSchema(tool.InputSchema); err != nil {
				report.InvalidSchemas = append(report.InvalidSchemas, fmt.Sprintf("%s: %v", tool.Name, err))
			}
		}
		reports = append(reports, report)
	}

	payload, err := json.MarshalIndent(map[string]interface{}{"servers": reports}, "", "  ")
	if err != nil {
		return nil, err
	}
	return &agent.ToolResult{Content: string(payload)}, nil
}

// CallTool implements workspace_mcp_call: invoke a tool on a connected MCP
// server by server_id and tool name, bypassing the mcp_<server>_<tool>
// bridge registration for callers that discovered the tool via
// workspace_mcp_servers/AllTools rather than the LLM's static tool list.
type CallTool struct {
	manager *Manager
}

// NewCallTool creates a workspace_mcp_call tool.
func NewCallTool(manager *Manager) *CallTool {
	return &CallTool{manager: manager}
}

func (t *CallTool) Name() string { return "workspace_mcp_call" }

func (t *CallTool) Description() string {
	return "Call a tool on a connected MCP server directly, given server_id, tool, and arguments."
}

func (t *CallTool) Schema() json.RawMessage {
	schema := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"server_id": map[string]interface{}{
				"type":        "string",
				"description": "ID of the connected MCP server to call.",
			},
			"tool": map[string]interface{}{
				"type":        "string",
				"description": "Name of the tool as reported by the server.",
			},
			"arguments": map[string]interface{}{
				"type":        "object",
				"description": "Arguments passed through to the MCP tool call.",
			},
		},
		"required": []string{"server_id", "tool"},
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func (t *CallTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if t.manager == nil {
		return &agent.ToolResult{Content: "no MCP manager configured", IsError: true}, nil
	}

	var input struct {
		ServerID  string         `json:"server_id"`
		Tool      string         `json:"tool"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(params, &input); err != nil {
		return &agent.ToolResult{Content: "invalid parameters: " + err.Error(), IsError: true}, nil
	}
	if strings.TrimSpace(input.ServerID) == "" || strings.TrimSpace(input.Tool) == "" {
		return &agent.ToolResult{Content: "server_id and tool are required", IsError: true}, nil
	}

	// Schema validation is advisory, not enforced (§9: upstream tool-call
	// arguments are an open-world dictionary): a mismatch is logged so a
	// misbehaving server is visible, but the call still goes through.
	if client, ok := t.manager.Client(input.ServerID); ok {
		for _, tool := range client.Tools() {
			if tool.Name != input.Tool {
				continue
			}
			if err := validateToolArguments(tool.InputSchema, input.Arguments); err != nil {
				slog.Warn("mcp call arguments do not match tool schema",
					"server", input.ServerID, "tool", input.Tool, "error", err)
			}
			break
		}
	}

	result, err := t.manager.CallTool(ctx, input.ServerID, input.Tool, input.Arguments)
	if err != nil {
		return &agent.ToolResult{Content: err.Error(), IsError: true}, nil
	}

	content, isError := formatToolCallResult(result)
	return &agent.ToolResult{Content: content, IsError: isError}, nil
}
