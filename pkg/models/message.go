// Package models defines the core domain types shared across the agent
// orchestrator, tool registry, policy engine, and session store.
package models

import (
	"encoding/json"
	"time"
)

// Role indicates the author of a Turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Session is a durable, client-named conversation context with an
// append-only history. Identity is a stable opaque id supplied by the
// client or generated on first contact.
type Session struct {
	ID        string         `json:"id"`
	Generated bool           `json:"generated"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	History   []Turn         `json:"history,omitempty"`
}

// Turn is a single append-only entry in a Session's history.
type Turn struct {
	ID        int64          `json:"id,omitempty"`
	Role      Role           `json:"role"`
	Type      string         `json:"type,omitempty"`
	Status    int            `json:"status,omitempty"`
	Content   json.RawMessage `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// ToolCall is a transient value describing a single tool invocation
// requested by the upstream model within one turn.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
	Raw   json.RawMessage `json:"-"`
}

// ToolResult is the normalized outcome of executing a ToolCall.
type ToolResult struct {
	ToolCallID string         `json:"tool_call_id"`
	OK         bool           `json:"ok"`
	Status     int            `json:"status"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Error      *ToolResultError `json:"error,omitempty"`
}

// ToolResultError describes a recovered tool/policy failure surfaced as
// the content of a tool-role Turn rather than an HTTP-level error.
type ToolResultError struct {
	Code    string `json:"code"`
	Tool    string `json:"tool,omitempty"`
	Message string `json:"message"`
}

// IsError reports whether this result represents a recovered failure.
func (r ToolResult) IsError() bool {
	return !r.OK || r.Error != nil
}

// ToolSummary describes one tool available to a session, whether a
// built-in workspace tool or one dynamically registered from an MCP
// server, for introspection surfaces like workspace_mcp_servers.
type ToolSummary struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Schema      json.RawMessage `json:"schema,omitempty"`
	Source      string          `json:"source"`
	Namespace   string          `json:"namespace,omitempty"`
	Canonical   string          `json:"canonical,omitempty"`
}
