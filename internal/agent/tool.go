package agent

import (
	"context"
	"encoding/json"
)

type sessionIDKeyType struct{}

var sessionIDKey sessionIDKeyType

// WithSessionID attaches the session ID to ctx so tools that serialize work
// per-session (e.g. the exec package's command queue) can recover it without
// threading it through every Tool.Execute signature.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// SessionIDFromContext returns the session ID attached by WithSessionID, or
// "" if none was attached.
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionIDKey).(string)
	return id
}

// Tool is implemented by anything the orchestrator can dispatch a tool call
// to: built-in workspace tools and dynamically registered MCP tools alike.
type Tool interface {
	Name() string
	Description() string
	Schema() json.RawMessage
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolResult is the outcome of a single Tool.Execute call, before it is
// normalized into a models.ToolResult and appended to session history.
type ToolResult struct {
	Content string
	IsError bool
}

// Model describes a model a provider can serve, surfaced for diagnostics
// and for config validation rather than for client-facing routing.
type Model struct {
	ID             string
	Name           string
	ContextSize    int
	SupportsVision bool
}

// CompletionMessage is a single turn in a completion request, already
// translated from the session's models.Turn history into provider-neutral
// shape.
type CompletionMessage struct {
	Role        string
	Content     string
	ToolCalls   []ToolCallRequest
	ToolResults []ToolResultMessage
}

// ToolCallRequest is a tool invocation the model previously requested,
// replayed back to the provider as assistant-turn context.
type ToolCallRequest struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResultMessage is a previously executed tool result replayed back to
// the provider as a tool-turn message.
type ToolResultMessage struct {
	ToolCallID string
	Content    string
	IsError    bool
}

// CompletionRequest is the provider-neutral shape of a single step's
// upstream call.
type CompletionRequest struct {
	Model       string
	System      string
	Messages    []CompletionMessage
	Tools       []Tool
	MaxTokens   int
	Temperature float64
	TopP        float64
}

// CompletionChunk is one unit of a streamed completion: either a text
// delta, a completed tool call, an error, or the terminal Done marker.
type CompletionChunk struct {
	Text     string
	ToolCall *ToolCallRequest
	Error    error
	Done     bool
}

// Provider adapts one upstream LLM endpoint (Databricks, Azure-hosted
// Anthropic, or Bedrock) to the orchestrator's provider-neutral interface.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req *CompletionRequest) (<-chan *CompletionChunk, error)
}
