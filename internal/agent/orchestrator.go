package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/nexusrelay/agentproxy/internal/cache"
	"github.com/nexusrelay/agentproxy/internal/policy"
	"github.com/nexusrelay/agentproxy/internal/sessions"
	"github.com/nexusrelay/agentproxy/pkg/models"
)

// webFallbackPatterns trigger a synthetic web_fetch call when the final
// assistant text claims it has no web access, unless the text also looks
// like a genuine stock-quote answer.
var webFallbackPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)i (do|don't|cannot) have (browser|browsing|internet) (capability|access)`),
	regexp.MustCompile(`(?i)cannot look up information`),
	regexp.MustCompile(`(?i)no web browsing capability`),
	regexp.MustCompile(`(?i)can'?t (access|reach) the internet`),
	regexp.MustCompile(`(?i)(do not|don't) have access to .*web (?:browsing|browser|internet)`),
	regexp.MustCompile(`(?i)(do not|don't) have .*browser`),
	regexp.MustCompile(`(?i)web(fetch|_fetch| search).*(not available|disabled|unavailable)`),
	regexp.MustCompile(`(?i)tool.*(not available|disabled|unavailable)`),
	regexp.MustCompile(`(?i)don't have access to real-time`),
}

var webFallbackSuppressors = []*regexp.Regexp{
	regexp.MustCompile(`(?i)closed at \$`),
	regexp.MustCompile(`(?i)previous close`),
	regexp.MustCompile(`(?i)day's range`),
	regexp.MustCompile(`(?i)trading volume`),
}

func triggersWebFallback(text string) bool {
	matched := false
	for _, pattern := range webFallbackPatterns {
		if pattern.MatchString(text) {
			matched = true
			break
		}
	}
	if !matched {
		return false
	}
	for _, suppressor := range webFallbackSuppressors {
		if suppressor.MatchString(text) {
			return false
		}
	}
	return true
}

// StepResult is what ProcessMessage returns: a final assistant message in
// Anthropic-compatible shape, a termination reason, and (for non-2xx
// provider failures) the upstream status/body to pass through verbatim.
type StepResult struct {
	Body              json.RawMessage
	TerminationReason TerminationReason
	UpstreamStatus    int
	UpstreamBody      []byte
}

// OrchestratorConfig bounds one session's step loop.
type OrchestratorConfig struct {
	MaxSteps            int
	MaxToolCallsPerTurn int
	MaxDuration         time.Duration
	CacheEnabled        bool
	WebFallbackEnabled  bool

	// WorkspaceSystemPrompt, when non-empty, is appended to every
	// incoming request's system prompt: project-level context
	// (AGENTS.md, TOOLS.md, MEMORY.md under the workspace root) the
	// model should see regardless of what the client sent.
	WorkspaceSystemPrompt string

	// Policy is the tool policy every request is evaluated against,
	// built from config (§4.2: profile, disallowed tools, git and sandbox
	// sub-flags). Defaults to policy.ProfileCoding with no restrictions
	// if nil.
	Policy *policy.Policy
}

// Orchestrator runs the §4.1 step loop: cache probe, provider call, parse,
// append, terminate-or-dispatch-tools, repeat.
type Orchestrator struct {
	provider Provider
	registry *ToolRegistry
	executor *Executor
	resolver *policy.Resolver
	cache    *cache.PromptCache
	store    *sessions.Store
	cfg      OrchestratorConfig
}

// NewOrchestrator wires a provider, tool registry/executor, policy
// resolver, prompt cache, and session store into one request-processing
// loop.
func NewOrchestrator(provider Provider, registry *ToolRegistry, executor *Executor, resolver *policy.Resolver, promptCache *cache.PromptCache, store *sessions.Store, cfg OrchestratorConfig) *Orchestrator {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 8
	}
	if cfg.MaxToolCallsPerTurn <= 0 {
		cfg.MaxToolCallsPerTurn = 12
	}
	if cfg.Policy == nil {
		cfg.Policy = policy.NewPolicy(policy.ProfileCoding)
	}
	return &Orchestrator{
		provider: provider,
		registry: registry,
		executor: executor,
		resolver: resolver,
		cache:    promptCache,
		store:    store,
		cfg:      cfg,
	}
}

// anthropicRequest is the subset of the incoming request body the
// orchestrator rewrites between steps.
type anthropicRequest struct {
	Model       string          `json:"model"`
	System      string          `json:"system,omitempty"`
	Messages    json.RawMessage `json:"messages"`
	Tools       json.RawMessage `json:"tools,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	TopP        float64         `json:"top_p,omitempty"`
}

type anthropicContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

type anthropicResponse struct {
	ID      string                  `json:"id,omitempty"`
	Role    string                  `json:"role"`
	Content []anthropicContentBlock `json:"content"`
	Model   string                  `json:"model,omitempty"`
	StopReason string               `json:"stop_reason,omitempty"`
}

// ProcessMessage runs the step loop for one incoming /v1/messages request
// against the given session, returning the final assistant message or an
// upstream failure to pass through verbatim.
func (o *Orchestrator) ProcessMessage(ctx context.Context, rawBody json.RawMessage, session *models.Session) (*StepResult, error) {
	start := time.Now()
	if session != nil {
		ctx = WithSessionID(ctx, session.ID)
	}

	var req anthropicRequest
	if err := json.Unmarshal(rawBody, &req); err != nil {
		return nil, fmt.Errorf("orchestrator: decode request: %w", err)
	}

	toolPolicy := o.cfg.Policy

	if o.cfg.CacheEnabled && o.cache != nil {
		if key, err := cache.Key(rawBody); err == nil {
			if cached, ok := o.cache.Get(key, time.Now()); ok {
				o.appendTurn(ctx, session, models.RoleAssistant, cached.Body)
				return &StepResult{Body: cached.Body, TerminationReason: TerminationCacheHit}, nil
			}
		}
	}

	messages, err := decodeMessages(req.Messages)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: decode messages: %w", err)
	}
	tools := o.registry.AsLLMTools()

	system := req.System
	if o.cfg.WorkspaceSystemPrompt != "" {
		if system != "" {
			system = system + "\n\n" + o.cfg.WorkspaceSystemPrompt
		} else {
			system = o.cfg.WorkspaceSystemPrompt
		}
	}

	toolCallsThisTurn := 0
	for step := 0; step < o.cfg.MaxSteps; step++ {
		if o.cfg.MaxDuration > 0 && time.Since(start) > o.cfg.MaxDuration {
			return o.synthesizeLimit(ctx, session, TerminationDurationLimit), nil
		}

		completionReq := &CompletionRequest{
			Model:       req.Model,
			System:      system,
			Messages:    messages,
			Tools:       tools,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
			TopP:        req.TopP,
		}

		chunks, err := o.provider.Complete(ctx, completionReq)
		if err != nil {
			if upstreamErr, ok := asUpstreamError(err); ok {
				return &StepResult{
					TerminationReason: TerminationProviderError,
					UpstreamStatus:    upstreamErr.Status,
					UpstreamBody:      upstreamErr.Body,
				}, nil
			}
			return nil, err
		}

		respText, toolCalls, respErr := drainCompletion(chunks)
		if respErr != nil {
			if upstreamErr, ok := asUpstreamError(respErr); ok {
				return &StepResult{
					TerminationReason: TerminationProviderError,
					UpstreamStatus:    upstreamErr.Status,
					UpstreamBody:      upstreamErr.Body,
				}, nil
			}
			return nil, respErr
		}

		assistantBody := buildAssistantResponse(req.Model, respText, toolCalls)
		o.appendTurn(ctx, session, models.RoleAssistant, assistantBody)

		if len(toolCalls) == 0 {
			if o.cfg.WebFallbackEnabled && triggersWebFallback(respText) {
				fetchCall := models.ToolCall{
					ID:    "web_fallback",
					Name:  "web_fetch",
					Input: json.RawMessage(`{}`),
				}
				results := o.executor.ExecuteSequential(ctx, []models.ToolCall{fetchCall}, toolPolicy, nil)
				o.appendTurn(ctx, session, models.RoleTool, ResultsToJSON(results))
				messages = append(messages, toAssistantMessage(respText, nil), toolResultsMessage(results))
				continue
			}

			sanitized := policy.Sanitize(respText)
			final := buildAssistantResponse(req.Model, sanitized, nil)
			if o.cfg.CacheEnabled && o.cache != nil {
				if key, err := cache.Key(rawBody); err == nil && cache.Admit(true, 200, false) {
					o.cache.Put(key, final, time.Now())
				}
			}
			return &StepResult{Body: final, TerminationReason: TerminationCompletion}, nil
		}

		callsToRun := toolCalls
		quotaHit := false
		shouldContinue := func(index int) bool {
			if toolCallsThisTurn+index >= o.cfg.MaxToolCallsPerTurn {
				quotaHit = true
				return false
			}
			return true
		}
		results := o.executor.ExecuteSequential(ctx, callsToRun, toolPolicy, shouldContinue)
		toolCallsThisTurn += len(callsToRun)
		o.appendTurn(ctx, session, models.RoleTool, ResultsToJSON(results))

		if quotaHit {
			return o.synthesizeLimit(ctx, session, TerminationToolLimit), nil
		}

		messages = append(messages, toAssistantMessage(respText, toolCalls), toolResultsMessage(results))
	}

	return o.synthesizeLimit(ctx, session, TerminationStepLimit), nil
}

func (o *Orchestrator) synthesizeLimit(ctx context.Context, session *models.Session, reason TerminationReason) *StepResult {
	body := buildAssistantResponse("", fmt.Sprintf("stopped: %s", reason), nil)
	o.appendTurn(ctx, session, models.RoleAssistant, body)
	return &StepResult{Body: body, TerminationReason: reason}
}

func (o *Orchestrator) appendTurn(ctx context.Context, session *models.Session, role models.Role, content json.RawMessage) {
	if o.store == nil || session == nil {
		return
	}
	turn := models.Turn{Role: role, Content: content}
	if _, err := o.store.AppendSessionTurn(ctx, session.ID, turn, nil); err != nil {
		return
	}
}

func asUpstreamError(err error) (*ProviderUpstreamError, bool) {
	var upstreamErr *ProviderUpstreamError
	if errors.As(err, &upstreamErr) {
		return upstreamErr, true
	}
	return nil, false
}

func decodeMessages(raw json.RawMessage) ([]CompletionMessage, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var entries []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, err
	}
	out := make([]CompletionMessage, 0, len(entries))
	for _, entry := range entries {
		var text string
		if err := json.Unmarshal(entry.Content, &text); err != nil {
			text = string(bytes.TrimSpace(entry.Content))
		}
		out = append(out, CompletionMessage{Role: entry.Role, Content: text})
	}
	return out, nil
}

func drainCompletion(chunks <-chan *CompletionChunk) (string, []models.ToolCall, error) {
	var text bytes.Buffer
	var toolCalls []models.ToolCall
	for chunk := range chunks {
		if chunk.Error != nil {
			return "", nil, chunk.Error
		}
		if chunk.Text != "" {
			text.WriteString(chunk.Text)
		}
		if chunk.ToolCall != nil {
			toolCalls = append(toolCalls, models.ToolCall{
				ID:    chunk.ToolCall.ID,
				Name:  chunk.ToolCall.Name,
				Input: chunk.ToolCall.Input,
			})
		}
		if chunk.Done {
			break
		}
	}
	return text.String(), toolCalls, nil
}

func buildAssistantResponse(model, text string, toolCalls []models.ToolCall) json.RawMessage {
	blocks := make([]anthropicContentBlock, 0, 1+len(toolCalls))
	if text != "" {
		blocks = append(blocks, anthropicContentBlock{Type: "text", Text: text})
	}
	stopReason := "end_turn"
	for _, call := range toolCalls {
		blocks = append(blocks, anthropicContentBlock{
			Type:  "tool_use",
			ID:    call.ID,
			Name:  call.Name,
			Input: call.Input,
		})
		stopReason = "tool_use"
	}
	resp := anthropicResponse{Role: "assistant", Content: blocks, Model: model, StopReason: stopReason}
	body, err := json.Marshal(resp)
	if err != nil {
		return json.RawMessage(`{"role":"assistant","content":[]}`)
	}
	return body
}

func toAssistantMessage(text string, toolCalls []models.ToolCall) CompletionMessage {
	msg := CompletionMessage{Role: "assistant", Content: text}
	for _, call := range toolCalls {
		msg.ToolCalls = append(msg.ToolCalls, ToolCallRequest{ID: call.ID, Name: call.Name, Input: call.Input})
	}
	return msg
}

func toolResultsMessage(results []models.ToolResult) CompletionMessage {
	msg := CompletionMessage{Role: "tool"}
	for _, result := range results {
		msg.ToolResults = append(msg.ToolResults, ToolResultMessage{
			ToolCallID: result.ToolCallID,
			Content:    result.Content,
			IsError:    result.IsError(),
		})
	}
	return msg
}
