package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/ssestream"

	"github.com/nexusrelay/agentproxy/internal/agent"
	"github.com/nexusrelay/agentproxy/internal/agent/toolconv"
)

// defaultMaxTokens is used whenever a request doesn't specify one.
const defaultMaxTokens = 4096

func maxTokensOrDefault(requested int) int {
	if requested <= 0 {
		return defaultMaxTokens
	}
	return requested
}

// convertAnthropicMessages translates the orchestrator's provider-neutral
// messages into Anthropic wire format: tool calls and tool results become
// content blocks on assistant/user messages respectively, system messages
// are dropped (callers set req.System separately).
func convertAnthropicMessages(messages []agent.CompletionMessage) ([]anthropic.MessageParam, error) {
	var result []anthropic.MessageParam

	for _, msg := range messages {
		if msg.Role == "system" {
			continue
		}

		var content []anthropic.ContentBlockParamUnion
		if msg.Content != "" {
			content = append(content, anthropic.NewTextBlock(msg.Content))
		}
		for _, tr := range msg.ToolResults {
			content = append(content, anthropic.NewToolResultBlock(tr.ToolCallID, tr.Content, tr.IsError))
		}
		for _, tc := range msg.ToolCalls {
			var input map[string]any
			if len(tc.Input) > 0 {
				if err := json.Unmarshal(tc.Input, &input); err != nil {
					return nil, fmt.Errorf("invalid tool call input for %s: %w", tc.Name, err)
				}
			}
			content = append(content, anthropic.NewToolUseBlock(tc.ID, input, tc.Name))
		}

		if len(content) == 0 {
			continue
		}

		if msg.Role == "assistant" {
			result = append(result, anthropic.NewAssistantMessage(content...))
		} else {
			result = append(result, anthropic.NewUserMessage(content...))
		}
	}

	return result, nil
}

// anthropicStream wraps an SSE stream of the native Anthropic protocol,
// shared by any adapter whose upstream speaks that wire format verbatim
// (Azure-hosted Anthropic today).
type anthropicStream struct {
	raw   *ssestream.Stream[anthropic.MessageStreamEventUnion]
	model string
}

func newAnthropicStream(ctx context.Context, client *anthropic.Client, params anthropic.MessageNewParams) (*anthropicStream, error) {
	stream := client.Messages.NewStreaming(ctx, params)
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return &anthropicStream{raw: stream, model: string(params.Model)}, nil
}

// drainInto consumes the stream, translating events into
// agent.CompletionChunk values, until message_stop, a stream error, or
// the stream is exhausted.
func (s *anthropicStream) drainInto(chunks chan<- *agent.CompletionChunk) {
	var currentToolCall *agent.ToolCallRequest
	var currentInput []byte

	for s.raw.Next() {
		event := s.raw.Current()
		switch event.Type {
		case "content_block_start":
			block := event.AsContentBlockStart().ContentBlock
			if block.Type == "tool_use" {
				toolUse := block.AsToolUse()
				currentToolCall = &agent.ToolCallRequest{ID: toolUse.ID, Name: toolUse.Name}
				currentInput = currentInput[:0]
			}
		case "content_block_delta":
			delta := event.AsContentBlockDelta().Delta
			switch delta.Type {
			case "text_delta":
				if delta.Text != "" {
					chunks <- &agent.CompletionChunk{Text: delta.Text}
				}
			case "input_json_delta":
				if delta.PartialJSON != "" {
					currentInput = append(currentInput, delta.PartialJSON...)
				}
			}
		case "content_block_stop":
			if currentToolCall != nil {
				currentToolCall.Input = json.RawMessage(currentInput)
				chunks <- &agent.CompletionChunk{ToolCall: currentToolCall}
				currentToolCall = nil
			}
		case "message_stop":
			chunks <- &agent.CompletionChunk{Done: true}
			return
		case "error":
			chunks <- &agent.CompletionChunk{Error: wrapAnthropicError(s.model, errors.New("anthropic stream error"))}
			return
		}
	}

	if err := s.raw.Err(); err != nil {
		chunks <- &agent.CompletionChunk{Error: wrapAnthropicError(s.model, err)}
	}
}

// wrapAnthropicError classifies a native-Anthropic-wire error, surfacing a
// non-2xx response as an UpstreamError (never retried) and anything else
// as-is.
func wrapAnthropicError(provider string, err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return NewUpstreamError(provider, apiErr.StatusCode, []byte(apiErr.RawJSON()))
	}
	return err
}

func asUpstreamError(provider string, err error) (*UpstreamError, bool) {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return NewUpstreamError(provider, apiErr.StatusCode, []byte(apiErr.RawJSON())), true
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream, true
	}
	return nil, false
}
