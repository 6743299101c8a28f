package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nexusrelay/agentproxy/internal/agent"
)

// DatabricksConfig configures the Databricks serving-endpoint adapter.
type DatabricksConfig struct {
	// BaseURL is the Databricks workspace base, e.g.
	// "https://<workspace>.cloud.databricks.com".
	BaseURL      string
	APIKey       string
	DefaultModel string
	MaxRetries   int
	RetryDelay   time.Duration
	HTTPClient   *http.Client

	// EndpointPath overrides the default
	// "/serving-endpoints/%s/invocations" template. %s is replaced with
	// the resolved model name. Leave empty to use the default.
	EndpointPath string
}

// DatabricksProvider forwards completion requests to a Databricks
// Mosaic AI serving endpoint hosting an Anthropic-compatible model. The
// request body is rebuilt from the completion request (model, system,
// messages, tools, max_tokens, temperature, with the default model
// substituted when none is given); other fields of the client's original
// request are not forwarded. It is sent to
// "<base>/serving-endpoints/<model>/invocations", authenticated with a
// personal access token as a bearer credential. The endpoint responds
// with a single JSON message rather than an SSE stream, so this adapter
// issues one non-streaming request and replays it onto the channel as a
// handful of chunks instead of incrementally parsing server-sent events.
type DatabricksProvider struct {
	BaseProvider
	baseURL      string
	apiKey       string
	defaultModel string
	endpointPath string
	httpClient   *http.Client
}

// NewDatabricksProvider builds a DatabricksProvider from config.
func NewDatabricksProvider(cfg DatabricksConfig) (*DatabricksProvider, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("databricks: base url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("databricks: api key is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	endpointPath := cfg.EndpointPath
	if strings.TrimSpace(endpointPath) == "" {
		endpointPath = "/serving-endpoints/%s/invocations"
	}
	return &DatabricksProvider{
		BaseProvider: NewBaseProvider("databricks", cfg.MaxRetries, cfg.RetryDelay),
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		endpointPath: endpointPath,
		httpClient:   httpClient,
	}, nil
}

type databricksRequestBody struct {
	Model       string                      `json:"model"`
	System      string                      `json:"system,omitempty"`
	Messages    []databricksMessage         `json:"messages"`
	Tools       []databricksTool            `json:"tools,omitempty"`
	MaxTokens   int                         `json:"max_tokens"`
	Temperature float64                     `json:"temperature,omitempty"`
}

type databricksMessage struct {
	Role    string                    `json:"role"`
	Content []databricksContentBlock  `json:"content"`
}

type databricksContentBlock struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	ID         string          `json:"id,omitempty"`
	Name       string          `json:"name,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	ToolUseID  string          `json:"tool_use_id,omitempty"`
	Content    string          `json:"content,omitempty"`
	IsError    bool            `json:"is_error,omitempty"`
}

type databricksTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type databricksResponse struct {
	Content    []databricksContentBlock `json:"content"`
	StopReason string                   `json:"stop_reason"`
}

func (p *DatabricksProvider) buildRequestBody(req *agent.CompletionRequest) (*databricksRequestBody, error) {
	body := &databricksRequestBody{
		Model:       p.modelOrDefault(req.Model),
		System:      req.System,
		MaxTokens:   maxTokensOrDefault(req.MaxTokens),
		Temperature: req.Temperature,
	}

	for _, msg := range req.Messages {
		if msg.Role == "system" {
			continue
		}
		var blocks []databricksContentBlock
		if msg.Content != "" {
			blocks = append(blocks, databricksContentBlock{Type: "text", Text: msg.Content})
		}
		for _, tr := range msg.ToolResults {
			blocks = append(blocks, databricksContentBlock{
				Type: "tool_result", ToolUseID: tr.ToolCallID, Content: tr.Content, IsError: tr.IsError,
			})
		}
		for _, tc := range msg.ToolCalls {
			blocks = append(blocks, databricksContentBlock{
				Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: tc.Input,
			})
		}
		if len(blocks) == 0 {
			continue
		}
		role := "user"
		if msg.Role == "assistant" {
			role = "assistant"
		}
		body.Messages = append(body.Messages, databricksMessage{Role: role, Content: blocks})
	}

	for _, tool := range req.Tools {
		body.Tools = append(body.Tools, databricksTool{
			Name:        tool.Name(),
			Description: tool.Description(),
			InputSchema: tool.Schema(),
		})
	}

	return body, nil
}

func (p *DatabricksProvider) modelOrDefault(model string) string {
	if model == "" {
		return p.defaultModel
	}
	return model
}

func (p *DatabricksProvider) invocationsURL(model string) string {
	return p.baseURL + fmt.Sprintf(p.endpointPath, model)
}

// Complete issues a single request to the serving endpoint and replays
// the resulting message as a small sequence of chunks: one text chunk (if
// any text content is present), one chunk per tool_use block, then Done.
// A non-2xx response is wrapped as an UpstreamError and passed straight
// through without retry; only connection-level failures retry.
func (p *DatabricksProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	chunks := make(chan *agent.CompletionChunk)

	go func() {
		defer close(chunks)

		reqBody, err := p.buildRequestBody(req)
		if err != nil {
			chunks <- &agent.CompletionChunk{Error: fmt.Errorf("databricks: %w", err)}
			return
		}
		payload, err := json.Marshal(reqBody)
		if err != nil {
			chunks <- &agent.CompletionChunk{Error: fmt.Errorf("databricks: encode request: %w", err)}
			return
		}

		var respBody []byte
		var respStatus int
		err = p.Retry(ctx, IsTransportError, func() error {
			httpReq, buildErr := http.NewRequestWithContext(ctx, http.MethodPost, p.invocationsURL(reqBody.Model), bytes.NewReader(payload))
			if buildErr != nil {
				return buildErr
			}
			httpReq.Header.Set("Content-Type", "application/json")
			httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

			resp, doErr := p.httpClient.Do(httpReq)
			if doErr != nil {
				return doErr
			}
			defer resp.Body.Close()

			body, readErr := io.ReadAll(resp.Body)
			if readErr != nil {
				return readErr
			}
			respStatus = resp.StatusCode
			respBody = body
			return nil
		})
		if err != nil {
			chunks <- &agent.CompletionChunk{Error: fmt.Errorf("databricks: %w", err)}
			return
		}
		if respStatus < 200 || respStatus >= 300 {
			chunks <- &agent.CompletionChunk{Error: NewUpstreamError("databricks", respStatus, respBody)}
			return
		}

		var parsed databricksResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			chunks <- &agent.CompletionChunk{Error: fmt.Errorf("databricks: decode response: %w", err)}
			return
		}

		for _, block := range parsed.Content {
			switch block.Type {
			case "text":
				if block.Text != "" {
					chunks <- &agent.CompletionChunk{Text: block.Text}
				}
			case "tool_use":
				chunks <- &agent.CompletionChunk{ToolCall: &agent.ToolCallRequest{
					ID: block.ID, Name: block.Name, Input: block.Input,
				}}
			}
		}
		chunks <- &agent.CompletionChunk{Done: true}
	}()

	return chunks, nil
}
