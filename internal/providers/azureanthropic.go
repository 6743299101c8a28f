package providers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/nexusrelay/agentproxy/internal/agent"
	"github.com/nexusrelay/agentproxy/internal/agent/toolconv"
)

// AzureAnthropicConfig configures the Azure-hosted Anthropic adapter.
type AzureAnthropicConfig struct {
	// Endpoint is the full Azure-hosted Anthropic messages endpoint URL.
	Endpoint string
	// APIKey is sent as the x-api-key header, same as native Anthropic.
	APIKey string
	// Version overrides the anthropic-version header. Defaults to
	// "2023-06-01".
	Version      string
	DefaultModel string
	MaxRetries   int
	RetryDelay   time.Duration
}

// AzureAnthropicProvider talks to an Azure-hosted deployment of the
// Anthropic Messages API. The wire format is identical to native
// Anthropic, so this adapter reuses anthropic-sdk-go pointed at the
// Azure endpoint rather than hand-rolling a second HTTP client — only
// the base URL and the anthropic-version header differ.
type AzureAnthropicProvider struct {
	BaseProvider
	client       anthropic.Client
	defaultModel string
}

// NewAzureAnthropicProvider builds an AzureAnthropicProvider from config.
func NewAzureAnthropicProvider(cfg AzureAnthropicConfig) (*AzureAnthropicProvider, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, fmt.Errorf("azureanthropic: endpoint is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("azureanthropic: api key is required")
	}
	version := cfg.Version
	if version == "" {
		version = "2023-06-01"
	}
	defaultModel := cfg.DefaultModel
	if defaultModel == "" {
		defaultModel = "claude-sonnet-4-20250514"
	}

	client := anthropic.NewClient(
		option.WithBaseURL(cfg.Endpoint),
		option.WithHeader("x-api-key", cfg.APIKey),
		option.WithHeader("anthropic-version", version),
	)

	return &AzureAnthropicProvider{
		BaseProvider: NewBaseProvider("azure-anthropic", cfg.MaxRetries, cfg.RetryDelay),
		client:       client,
		defaultModel: defaultModel,
	}, nil
}

func (p *AzureAnthropicProvider) modelOrDefault(model string) string {
	if model == "" {
		return p.defaultModel
	}
	return model
}

// Complete streams a completion from the Azure-hosted Anthropic endpoint.
// Transport-level errors retry with exponential backoff via BaseProvider.Retry;
// a non-2xx response from Azure surfaces as an UpstreamError and is never
// retried, per the failure-passthrough rule.
func (p *AzureAnthropicProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	chunks := make(chan *agent.CompletionChunk)

	go func() {
		defer close(chunks)

		messages, err := convertAnthropicMessages(req.Messages)
		if err != nil {
			chunks <- &agent.CompletionChunk{Error: fmt.Errorf("azureanthropic: %w", err)}
			return
		}
		tools, err := toolconv.ToAnthropicTools(req.Tools)
		if err != nil {
			chunks <- &agent.CompletionChunk{Error: fmt.Errorf("azureanthropic: %w", err)}
			return
		}

		params := anthropic.MessageNewParams{
			Model:     anthropic.Model(p.modelOrDefault(req.Model)),
			Messages:  messages,
			MaxTokens: int64(maxTokensOrDefault(req.MaxTokens)),
		}
		if req.System != "" {
			params.System = []anthropic.TextBlockParam{{Text: req.System}}
		}
		if len(tools) > 0 {
			params.Tools = tools
		}

		var stream *anthropicStream
		err = p.Retry(ctx, IsTransportError, func() error {
			s, callErr := newAnthropicStream(ctx, &p.client, params)
			if callErr != nil {
				return callErr
			}
			stream = s
			return nil
		})
		if err != nil {
			if upstream, ok := asUpstreamError("azure-anthropic", err); ok {
				chunks <- &agent.CompletionChunk{Error: upstream}
				return
			}
			chunks <- &agent.CompletionChunk{Error: err}
			return
		}

		stream.drainInto(chunks)
	}()

	return chunks, nil
}
