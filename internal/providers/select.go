package providers

import (
	"context"
	"fmt"

	"github.com/nexusrelay/agentproxy/internal/agent"
	"github.com/nexusrelay/agentproxy/internal/config"
)

// Select constructs the agent.Provider named by cfg.LLM.Provider,
// translating the config package's YAML-facing provider structs into
// this package's Go-level ones. Exactly one of Databricks, AzureAnthropic,
// Bedrock is consulted, matching LLMConfig's own doc comment.
func Select(ctx context.Context, cfg *config.LLMConfig) (agent.Provider, error) {
	switch cfg.Provider {
	case "databricks":
		return NewDatabricksProvider(DatabricksConfig{
			BaseURL:      cfg.Databricks.APIBase,
			APIKey:       cfg.Databricks.APIKey,
			DefaultModel: cfg.Databricks.DefaultModel,
			EndpointPath: cfg.Databricks.EndpointPath,
		})
	case "azure":
		return NewAzureAnthropicProvider(AzureAnthropicConfig{
			Endpoint:     cfg.AzureAnthropic.Endpoint,
			APIKey:       cfg.AzureAnthropic.APIKey,
			Version:      cfg.AzureAnthropic.Version,
			DefaultModel: cfg.AzureAnthropic.DefaultModel,
		})
	case "bedrock":
		return NewBedrockProvider(ctx, BedrockConfig{
			Region:          cfg.Bedrock.Region,
			AccessKeyID:     cfg.Bedrock.AccessKeyID,
			SecretAccessKey: cfg.Bedrock.SecretAccessKey,
			SessionToken:    cfg.Bedrock.SessionToken,
			DefaultModel:    cfg.Bedrock.DefaultModel,
		})
	default:
		return nil, fmt.Errorf("providers: unknown provider %q (want databricks, azure, or bedrock)", cfg.Provider)
	}
}
