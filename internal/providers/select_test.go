package providers

import (
	"context"
	"testing"

	"github.com/nexusrelay/agentproxy/internal/config"
)

func TestSelect_Databricks(t *testing.T) {
	cfg := &config.LLMConfig{
		Provider: "databricks",
		Databricks: config.DatabricksConfig{
			APIBase:      "https://example.cloud.databricks.com",
			APIKey:       "token",
			DefaultModel: "claude-sonnet",
		},
	}
	provider, err := Select(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if provider.Name() != "databricks" {
		t.Errorf("Name() = %q, want databricks", provider.Name())
	}
}

func TestSelect_Azure(t *testing.T) {
	cfg := &config.LLMConfig{
		Provider: "azure",
		AzureAnthropic: config.AzureAnthropicConfig{
			Endpoint:     "https://example.openai.azure.com",
			APIKey:       "token",
			Version:      "2023-06-01",
			DefaultModel: "claude-sonnet",
		},
	}
	provider, err := Select(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if provider.Name() != "azure-anthropic" {
		t.Errorf("Name() = %q, want azure-anthropic", provider.Name())
	}
}

func TestSelect_UnknownProvider(t *testing.T) {
	cfg := &config.LLMConfig{Provider: "openai"}
	if _, err := Select(context.Background(), cfg); err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
}

func TestSelect_DatabricksMissingCredentials(t *testing.T) {
	cfg := &config.LLMConfig{Provider: "databricks"}
	if _, err := Select(context.Background(), cfg); err == nil {
		t.Fatal("expected an error when databricks credentials are missing")
	}
}
