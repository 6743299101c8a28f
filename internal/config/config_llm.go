package config

// LLMConfig selects and configures the upstream provider adapter (§6).
// Exactly one of Databricks, AzureAnthropic, Bedrock is consulted,
// selected by Provider.
type LLMConfig struct {
	// Provider selects the upstream adapter: "databricks", "azure", or
	// "bedrock".
	Provider string `yaml:"provider"`

	Databricks     DatabricksConfig     `yaml:"databricks"`
	AzureAnthropic AzureAnthropicConfig `yaml:"azure_anthropic"`
	Bedrock        BedrockConfig        `yaml:"bedrock"`
}

// DatabricksConfig configures the Databricks Mosaic AI serving-endpoint
// adapter.
type DatabricksConfig struct {
	APIBase      string `yaml:"api_base"`
	APIKey       string `yaml:"api_key"`
	EndpointPath string `yaml:"endpoint_path"`
	DefaultModel string `yaml:"default_model"`
}

// AzureAnthropicConfig configures the Azure-hosted Anthropic adapter.
type AzureAnthropicConfig struct {
	Endpoint     string `yaml:"endpoint"`
	APIKey       string `yaml:"api_key"`
	Version      string `yaml:"version"`
	DefaultModel string `yaml:"default_model"`
}

// BedrockConfig configures the Amazon Bedrock adapter. Credentials are
// left to the AWS SDK's default credential chain when unset here.
type BedrockConfig struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	DefaultModel    string `yaml:"default_model"`
}
