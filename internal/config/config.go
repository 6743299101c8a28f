package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the root configuration for the proxy: the HTTP surface, the
// upstream provider adapter, the policy engine, the prompt cache, MCP
// discovery, the session store, and the bundled web tools.
type Config struct {
	Server    ServerConfig         `yaml:"server"`
	Workspace WorkspaceConfig      `yaml:"workspace"`
	LLM       LLMConfig            `yaml:"llm"`
	Cache     CacheConfig          `yaml:"cache"`
	Policy    PolicyConfig         `yaml:"policy"`
	Sandbox   SandboxRuntimeConfig `yaml:"sandbox"`
	MCP       MCPConfig            `yaml:"mcp"`
	Session   SessionConfig        `yaml:"session"`
	WebSearch WebSearchConfig      `yaml:"web_search"`
	WebFetch  WebFetchConfig       `yaml:"web_fetch"`
	Logging   LoggingConfig        `yaml:"logging"`
}

// LoggingConfig selects the slog handler (§10.1).
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a YAML or JSON5 configuration file, resolving $include
// directives and expanding ${VAR} references against the process
// environment, then applies environment-variable overrides and
// defaults before validating the result.
func Load(path string) (*Config, error) {
	raw, err := LoadRaw(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg, err := decodeRawConfig(raw)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Workspace.Root == "" {
		if cwd, err := os.Getwd(); err == nil {
			cfg.Workspace.Root = cwd
		} else {
			cfg.Workspace.Root = "."
		}
	}

	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "databricks"
	}
	if cfg.LLM.AzureAnthropic.Version == "" {
		cfg.LLM.AzureAnthropic.Version = "2023-06-01"
	}

	if !cfg.Cache.Enabled && cfg.Cache.TTL == 0 && cfg.Cache.MaxEntries == 0 && strings.TrimSpace(os.Getenv("PROMPT_CACHE_ENABLED")) == "" {
		cfg.Cache.Enabled = true
	}
	if cfg.Cache.TTL == 0 {
		cfg.Cache.TTL = 300 * time.Second
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 64
	}

	if cfg.Policy.Profile == "" {
		cfg.Policy.Profile = "coding"
	}
	if cfg.Policy.MaxSteps == 0 {
		cfg.Policy.MaxSteps = 8
	}
	if cfg.Policy.MaxToolCallsPerTurn == 0 {
		cfg.Policy.MaxToolCallsPerTurn = 12
	}
	if cfg.Policy.Sandbox.PermissionMode == "" {
		cfg.Policy.Sandbox.PermissionMode = "auto"
	}

	if len(cfg.MCP.ManifestDirs) == 0 {
		home, err := os.UserHomeDir()
		if err != nil || strings.TrimSpace(home) == "" {
			home = "."
		}
		cfg.MCP.ManifestDirs = []string{home + "/.claude/mcp"}
	}

	if cfg.Session.DBPath == "" {
		cfg.Session.DBPath = "data/sessions.db"
	}

	if cfg.WebSearch.Endpoint == "" {
		cfg.WebSearch.Endpoint = "http://localhost:8888/search"
	}
	if cfg.WebSearch.Timeout == 0 {
		cfg.WebSearch.Timeout = 10 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// applyEnvOverrides applies the environment variables named in §6,
// which always take precedence over the YAML file.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	strVar(&cfg.LLM.Provider, "MODEL_PROVIDER")
	strVar(&cfg.LLM.Databricks.APIBase, "DATABRICKS_API_BASE")
	strVar(&cfg.LLM.Databricks.APIKey, "DATABRICKS_API_KEY")
	strVar(&cfg.LLM.Databricks.EndpointPath, "DATABRICKS_ENDPOINT_PATH")
	strVar(&cfg.LLM.AzureAnthropic.Endpoint, "AZURE_ANTHROPIC_ENDPOINT")
	strVar(&cfg.LLM.AzureAnthropic.APIKey, "AZURE_ANTHROPIC_API_KEY")
	strVar(&cfg.LLM.AzureAnthropic.Version, "AZURE_ANTHROPIC_VERSION")

	intVar(&cfg.Server.Port, "PORT")
	strVar(&cfg.Workspace.Root, "WORKSPACE_ROOT")

	boolVar(&cfg.Cache.Enabled, "PROMPT_CACHE_ENABLED")
	msDurationVar(&cfg.Cache.TTL, "PROMPT_CACHE_TTL_MS")
	intVar(&cfg.Cache.MaxEntries, "PROMPT_CACHE_MAX_ENTRIES")

	intVar(&cfg.Policy.MaxSteps, "POLICY_MAX_STEPS")
	intVar(&cfg.Policy.MaxToolCallsPerTurn, "POLICY_MAX_TOOL_CALLS")
	if value := strings.TrimSpace(os.Getenv("POLICY_DISALLOWED_TOOLS")); value != "" {
		cfg.Policy.DisallowedTools = strings.Split(value, ",")
	}
	boolVar(&cfg.Policy.Git.AllowPush, "POLICY_GIT_ALLOW_PUSH")
	boolVar(&cfg.Policy.Git.AllowPull, "POLICY_GIT_ALLOW_PULL")
	boolVar(&cfg.Policy.Git.AllowCommit, "POLICY_GIT_ALLOW_COMMIT")
	boolVar(&cfg.Policy.Git.RequireTests, "POLICY_GIT_REQUIRE_TESTS")
	strVar(&cfg.Policy.Git.TestCommand, "POLICY_GIT_TEST_COMMAND")
	strVar(&cfg.Policy.Git.CommitRegex, "POLICY_GIT_COMMIT_REGEX")
	boolVar(&cfg.Policy.Git.Autostash, "POLICY_GIT_AUTOSTASH")

	strVar(&cfg.MCP.ManifestPath, "MCP_SERVER_MANIFEST")
	if value := strings.TrimSpace(os.Getenv("MCP_MANIFEST_DIRS")); value != "" {
		cfg.MCP.ManifestDirs = strings.Split(value, ",")
	}
	boolVar(&cfg.Sandbox.Enabled, "MCP_SANDBOX_ENABLED")
	strVar(&cfg.Sandbox.Image, "MCP_SANDBOX_IMAGE")
	strVar(&cfg.Sandbox.Runtime, "MCP_SANDBOX_RUNTIME")
	strVar(&cfg.Sandbox.ContainerWorkspace, "MCP_SANDBOX_CONTAINER_WORKSPACE")
	boolVar(&cfg.Sandbox.MountWorkspace, "MCP_SANDBOX_MOUNT_WORKSPACE")
	boolVar(&cfg.Sandbox.AllowNetworking, "MCP_SANDBOX_ALLOW_NETWORKING")
	strVar(&cfg.Sandbox.NetworkMode, "MCP_SANDBOX_NETWORK_MODE")
	if value := strings.TrimSpace(os.Getenv("MCP_SANDBOX_PASSTHROUGH_ENV")); value != "" {
		cfg.Sandbox.PassthroughEnv = strings.Split(value, ",")
	}
	msDurationVar(&cfg.Sandbox.Timeout, "MCP_SANDBOX_TIMEOUT_MS")
	strVar(&cfg.Sandbox.User, "MCP_SANDBOX_USER")
	strVar(&cfg.Sandbox.Entrypoint, "MCP_SANDBOX_ENTRYPOINT")
	boolVar(&cfg.Sandbox.ReuseSession, "MCP_SANDBOX_REUSE_SESSION")
	strVar(&cfg.Policy.Sandbox.PermissionMode, "MCP_SANDBOX_PERMISSION_MODE")
	if value := strings.TrimSpace(os.Getenv("MCP_SANDBOX_PERMISSION_ALLOW")); value != "" {
		cfg.Policy.Sandbox.Allow = strings.Split(value, ",")
	}
	if value := strings.TrimSpace(os.Getenv("MCP_SANDBOX_PERMISSION_DENY")); value != "" {
		cfg.Policy.Sandbox.Deny = strings.Split(value, ",")
	}

	strVar(&cfg.Session.DBPath, "SESSION_DB_PATH")

	strVar(&cfg.WebSearch.Endpoint, "WEB_SEARCH_ENDPOINT")
	boolVar(&cfg.WebSearch.AllowAll, "WEB_SEARCH_ALLOW_ALL")
	if value := strings.TrimSpace(os.Getenv("WEB_SEARCH_ALLOWED_HOSTS")); value != "" {
		cfg.WebSearch.AllowedHosts = strings.Split(value, ",")
	}
	msDurationVar(&cfg.WebSearch.Timeout, "WEB_SEARCH_TIMEOUT_MS")
}

func strVar(dst *string, env string) {
	if value := strings.TrimSpace(os.Getenv(env)); value != "" {
		*dst = value
	}
}

func intVar(dst *int, env string) {
	if value := strings.TrimSpace(os.Getenv(env)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*dst = parsed
		}
	}
}

func boolVar(dst *bool, env string) {
	if value := strings.TrimSpace(os.Getenv(env)); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			*dst = parsed
		}
	}
}

func msDurationVar(dst *time.Duration, env string) {
	if value := strings.TrimSpace(os.Getenv(env)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*dst = time.Duration(parsed) * time.Millisecond
		}
	}
}

// ConfigValidationError collects every validation issue found in a
// single pass rather than failing on the first one.
type ConfigValidationError struct {
	Issues []string
}

func (e *ConfigValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	var issues []string

	switch cfg.LLM.Provider {
	case "databricks", "azure", "bedrock":
	default:
		issues = append(issues, fmt.Sprintf("llm.provider must be \"databricks\", \"azure\", or \"bedrock\", got %q", cfg.LLM.Provider))
	}

	if cfg.Cache.MaxEntries < 0 {
		issues = append(issues, "cache.max_entries must be >= 0")
	}
	if cfg.Cache.TTL < 0 {
		issues = append(issues, "cache.ttl must be >= 0")
	}

	if cfg.Policy.MaxSteps < 0 {
		issues = append(issues, "policy.max_steps must be >= 0")
	}
	if cfg.Policy.MaxToolCallsPerTurn < 0 {
		issues = append(issues, "policy.max_tool_calls_per_turn must be >= 0")
	}
	switch cfg.Policy.Profile {
	case "minimal", "coding", "full":
	default:
		issues = append(issues, fmt.Sprintf("policy.profile must be \"minimal\", \"coding\", or \"full\", got %q", cfg.Policy.Profile))
	}
	switch cfg.Policy.Sandbox.PermissionMode {
	case "auto", "require", "deny":
	default:
		issues = append(issues, fmt.Sprintf("policy.sandbox.permission_mode must be \"auto\", \"require\", or \"deny\", got %q", cfg.Policy.Sandbox.PermissionMode))
	}

	if cfg.WebSearch.Timeout < 0 {
		issues = append(issues, "web_search.timeout must be >= 0")
	}
	if cfg.WebFetch.MaxChars < 0 {
		issues = append(issues, "web_fetch.max_chars must be >= 0")
	}

	if len(issues) > 0 {
		return &ConfigValidationError{Issues: issues}
	}
	return nil
}
