package config

import (
	"time"

	"github.com/nexusrelay/agentproxy/internal/policy"
)

// CacheConfig controls the prompt cache (§4.4).
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// PolicyConfig configures the policy engine's quotas, profile, and the
// git/sandbox sub-flags (§4.2).
type PolicyConfig struct {
	Profile             string              `yaml:"profile"`
	MaxSteps            int                 `yaml:"max_steps"`
	MaxToolCallsPerTurn int                 `yaml:"max_tool_calls_per_turn"`
	DisallowedTools     []string            `yaml:"disallowed_tools"`
	Git                 GitPolicyConfig     `yaml:"git"`
	Sandbox             SandboxPolicyConfig `yaml:"sandbox"`
}

// ToPolicy converts the loaded configuration into the *policy.Policy the
// orchestrator evaluates every tool call against (§4.2). Built once at
// startup; the profile's default allow list is not copied here, since
// policy.Resolver adds it when each call is decided.
func (c PolicyConfig) ToPolicy() *policy.Policy {
	return &policy.Policy{
		Profile:             policy.Profile(c.Profile),
		Deny:                append([]string(nil), c.DisallowedTools...),
		MaxToolCallsPerTurn: c.MaxToolCallsPerTurn,
		Git: policy.GitPolicy{
			AllowPush:    c.Git.AllowPush,
			AllowPull:    c.Git.AllowPull,
			AllowCommit:  c.Git.AllowCommit,
			RequireTests: c.Git.RequireTests,
			TestCommand:  c.Git.TestCommand,
			CommitRegex:  c.Git.CommitRegex,
			Autostash:    c.Git.Autostash,
		},
		Sandbox: policy.SandboxPolicy{
			Mode:  policy.SandboxPermissionMode(c.Sandbox.PermissionMode),
			Allow: append([]string(nil), c.Sandbox.Allow...),
			Deny:  append([]string(nil), c.Sandbox.Deny...),
		},
	}
}

// GitPolicyConfig gates the workspace_git_{push,pull,commit} family.
type GitPolicyConfig struct {
	AllowPush    bool   `yaml:"allow_push"`
	AllowPull    bool   `yaml:"allow_pull"`
	AllowCommit  bool   `yaml:"allow_commit"`
	RequireTests bool   `yaml:"require_tests"`
	TestCommand  string `yaml:"test_command"`
	CommitRegex  string `yaml:"commit_regex"`
	Autostash    bool   `yaml:"autostash"`
}

// SandboxPolicyConfig governs which sandboxed tool calls the policy
// engine admits, independent of whether a container runtime backs them.
type SandboxPolicyConfig struct {
	PermissionMode string   `yaml:"permission_mode"`
	Allow          []string `yaml:"allow"`
	Deny           []string `yaml:"deny"`
}

// SandboxRuntimeConfig configures the optional container runtime that
// backs sandboxed subprocess execution (§4.6). When Enabled is false,
// tools run as direct child processes of the orchestrator.
type SandboxRuntimeConfig struct {
	Enabled            bool              `yaml:"enabled"`
	Image              string            `yaml:"image"`
	Runtime             string           `yaml:"runtime"`
	ContainerWorkspace string            `yaml:"container_workspace"`
	MountWorkspace     bool              `yaml:"mount_workspace"`
	AllowNetworking    bool              `yaml:"allow_networking"`
	NetworkMode        string            `yaml:"network_mode"`
	PassthroughEnv     []string          `yaml:"passthrough_env"`
	ExtraMounts        map[string]string `yaml:"extra_mounts"`
	Timeout            time.Duration     `yaml:"timeout"`
	User               string            `yaml:"user"`
	Entrypoint         string            `yaml:"entrypoint"`
	ReuseSession       bool              `yaml:"reuse_session"`
}

// MCPConfig controls MCP server discovery (§4.5). ManifestPath is a
// single manifest file; ManifestDirs are scanned for additional
// manifest files and watched for changes via mcp.ManifestWatcher.
type MCPConfig struct {
	ManifestPath string   `yaml:"manifest_path"`
	ManifestDirs []string `yaml:"manifest_dirs"`
}

// WebSearchConfig configures the web_search tool's bundled backend.
type WebSearchConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	AllowAll     bool          `yaml:"allow_all"`
	AllowedHosts []string      `yaml:"allowed_hosts"`
	Timeout      time.Duration `yaml:"timeout"`
}

// WebFetchConfig controls web_fetch defaults.
type WebFetchConfig struct {
	MaxChars int `yaml:"max_chars"`
}
