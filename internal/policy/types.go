// Package policy provides tool authorization and access control for the
// agent orchestrator: an allow/deny resolver with profiles and groups, plus
// the per-call evaluation rules (quota, git sub-flags, shell/python safety,
// sandbox permission mode) and response content sanitization.
package policy

import (
	"strings"
)

// Profile is a pre-configured tool access level.
type Profile string

const (
	ProfileMinimal Profile = "minimal"
	ProfileCoding  Profile = "coding"
	ProfileFull    Profile = "full"
)

// Policy combines a profile with explicit allow/deny lists. Deny always
// wins over allow.
type Policy struct {
	Profile    Profile            `json:"profile,omitempty" yaml:"profile"`
	Allow      []string           `json:"allow,omitempty" yaml:"allow"`
	Deny       []string           `json:"deny,omitempty" yaml:"deny"`
	ByProvider map[string]*Policy `json:"by_provider,omitempty" yaml:"by_provider,omitempty"`

	MaxToolCallsPerTurn int           `json:"max_tool_calls_per_turn,omitempty" yaml:"max_tool_calls_per_turn"`
	Git                 GitPolicy     `json:"git,omitempty" yaml:"git"`
	Sandbox             SandboxPolicy `json:"sandbox,omitempty" yaml:"sandbox"`
}

// GitPolicy gates the workspace_git_{push,pull,commit} family.
type GitPolicy struct {
	AllowPush    bool   `yaml:"allow_push"`
	AllowPull    bool   `yaml:"allow_pull"`
	AllowCommit  bool   `yaml:"allow_commit"`
	RequireTests bool   `yaml:"require_tests"`
	TestCommand  string `yaml:"test_command"`
	CommitRegex  string `yaml:"commit_regex"`
	Autostash    bool   `yaml:"autostash"`
}

// SandboxPermissionMode controls whether a sandboxed tool call is allowed.
type SandboxPermissionMode string

const (
	SandboxModeAuto    SandboxPermissionMode = "auto"
	SandboxModeRequire SandboxPermissionMode = "require"
	SandboxModeDeny    SandboxPermissionMode = "deny"
)

// SandboxPolicy governs which sandboxed commands are admitted.
type SandboxPolicy struct {
	Mode  SandboxPermissionMode `yaml:"mode"`
	Allow []string              `yaml:"allow"`
	Deny  []string              `yaml:"deny"`
}

// DefaultGroups are the built-in tool groups referenced from policy allow
// and deny lists as "group:<name>".
var DefaultGroups = map[string][]string{
	"group:fs":   {"fs_read", "fs_write", "edit_patch"},
	"group:exec": {"shell", "python_exec"},
	"group:git": {
		"workspace_git_status", "workspace_git_stage", "workspace_git_unstage",
		"workspace_git_commit", "workspace_git_push", "workspace_git_pull",
		"workspace_git_merge", "workspace_git_rebase", "workspace_git_checkout",
		"workspace_git_branch", "workspace_git_branches", "workspace_git_stash",
		"workspace_git_conflicts", "workspace_diff", "workspace_diff_summary",
		"workspace_diff_review", "workspace_release_notes",
	},
	"group:indexer": {
		"workspace_list", "workspace_search", "workspace_symbol_search",
		"workspace_symbol_references", "workspace_goto_definition",
		"workspace_index_rebuild", "project_summary",
	},
	"group:edits": {"workspace_edit_history", "workspace_edit_revert"},
	"group:tasks": {
		"workspace_task_create", "workspace_task_get", "workspace_task_update",
		"workspace_task_set_status", "workspace_task_delete", "workspace_tasks_list",
	},
	"group:tests": {"workspace_test_run", "workspace_test_history", "workspace_test_summary"},
	"group:web":   {"web_search", "web_fetch"},
	"group:mcp":   {"workspace_mcp_servers", "workspace_mcp_call", "workspace_sandbox_sessions"},
}

// ProfileDefaults are the default allow lists for each profile.
var ProfileDefaults = map[Profile]*Policy{
	ProfileMinimal: {
		Allow: []string{"group:fs"},
	},
	ProfileCoding: {
		Allow: []string{
			"group:fs", "group:exec", "group:git", "group:indexer",
			"group:edits", "group:tasks", "group:tests", "group:web", "group:mcp",
		},
	},
	ProfileFull: {},
}

// ToolAliases maps client synonyms to canonical tool names (§4.3: alias
// resolution is exact -> lowercase -> alias table).
var ToolAliases = map[string]string{
	"bash":        "shell",
	"sh":          "shell",
	"grep":        "workspace_search",
	"python":      "python_exec",
	"apply-patch": "edit_patch",
	"apply_patch": "edit_patch",
	"read":        "fs_read",
	"write":       "fs_write",
	"websearch":   "web_search",
	"webfetch":    "web_fetch",
}

// NormalizeTool lowercases and resolves a tool name through the alias table.
func NormalizeTool(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := ToolAliases[normalized]; ok {
		return alias
	}
	return normalized
}

// NewPolicy creates a policy with the given profile as its base.
func NewPolicy(profile Profile) *Policy {
	return &Policy{Profile: profile}
}

// WithAllow appends to the allow list, for chaining in config/tests.
func (p *Policy) WithAllow(tools ...string) *Policy {
	p.Allow = append(p.Allow, tools...)
	return p
}

// WithDeny appends to the deny list, for chaining in config/tests.
func (p *Policy) WithDeny(tools ...string) *Policy {
	p.Deny = append(p.Deny, tools...)
	return p
}

// Merge combines policies left to right: last non-empty profile wins,
// allow/deny lists accumulate, provider overrides accumulate (later wins).
func Merge(policies ...*Policy) *Policy {
	result := &Policy{}
	for _, p := range policies {
		if p == nil {
			continue
		}
		if p.Profile != "" {
			result.Profile = p.Profile
		}
		result.Allow = append(result.Allow, p.Allow...)
		result.Deny = append(result.Deny, p.Deny...)
		if p.MaxToolCallsPerTurn > 0 {
			result.MaxToolCallsPerTurn = p.MaxToolCallsPerTurn
		}
		if len(p.ByProvider) > 0 {
			if result.ByProvider == nil {
				result.ByProvider = make(map[string]*Policy)
			}
			for k, v := range p.ByProvider {
				result.ByProvider[k] = v
			}
		}
	}
	return result
}
