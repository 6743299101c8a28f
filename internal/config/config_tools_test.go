package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexusrelay/agentproxy/internal/policy"
)

func TestPolicyConfig_ToPolicy(t *testing.T) {
	cfg := PolicyConfig{
		Profile:             "coding",
		MaxToolCallsPerTurn: 10,
		DisallowedTools:     []string{"shell"},
		Git: GitPolicyConfig{
			AllowPush:    true,
			RequireTests: true,
			TestCommand:  "go test ./...",
			CommitRegex:  "^(feat|fix): ",
		},
		Sandbox: SandboxPolicyConfig{
			PermissionMode: "require",
			Allow:          []string{"workspace_test_run"},
		},
	}

	p := cfg.ToPolicy()
	require.NotNil(t, p)
	assert.Equal(t, policy.Profile("coding"), p.Profile)
	assert.Equal(t, []string{"shell"}, p.Deny)
	assert.Equal(t, 10, p.MaxToolCallsPerTurn)
	assert.True(t, p.Git.AllowPush)
	assert.True(t, p.Git.RequireTests)
	assert.Equal(t, "go test ./...", p.Git.TestCommand)
	assert.Equal(t, policy.SandboxModeRequire, p.Sandbox.Mode)
	assert.Equal(t, []string{"workspace_test_run"}, p.Sandbox.Allow)
}

func TestPolicyConfig_ToPolicyDoesNotAliasSlices(t *testing.T) {
	cfg := PolicyConfig{DisallowedTools: []string{"shell"}}
	p := cfg.ToPolicy()
	p.Deny[0] = "mutated"
	assert.Equal(t, "shell", cfg.DisallowedTools[0], "ToPolicy must copy slices, not alias the config's backing arrays")
}
