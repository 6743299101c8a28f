package policy

import "testing"

func TestResolver_CoreProfileAllows(t *testing.T) {
	r := NewResolver()
	p := NewPolicy(ProfileCoding)

	cases := []struct {
		tool    string
		allowed bool
	}{
		{"fs_read", true},
		{"fs_write", true},
		{"shell", true},
		{"workspace_git_push", true},
		{"web_search", true},
		{"workspace_sandbox_sessions", true},
		{"some_unknown_tool", false},
	}
	for _, tc := range cases {
		if got := r.IsAllowed(p, tc.tool); got != tc.allowed {
			t.Errorf("IsAllowed(%q) = %v, want %v", tc.tool, got, tc.allowed)
		}
	}
}

func TestResolver_MinimalProfileDeniesExec(t *testing.T) {
	r := NewResolver()
	p := NewPolicy(ProfileMinimal)

	if r.IsAllowed(p, "shell") {
		t.Error("minimal profile should not allow shell")
	}
	if !r.IsAllowed(p, "fs_read") {
		t.Error("minimal profile should allow fs_read")
	}
}

func TestResolver_FullProfileAllowsEverythingNotDenied(t *testing.T) {
	r := NewResolver()
	p := NewPolicy(ProfileFull).WithDeny("shell")

	if !r.IsAllowed(p, "anything_goes") {
		t.Error("full profile should allow an unrecognized tool")
	}
	if r.IsAllowed(p, "shell") {
		t.Error("explicit deny should win even under profile full")
	}
}

func TestResolver_DenyWinsOverAllow(t *testing.T) {
	r := NewResolver()
	p := NewPolicy(ProfileCoding).WithDeny("shell")

	if r.IsAllowed(p, "shell") {
		t.Error("deny should override the coding profile's exec group allow")
	}
}

func TestResolver_AliasResolution(t *testing.T) {
	r := NewResolver()
	p := NewPolicy(ProfileCoding)

	if !r.IsAllowed(p, "bash") {
		t.Error("bash should resolve to shell and be allowed under coding profile")
	}
}

func TestResolver_MCPWildcard(t *testing.T) {
	r := NewResolver()
	r.RegisterMCPServer("github", []string{"create_issue", "list_repos"})
	p := NewPolicy(ProfileMinimal).WithAllow("mcp:github.*")

	if !r.IsAllowed(p, "mcp:github.create_issue") {
		t.Error("mcp wildcard allow should admit a registered server tool")
	}
	if r.IsAllowed(p, "mcp:other.create_issue") {
		t.Error("mcp wildcard allow should not admit a different server")
	}
}

func TestResolver_ByProviderOverride(t *testing.T) {
	r := NewResolver()
	p := NewPolicy(ProfileMinimal)
	p.ByProvider = map[string]*Policy{
		"nexus": {Allow: []string{"shell"}},
	}

	if !r.IsAllowed(p, "shell") {
		t.Error("provider override should add shell on top of the minimal profile")
	}
}

func TestResolver_NilPolicyDenies(t *testing.T) {
	r := NewResolver()
	if r.IsAllowed(nil, "fs_read") {
		t.Error("a nil policy should deny everything")
	}
}
