package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

func allow() Decision { return Decision{Allowed: true, Status: 200} }

func deny(status int, code, reason string) Decision {
	return Decision{Allowed: false, Status: status, Code: code, Reason: reason}
}

// shellBlocklist are the fixed destructive-command patterns rejected
// regardless of policy configuration.
var shellBlocklist = []*regexp.Regexp{
	regexp.MustCompile(`rm\s+-rf\s+/(\s|$)`),
	regexp.MustCompile(`\bshutdown\b`),
	regexp.MustCompile(`\breboot\b`),
	regexp.MustCompile(`systemctl\s+stop`),
	regexp.MustCompile(`\bmkfs\S*`),
	regexp.MustCompile(`dd\s+if=/dev/`),
	regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`),
	regexp.MustCompile(`chown\s+-R\s+root`),
}

// pythonBlocklist are the fixed destructive python idioms rejected
// regardless of policy configuration.
var pythonBlocklist = []*regexp.Regexp{
	regexp.MustCompile(`os\.remove\(\s*['"]/['"]\s*\)`),
	regexp.MustCompile(`subprocess\.(call|run)\(\s*["']rm\s+-rf`),
	regexp.MustCompile(`shutil\.rmtree\(\s*['"]/['"]\s*\)`),
}

// TestRunner runs a pre-commit test command and reports its exit code, so
// evaluateGit can gate workspace_git_commit on GitPolicy.RequireTests
// without the policy package importing an exec manager directly.
type TestRunner func(ctx context.Context, command string) (exitCode int, err error)

// Evaluator evaluates one tool call against a Policy, in the rule order
// fixed by §4.2: allowlist, quota, git sub-flags, shell/python safety,
// sandbox permission mode.
type Evaluator struct {
	resolver   *Resolver
	testRunner TestRunner
}

// NewEvaluator creates an Evaluator bound to a Resolver for allowlist
// resolution.
func NewEvaluator(resolver *Resolver) *Evaluator {
	return &Evaluator{resolver: resolver}
}

// WithTestRunner wires a pre-commit test runner into the evaluator, for
// GitPolicy.RequireTests gating. Chainable, matching Policy's
// WithAllow/WithDeny style.
func (e *Evaluator) WithTestRunner(fn TestRunner) *Evaluator {
	e.testRunner = fn
	return e
}

// CallInput describes one tool call under evaluation.
type CallInput struct {
	Name               string
	RawInput           json.RawMessage
	ToolCallsExecuted  int
	RequiresSandbox    bool
}

// Evaluate runs the fixed rule chain. Deny always wins; the per-turn quota
// is checked after the disallow list but before any per-tool rule, so a
// disallowed tool reports a 403 even with quota already exhausted. A nil
// policy allows every call.
func (e *Evaluator) Evaluate(ctx context.Context, p *Policy, call CallInput) Decision {
	if p == nil {
		return allow()
	}
	canonical := NormalizeTool(call.Name)
	if e.resolver != nil {
		canonical = e.resolver.CanonicalName(call.Name)
		if !e.resolver.IsAllowed(p, call.Name) {
			return deny(403, "tool_disallowed", fmt.Sprintf("tool %q is not permitted by the active policy", canonical))
		}
	}

	quota := p.MaxToolCallsPerTurn
	if quota > 0 && call.ToolCallsExecuted >= quota {
		return deny(429, "tool_limit_reached", "per-turn tool call quota exhausted")
	}

	if strings.HasPrefix(canonical, "workspace_git_") {
		if d := e.evaluateGit(ctx, p.Git, canonical, call.RawInput); !d.Allowed {
			return d
		}
	}

	if canonical == "shell" {
		if d := e.evaluateShell(call.RawInput); !d.Allowed {
			return d
		}
	}

	if canonical == "python_exec" {
		if d := e.evaluatePython(call.RawInput); !d.Allowed {
			return d
		}
	}

	if call.RequiresSandbox {
		if d := e.evaluateSandbox(p.Sandbox, canonical); !d.Allowed {
			return d
		}
	}

	return allow()
}

func (e *Evaluator) evaluateGit(ctx context.Context, git GitPolicy, canonical string, raw json.RawMessage) Decision {
	switch canonical {
	case "workspace_git_push":
		if !git.AllowPush {
			return deny(403, "git_push_denied", "git push is disabled by policy")
		}
	case "workspace_git_pull":
		if !git.AllowPull {
			return deny(403, "git_pull_denied", "git pull is disabled by policy")
		}
	case "workspace_git_commit":
		if !git.AllowCommit {
			return deny(403, "git_commit_denied", "git commit is disabled by policy")
		}
		if git.RequireTests {
			if d := e.evaluateCommitTests(ctx, git); !d.Allowed {
				return d
			}
		}
		if git.CommitRegex != "" {
			message := extractStringField(raw, "message")
			re, err := regexp.Compile(git.CommitRegex)
			if err == nil && !re.MatchString(message) {
				return deny(400, "git_commit_message_invalid", "commit message does not match the required pattern")
			}
		}
	}
	return allow()
}

// evaluateCommitTests runs GitPolicy.TestCommand and denies the commit on a
// non-zero exit or missing wiring, implementing §4.2's "commit may be
// gated behind a pre-commit test command" rule.
func (e *Evaluator) evaluateCommitTests(ctx context.Context, git GitPolicy) Decision {
	if strings.TrimSpace(git.TestCommand) == "" {
		return deny(500, "git_commit_tests_unconfigured", "commit gating requires a test command but none is configured")
	}
	if e.testRunner == nil {
		return deny(500, "git_commit_tests_unavailable", "commit test gating is enabled but no test runner is wired")
	}
	exitCode, err := e.testRunner(ctx, git.TestCommand)
	if err != nil {
		return deny(500, "git_commit_tests_errored", fmt.Sprintf("pre-commit test command failed to run: %v", err))
	}
	if exitCode != 0 {
		return deny(409, "git_commit_tests_failed", fmt.Sprintf("pre-commit test command exited %d", exitCode))
	}
	return allow()
}

func (e *Evaluator) evaluateShell(raw json.RawMessage) Decision {
	command := extractCommand(raw)
	for _, pattern := range shellBlocklist {
		if pattern.MatchString(command) {
			return deny(403, "shell_blocked", "command matches a blocked destructive pattern")
		}
	}
	return allow()
}

func (e *Evaluator) evaluatePython(raw json.RawMessage) Decision {
	code := extractStringField(raw, "code")
	for _, pattern := range pythonBlocklist {
		if pattern.MatchString(code) {
			return deny(403, "python_blocked", "code matches a blocked destructive pattern")
		}
	}
	return allow()
}

func (e *Evaluator) evaluateSandbox(sb SandboxPolicy, canonical string) Decision {
	switch sb.Mode {
	case SandboxModeDeny:
		return deny(403, "sandbox_denied", "sandboxed execution is disabled by policy")
	case SandboxModeRequire:
		if !matchesAny(sb.Allow, canonical) {
			return deny(403, "sandbox_not_allowlisted", "tool is not on the sandbox allowlist")
		}
	case SandboxModeAuto, "":
		if matchesAny(sb.Deny, canonical) {
			return deny(403, "sandbox_denied", "tool is on the sandbox denylist")
		}
	}
	return allow()
}

// matchesAny supports a single trailing "*" wildcard per pattern.
func matchesAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if pattern == name {
			return true
		}
		if strings.HasSuffix(pattern, "*") && strings.HasPrefix(name, strings.TrimSuffix(pattern, "*")) {
			return true
		}
	}
	return false
}

// extractCommand normalizes a shell tool's argument mapping into a single
// command string, supporting "command", "cmd", "run", or an "args" array.
func extractCommand(raw json.RawMessage) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	for _, key := range []string{"command", "cmd", "run"} {
		if v, ok := obj[key]; ok {
			var s string
			if json.Unmarshal(v, &s) == nil {
				return s
			}
		}
	}
	if v, ok := obj["args"]; ok {
		var parts []string
		if json.Unmarshal(v, &parts) == nil {
			return strings.Join(parts, " ")
		}
	}
	return ""
}

func extractStringField(raw json.RawMessage, field string) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	v, ok := obj[field]
	if !ok {
		return ""
	}
	var s string
	_ = json.Unmarshal(v, &s)
	return s
}
