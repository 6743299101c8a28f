// Package git implements the workspace_git_* / workspace_diff* /
// workspace_release_notes tool family (§4.3 Git). Each tool shells out
// to the git binary with a fixed argument shape for its action; the
// policy engine (§4.2) gates push/pull/commit before Execute ever runs.
package git

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nexusrelay/agentproxy/internal/agent"
	"github.com/nexusrelay/agentproxy/internal/tools/exec"
)

// Tool dispatches a single canonical git tool name (e.g.
// "workspace_git_status") to a fixed git invocation.
type Tool struct {
	name    string
	manager *exec.Manager
}

// New creates a git tool for the given canonical name.
func New(name string, manager *exec.Manager) *Tool {
	return &Tool{name: name, manager: manager}
}

// Names returns the canonical names of every tool this package provides,
// for bulk registration.
func Names() []string {
	return []string{
		"workspace_git_status", "workspace_git_stage", "workspace_git_unstage",
		"workspace_git_commit", "workspace_git_push", "workspace_git_pull",
		"workspace_git_merge", "workspace_git_rebase", "workspace_git_checkout",
		"workspace_git_branch", "workspace_git_branches", "workspace_git_stash",
		"workspace_git_conflicts", "workspace_diff", "workspace_diff_summary",
		"workspace_diff_review", "workspace_release_notes",
	}
}

func (t *Tool) Name() string { return t.name }

func (t *Tool) Description() string {
	return fmt.Sprintf("Run the %s git operation against the workspace repository.", t.name)
}

func (t *Tool) Schema() json.RawMessage {
	props := map[string]interface{}{
		"paths": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "Paths to operate on (stage/unstage/diff).",
		},
		"message": map[string]interface{}{
			"type":        "string",
			"description": "Commit message (commit only).",
		},
		"remote": map[string]interface{}{
			"type":        "string",
			"description": "Remote name (push/pull, default origin).",
		},
		"branch": map[string]interface{}{
			"type":        "string",
			"description": "Branch or ref name (push/pull/merge/rebase/checkout/branch).",
		},
		"create": map[string]interface{}{
			"type":        "boolean",
			"description": "Create the branch (checkout/branch).",
		},
		"action": map[string]interface{}{
			"type":        "string",
			"description": "Sub-action for stash (list/pop/drop/save, default save).",
		},
		"range": map[string]interface{}{
			"type":        "string",
			"description": "Revision range (release_notes, e.g. v1.0.0..HEAD).",
		},
	}
	schema := map[string]interface{}{"type": "object", "properties": props}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

type input struct {
	Paths   []string `json:"paths"`
	Message string   `json:"message"`
	Remote  string   `json:"remote"`
	Branch  string   `json:"branch"`
	Create  bool     `json:"create"`
	Action  string   `json:"action"`
	Range   string   `json:"range"`
}

func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	if t.manager == nil {
		return toolError("git tool unavailable"), nil
	}
	var in input
	if len(params) > 0 {
		if err := json.Unmarshal(params, &in); err != nil {
			return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
		}
	}

	args, err := buildArgs(t.name, in)
	if err != nil {
		return toolError(err.Error()), nil
	}

	command := "git " + shellJoin(args)
	result, err := t.manager.RunCommand(ctx, command, "", nil, "", 20*time.Second)
	if err != nil {
		return toolError(err.Error()), nil
	}
	payload, _ := json.MarshalIndent(result, "", "  ")
	resultTool := &agent.ToolResult{Content: string(payload)}
	if result.ExitCode != 0 {
		resultTool.IsError = true
	}
	return resultTool, nil
}

func buildArgs(name string, in input) ([]string, error) {
	remote := in.Remote
	if remote == "" {
		remote = "origin"
	}
	switch name {
	case "workspace_git_status":
		return []string{"status", "--porcelain=v1", "-b"}, nil
	case "workspace_git_stage":
		if len(in.Paths) == 0 {
			return nil, fmt.Errorf("paths is required")
		}
		return append([]string{"add", "--"}, in.Paths...), nil
	case "workspace_git_unstage":
		if len(in.Paths) == 0 {
			return nil, fmt.Errorf("paths is required")
		}
		return append([]string{"restore", "--staged", "--"}, in.Paths...), nil
	case "workspace_git_commit":
		if strings.TrimSpace(in.Message) == "" {
			return nil, fmt.Errorf("message is required")
		}
		return []string{"commit", "-m", in.Message}, nil
	case "workspace_git_push":
		args := []string{"push", remote}
		if in.Branch != "" {
			args = append(args, in.Branch)
		}
		return args, nil
	case "workspace_git_pull":
		args := []string{"pull", remote}
		if in.Branch != "" {
			args = append(args, in.Branch)
		}
		return args, nil
	case "workspace_git_merge":
		if strings.TrimSpace(in.Branch) == "" {
			return nil, fmt.Errorf("branch is required")
		}
		return []string{"merge", "--no-edit", in.Branch}, nil
	case "workspace_git_rebase":
		if strings.TrimSpace(in.Branch) == "" {
			return nil, fmt.Errorf("branch is required")
		}
		return []string{"rebase", in.Branch}, nil
	case "workspace_git_checkout":
		if strings.TrimSpace(in.Branch) == "" {
			return nil, fmt.Errorf("branch is required")
		}
		if in.Create {
			return []string{"checkout", "-b", in.Branch}, nil
		}
		return []string{"checkout", in.Branch}, nil
	case "workspace_git_branch", "workspace_git_branches":
		if in.Branch != "" && in.Create {
			return []string{"branch", in.Branch}, nil
		}
		return []string{"branch", "--list", "-vv"}, nil
	case "workspace_git_stash":
		action := in.Action
		if action == "" {
			action = "save"
		}
		if action == "save" {
			return []string{"stash"}, nil
		}
		return []string{"stash", action}, nil
	case "workspace_git_conflicts":
		return []string{"diff", "--name-only", "--diff-filter=U"}, nil
	case "workspace_diff":
		return append([]string{"diff", "--"}, in.Paths...), nil
	case "workspace_diff_summary":
		return []string{"diff", "--stat"}, nil
	case "workspace_diff_review":
		return []string{"diff", "-U10"}, nil
	case "workspace_release_notes":
		rng := in.Range
		if rng == "" {
			rng = "HEAD"
		}
		return []string{"log", rng, "--pretty=format:- %s (%h)"}, nil
	default:
		return nil, fmt.Errorf("unsupported git tool: %s", name)
	}
}

// shellJoin quote-escapes args for embedding in the /bin/sh -c command
// string the exec manager runs git through.
func shellJoin(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}

func toolError(message string) *agent.ToolResult {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return &agent.ToolResult{Content: string(payload), IsError: true}
}
