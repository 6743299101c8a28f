package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nexusrelay/agentproxy/internal/config"
)

// BootstrapFile represents a file to seed in a workspace.
type BootstrapFile struct {
	Name    string
	Content string
}

// BootstrapResult captures the files created or skipped.
type BootstrapResult struct {
	Created []string
	Skipped []string
}

// DefaultBootstrapFiles returns the default bootstrap file set: the
// conventional project-context files a coding assistant looks for at
// the root of its workspace. Their content is appended to every
// request's system prompt by the orchestrator, so it stays workspace
// policy, not persona.
func DefaultBootstrapFiles() []BootstrapFile {
	return []BootstrapFile{
		{
			Name: "AGENTS.md",
			Content: "# AGENTS.md - Workspace Instructions\n\n" +
				"This workspace is the coding assistant's working directory.\n\n" +
				"## Safety\n" +
				"- Do not exfiltrate secrets or credentials found in this workspace.\n" +
				"- Avoid destructive shell commands unless explicitly requested.\n" +
				"- Prefer the provided file-edit tools over shelling out to sed/awk.\n\n" +
				"## Workflow\n" +
				"- Ask clarifying questions when requirements are unclear.\n" +
				"- Keep edits scoped to what was asked.\n",
		},
		{
			Name: "TOOLS.md",
			Content: "# TOOLS.md - Local Tool Notes (editable)\n\n" +
				"Add notes about this workspace's build, test, and lint commands here.\n",
		},
		{
			Name: "MEMORY.md",
			Content: "# MEMORY.md - Long-Term Memory\n\n" +
				"Capture durable facts, conventions, and decisions about this workspace here.\n",
		},
	}
}

// BootstrapFilesForConfig returns the default bootstrap file set. The
// config argument is accepted for symmetry with LoaderConfigFromConfig
// and future per-deployment customization; file names are currently
// fixed to the conventional AGENTS.md-style names a coding assistant
// looks for.
func BootstrapFilesForConfig(cfg *config.Config) []BootstrapFile {
	return DefaultBootstrapFiles()
}

// EnsureWorkspaceFiles creates missing files in the workspace root.
func EnsureWorkspaceFiles(root string, files []BootstrapFile, overwrite bool) (BootstrapResult, error) {
	result := BootstrapResult{}
	base := strings.TrimSpace(root)
	if base == "" {
		base = "."
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return result, fmt.Errorf("create workspace dir: %w", err)
	}

	for _, file := range files {
		name := strings.TrimSpace(file.Name)
		if name == "" {
			continue
		}
		path := filepath.Join(base, name)
		if !overwrite {
			if _, err := os.Stat(path); err == nil {
				result.Skipped = append(result.Skipped, path)
				continue
			} else if !os.IsNotExist(err) {
				return result, fmt.Errorf("stat %s: %w", path, err)
			}
		}
		if err := os.WriteFile(path, []byte(file.Content), 0o644); err != nil {
			return result, fmt.Errorf("write %s: %w", path, err)
		}
		result.Created = append(result.Created, path)
	}

	return result, nil
}
