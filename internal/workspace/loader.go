package workspace

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nexusrelay/agentproxy/internal/config"
)

// WorkspaceContext holds the project-level context files a coding
// assistant conventionally looks for at the root of its workspace.
type WorkspaceContext struct {
	AgentsContent string
	ToolsContent  string
	MemoryContent string
}

// LoaderConfig configures the workspace loader.
type LoaderConfig struct {
	Root       string
	AgentsFile string
	ToolsFile  string
	MemoryFile string
}

// LoaderConfigFromConfig creates a LoaderConfig rooted at the
// orchestrator's workspace root, using the conventional project-context
// file names (AGENTS.md etc) a coding assistant looks for there.
func LoaderConfigFromConfig(cfg *config.Config) LoaderConfig {
	lc := LoaderConfig{
		AgentsFile: "AGENTS.md",
		ToolsFile:  "TOOLS.md",
		MemoryFile: "MEMORY.md",
	}
	if cfg == nil {
		return lc
	}
	lc.Root = cfg.Workspace.Root
	return lc
}

// LoadWorkspace loads the workspace's project-context files, treating a
// missing file as empty content rather than an error.
func LoadWorkspace(cfg LoaderConfig) (*WorkspaceContext, error) {
	root := cfg.Root
	if root == "" {
		root = "."
	}

	agentsFile := cfg.AgentsFile
	if agentsFile == "" {
		agentsFile = "AGENTS.md"
	}
	toolsFile := cfg.ToolsFile
	if toolsFile == "" {
		toolsFile = "TOOLS.md"
	}
	memoryFile := cfg.MemoryFile
	if memoryFile == "" {
		memoryFile = "MEMORY.md"
	}

	ctx := &WorkspaceContext{}
	loadOptional := func(name string) (string, error) {
		return readOptionalFile(filepath.Join(root, name))
	}

	var err error
	if ctx.AgentsContent, err = loadOptional(agentsFile); err != nil {
		return nil, err
	}
	if ctx.ToolsContent, err = loadOptional(toolsFile); err != nil {
		return nil, err
	}
	if ctx.MemoryContent, err = loadOptional(memoryFile); err != nil {
		return nil, err
	}

	return ctx, nil
}

// LoadMemory loads the MEMORY.md file content.
func LoadMemory(root, filename string) (string, error) {
	if filename == "" {
		filename = "MEMORY.md"
	}
	return readFile(filepath.Join(root, filename))
}

// SystemPromptContext joins the loaded project-context files into a
// block suitable for appending to the upstream system prompt. AGENTS.md
// comes first since it is the file a client is most likely to have
// written deliberately; MEMORY.md last, since it accumulates over time
// and is the least likely to be hand-curated per request.
func (w *WorkspaceContext) SystemPromptContext() string {
	var parts []string
	if strings.TrimSpace(w.AgentsContent) != "" {
		parts = append(parts, w.AgentsContent)
	}
	if strings.TrimSpace(w.ToolsContent) != "" {
		parts = append(parts, w.ToolsContent)
	}
	if strings.TrimSpace(w.MemoryContent) != "" {
		parts = append(parts, w.MemoryContent)
	}
	return strings.Join(parts, "\n\n")
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readOptionalFile(path string) (string, error) {
	content, err := readFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return content, nil
}
