package workspace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nexusrelay/agentproxy/internal/config"
)

func TestLoaderConfigFromConfig(t *testing.T) {
	t.Run("nil config uses defaults", func(t *testing.T) {
		cfg := LoaderConfigFromConfig(nil)
		if cfg.AgentsFile != "AGENTS.md" {
			t.Errorf("AgentsFile = %q, want %q", cfg.AgentsFile, "AGENTS.md")
		}
		if cfg.MemoryFile != "MEMORY.md" {
			t.Errorf("MemoryFile = %q, want %q", cfg.MemoryFile, "MEMORY.md")
		}
	})

	t.Run("root comes from workspace config", func(t *testing.T) {
		appCfg := &config.Config{
			Workspace: config.WorkspaceConfig{Root: "/custom/path"},
		}
		cfg := LoaderConfigFromConfig(appCfg)
		if cfg.Root != "/custom/path" {
			t.Errorf("Root = %q, want %q", cfg.Root, "/custom/path")
		}
		// File names stay at their conventional defaults.
		if cfg.AgentsFile != "AGENTS.md" {
			t.Errorf("AgentsFile = %q, want %q", cfg.AgentsFile, "AGENTS.md")
		}
		if cfg.ToolsFile != "TOOLS.md" {
			t.Errorf("ToolsFile = %q, want %q", cfg.ToolsFile, "TOOLS.md")
		}
	})
}

func TestLoadWorkspace(t *testing.T) {
	tmpDir := t.TempDir()

	agentsContent := "# AGENTS.md\n\nBe careful with destructive commands."
	toolsContent := "# TOOLS.md\n\nmake test runs the suite."
	memoryContent := "# MEMORY.md\n\nThis repo uses Go modules."

	os.WriteFile(filepath.Join(tmpDir, "AGENTS.md"), []byte(agentsContent), 0644)
	os.WriteFile(filepath.Join(tmpDir, "TOOLS.md"), []byte(toolsContent), 0644)
	os.WriteFile(filepath.Join(tmpDir, "MEMORY.md"), []byte(memoryContent), 0644)

	ctx, err := LoadWorkspace(LoaderConfig{Root: tmpDir})
	if err != nil {
		t.Fatalf("LoadWorkspace error: %v", err)
	}

	if ctx.AgentsContent != agentsContent {
		t.Errorf("AgentsContent = %q, want %q", ctx.AgentsContent, agentsContent)
	}
	if ctx.ToolsContent != toolsContent {
		t.Errorf("ToolsContent = %q, want %q", ctx.ToolsContent, toolsContent)
	}
	if ctx.MemoryContent != memoryContent {
		t.Errorf("MemoryContent = %q, want %q", ctx.MemoryContent, memoryContent)
	}
}

func TestLoadWorkspace_MissingFiles(t *testing.T) {
	tmpDir := t.TempDir()

	// No files created - should not error
	ctx, err := LoadWorkspace(LoaderConfig{Root: tmpDir})
	if err != nil {
		t.Fatalf("LoadWorkspace error: %v", err)
	}

	if ctx.AgentsContent != "" {
		t.Errorf("AgentsContent should be empty for missing file")
	}
	if ctx.ToolsContent != "" {
		t.Errorf("ToolsContent should be empty for missing file")
	}
	if ctx.MemoryContent != "" {
		t.Errorf("MemoryContent should be empty for missing file")
	}
}

func TestWorkspaceContext_SystemPromptContext(t *testing.T) {
	t.Run("with all data", func(t *testing.T) {
		ctx := &WorkspaceContext{
			AgentsContent: "Be careful with destructive commands.",
			ToolsContent:  "make test runs the suite.",
			MemoryContent: "This repo uses Go modules.",
		}

		prompt := ctx.SystemPromptContext()

		if !strings.Contains(prompt, "Be careful with destructive commands") {
			t.Error("should contain agents content")
		}
		if !strings.Contains(prompt, "make test runs the suite") {
			t.Error("should contain tools content")
		}
		if !strings.Contains(prompt, "This repo uses Go modules") {
			t.Error("should contain memory content")
		}
		// AGENTS.md orders first, MEMORY.md last.
		if strings.Index(prompt, "Be careful") > strings.Index(prompt, "This repo uses Go modules") {
			t.Error("expected AGENTS.md content before MEMORY.md content")
		}
	})

	t.Run("empty context", func(t *testing.T) {
		ctx := &WorkspaceContext{}
		prompt := ctx.SystemPromptContext()
		if prompt != "" {
			t.Errorf("expected empty prompt, got %q", prompt)
		}
	})
}

func TestLoadMemory(t *testing.T) {
	tmpDir := t.TempDir()
	content := "# Memory\n\nRemember this."
	os.WriteFile(filepath.Join(tmpDir, "MEMORY.md"), []byte(content), 0644)

	mem, err := LoadMemory(tmpDir, "")
	if err != nil {
		t.Fatalf("LoadMemory error: %v", err)
	}
	if mem != content {
		t.Errorf("memory = %q, want %q", mem, content)
	}
}
