package files

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nexusrelay/agentproxy/internal/tools/edits"
)

func TestResolverRejectsEscape(t *testing.T) {
	root := t.TempDir()
	resolver := Resolver{Root: root}
	_, err := resolver.Resolve("../outside.txt")
	if err == nil {
		t.Fatal("expected escape to be rejected")
	}
}

func TestReadWrite(t *testing.T) {
	root := t.TempDir()
	cfg := Config{Workspace: root, MaxReadBytes: 10}

	writeTool := NewWriteTool(cfg)
	readTool := NewReadTool(cfg)

	writeParams, _ := json.Marshal(map[string]interface{}{
		"path":    "notes.txt",
		"content": "hello world",
	})
	if _, err := writeTool.Execute(context.Background(), writeParams); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	readParams, _ := json.Marshal(map[string]interface{}{
		"path": "notes.txt",
	})
	result, err := readTool.Execute(context.Background(), readParams)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(result.Content, "hello") {
		t.Fatalf("expected content, got %s", result.Content)
	}

	data, err := os.ReadFile(filepath.Join(root, "notes.txt"))
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != "hello world" {
		t.Fatalf("unexpected content: %s", string(data))
	}
}

func TestApplyPatch(t *testing.T) {
	root := t.TempDir()
	cfg := Config{Workspace: root}
	path := filepath.Join(root, "file.txt")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tool := NewApplyPatchTool(cfg)
	patch := strings.Join([]string{
		"--- a/file.txt",
		"+++ b/file.txt",
		"@@ -1,3 +1,3 @@",
		" a",
		"-b",
		"+bb",
		" c",
		"",
	}, "\n")

	params, _ := json.Marshal(map[string]interface{}{"patch": patch})
	if _, err := tool.Execute(context.Background(), params); err != nil {
		t.Fatalf("apply patch failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != "a\nbb\nc\n" {
		t.Fatalf("unexpected content: %s", string(data))
	}
}

func TestWriteToolRecordsHistory(t *testing.T) {
	root := t.TempDir()
	cfg := Config{Workspace: root}
	history := edits.NewStore()
	tool := NewWriteTool(cfg).WithHistory(history)

	params, _ := json.Marshal(map[string]interface{}{"path": "notes.txt", "content": "v1"})
	if _, err := tool.Execute(context.Background(), params); err != nil {
		t.Fatalf("write: %v", err)
	}
	params2, _ := json.Marshal(map[string]interface{}{"path": "notes.txt", "content": "v2"})
	if _, err := tool.Execute(context.Background(), params2); err != nil {
		t.Fatalf("write: %v", err)
	}

	entries := history.History("notes.txt", 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(entries))
	}
	if entries[0].Before != "v1" || entries[0].After != "v2" {
		t.Fatalf("unexpected snapshot: %+v", entries[0])
	}
}

func TestApplyPatchToolRecordsHistory(t *testing.T) {
	root := t.TempDir()
	cfg := Config{Workspace: root}
	path := filepath.Join(root, "file.txt")
	if err := os.WriteFile(path, []byte("a\nb\nc\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	history := edits.NewStore()
	tool := NewApplyPatchTool(cfg).WithHistory(history)
	patch := strings.Join([]string{
		"--- a/file.txt",
		"+++ b/file.txt",
		"@@ -1,3 +1,3 @@",
		" a",
		"-b",
		"+bb",
		" c",
		"",
	}, "\n")

	params, _ := json.Marshal(map[string]interface{}{"patch": patch})
	if _, err := tool.Execute(context.Background(), params); err != nil {
		t.Fatalf("apply patch: %v", err)
	}

	entries := history.History("file.txt", 0)
	if len(entries) != 1 {
		t.Fatalf("expected 1 history entry, got %d", len(entries))
	}
	if entries[0].Before != "a\nb\nc\n" || entries[0].After != "a\nbb\nc\n" {
		t.Fatalf("unexpected snapshot: %+v", entries[0])
	}
}
