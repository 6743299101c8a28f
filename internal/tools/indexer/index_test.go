package indexer

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func seedWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc Run() {}\n\ntype Config struct{}\n")
	writeFile(t, root, "sub/helper.go", "package sub\n\nfunc Helper() {}\n")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main\n")
	return root
}

func TestRebuildIndexesFilesAndSymbols(t *testing.T) {
	root := seedWorkspace(t)
	idx := New(root)
	if err := idx.Rebuild(); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	files := idx.Files("")
	if len(files) != 2 {
		t.Fatalf("expected 2 files (git dir excluded), got %v", files)
	}

	symbols := idx.Symbols("")
	names := map[string]bool{}
	for _, s := range symbols {
		names[s.Name] = true
	}
	if !names["Run"] || !names["Config"] || !names["Helper"] {
		t.Fatalf("expected Run/Config/Helper symbols, got %v", symbols)
	}
}

func TestFilesScopedToDir(t *testing.T) {
	root := seedWorkspace(t)
	idx := New(root)
	if err := idx.Rebuild(); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	sub := idx.Files("sub")
	if len(sub) != 1 || sub[0] != "sub/helper.go" {
		t.Fatalf("unexpected scoped files: %v", sub)
	}
}

func TestSearchFindsPattern(t *testing.T) {
	root := seedWorkspace(t)
	idx := New(root)
	if err := idx.Rebuild(); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	matches, err := idx.Search(`func Helper`, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 || matches[0].Path != "sub/helper.go" {
		t.Fatalf("unexpected matches: %v", matches)
	}
}

func TestSummaryCountsLanguages(t *testing.T) {
	root := seedWorkspace(t)
	idx := New(root)
	if err := idx.Rebuild(); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	summary := idx.Summary()
	if summary.FileCount != 2 {
		t.Fatalf("expected 2 files, got %d", summary.FileCount)
	}
	if summary.LanguagesByExt[".go"] != 2 {
		t.Fatalf("expected 2 .go files, got %v", summary.LanguagesByExt)
	}
}
