// Package indexer implements the thin workspace_list / workspace_search /
// workspace_symbol_* / workspace_goto_definition / workspace_index_rebuild
// / project_summary tool family (§4.3 Indexer). A recursive-walk plus
// substring/regex grep stands in for a tree-sitter-backed indexer, per
// the purpose section's non-goal on the full indexer design.
package indexer

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/nexusrelay/agentproxy/internal/tools/files"
)

var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, ".idea": true, ".vscode": true,
}

// Symbol is a coarse definition site: a line declaring a
// func/type/class/def/struct/interface, at any indentation.
type Symbol struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Path string `json:"path"`
	Line int    `json:"line"`
}

// Index is an in-memory, rebuildable file and symbol catalog for one
// workspace root.
type Index struct {
	mu       sync.RWMutex
	root     string
	resolver files.Resolver
	files    []string
	symbols  []Symbol
}

// New creates an index rooted at workspaceRoot. Callers should call
// Rebuild once before first use.
func New(workspaceRoot string) *Index {
	return &Index{root: workspaceRoot, resolver: files.Resolver{Root: workspaceRoot}}
}

var symbolPattern = regexp.MustCompile(`^\s*(?:(?:export|public|private|async)\s+)*(func|type|class|def|struct|interface)\s+(?:\([^)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)`)

// Rebuild walks the workspace root and recomputes the file list and the
// coarse symbol table. It is cheap enough to run synchronously; large
// workspaces are expected to call it sparingly (workspace_index_rebuild).
func (idx *Index) Rebuild() error {
	root := idx.root
	if root == "" {
		root = "."
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve workspace root: %w", err)
	}

	var fileList []string
	var symbols []Symbol

	err = filepath.Walk(rootAbs, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(rootAbs, path)
		if relErr != nil {
			return nil
		}
		if rel == "." {
			return nil
		}
		if info.IsDir() {
			if skipDirs[info.Name()] || strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		fileList = append(fileList, filepath.ToSlash(rel))
		if looksTextual(info.Name()) {
			symbols = append(symbols, extractSymbols(path, rel)...)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Strings(fileList)

	idx.mu.Lock()
	idx.files = fileList
	idx.symbols = symbols
	idx.mu.Unlock()
	return nil
}

func looksTextual(name string) bool {
	switch filepath.Ext(name) {
	case ".go", ".py", ".js", ".ts", ".tsx", ".jsx", ".java", ".rb", ".rs", ".c", ".h", ".cpp", ".cc":
		return true
	default:
		return false
	}
}

func extractSymbols(absPath, relPath string) []Symbol {
	f, err := os.Open(absPath)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []Symbol
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		match := symbolPattern.FindStringSubmatch(scanner.Text())
		if match == nil {
			continue
		}
		out = append(out, Symbol{Name: match[2], Kind: match[1], Path: filepath.ToSlash(relPath), Line: line})
	}
	return out
}

// Files returns indexed file paths under dir (workspace-relative,
// "" for the whole tree).
func (idx *Index) Files(dir string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if dir == "" || dir == "." {
		out := make([]string, len(idx.files))
		copy(out, idx.files)
		return out
	}
	prefix := strings.TrimSuffix(filepath.ToSlash(dir), "/") + "/"
	var out []string
	for _, f := range idx.files {
		if strings.HasPrefix(f, prefix) {
			out = append(out, f)
		}
	}
	return out
}

// Search greps every indexed file for pattern (treated as a regular
// expression), returning up to maxResults matches.
func (idx *Index) Search(pattern string, maxResults int) ([]SearchMatch, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	idx.mu.RLock()
	fileList := make([]string, len(idx.files))
	copy(fileList, idx.files)
	idx.mu.RUnlock()

	var matches []SearchMatch
	for _, rel := range fileList {
		if maxResults > 0 && len(matches) >= maxResults {
			break
		}
		abs, err := idx.resolver.Resolve(rel)
		if err != nil {
			continue
		}
		f, err := os.Open(abs)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			text := scanner.Text()
			if re.MatchString(text) {
				matches = append(matches, SearchMatch{Path: rel, Line: line, Text: strings.TrimSpace(text)})
				if maxResults > 0 && len(matches) >= maxResults {
					break
				}
			}
		}
		f.Close()
	}
	return matches, nil
}

// SearchMatch is one line matching a workspace_search query.
type SearchMatch struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Symbols returns indexed symbols whose name contains query
// (case-insensitive substring match), or all symbols when query is "".
func (idx *Index) Symbols(query string) []Symbol {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if query == "" {
		out := make([]Symbol, len(idx.symbols))
		copy(out, idx.symbols)
		return out
	}
	lower := strings.ToLower(query)
	var out []Symbol
	for _, s := range idx.symbols {
		if strings.Contains(strings.ToLower(s.Name), lower) {
			out = append(out, s)
		}
	}
	return out
}

// Summary computes project_summary statistics from the current index.
type Summary struct {
	FileCount       int            `json:"file_count"`
	SymbolCount     int            `json:"symbol_count"`
	LanguagesByExt  map[string]int `json:"languages_by_extension"`
	TopLevelEntries []string       `json:"top_level_entries"`
}

func (idx *Index) Summary() Summary {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	langs := map[string]int{}
	topLevel := map[string]bool{}
	for _, f := range idx.files {
		ext := filepath.Ext(f)
		if ext != "" {
			langs[ext]++
		}
		if parts := strings.SplitN(f, "/", 2); len(parts) > 0 {
			topLevel[parts[0]] = true
		}
	}
	entries := make([]string, 0, len(topLevel))
	for k := range topLevel {
		entries = append(entries, k)
	}
	sort.Strings(entries)

	return Summary{
		FileCount:       len(idx.files),
		SymbolCount:     len(idx.symbols),
		LanguagesByExt:  langs,
		TopLevelEntries: entries,
	}
}
