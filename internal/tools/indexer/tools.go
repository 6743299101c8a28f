package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nexusrelay/agentproxy/internal/agent"
)

// ListTool implements workspace_list.
type ListTool struct{ index *Index }

func NewListTool(index *Index) *ListTool { return &ListTool{index: index} }

func (t *ListTool) Name() string        { return "workspace_list" }
func (t *ListTool) Description() string { return "List indexed files, optionally scoped to a directory." }
func (t *ListTool) Schema() json.RawMessage {
	return rawSchema(map[string]interface{}{
		"dir": map[string]interface{}{"type": "string", "description": "Directory to list (default: whole workspace)."},
	}, nil)
}
func (t *ListTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	var in struct {
		Dir string `json:"dir"`
	}
	_ = json.Unmarshal(params, &in)
	payload, _ := json.MarshalIndent(map[string]interface{}{"files": t.index.Files(in.Dir)}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

// SearchTool implements workspace_search.
type SearchTool struct{ index *Index }

func NewSearchTool(index *Index) *SearchTool { return &SearchTool{index: index} }

func (t *SearchTool) Name() string        { return "workspace_search" }
func (t *SearchTool) Description() string { return "Search indexed files for a regular expression." }
func (t *SearchTool) Schema() json.RawMessage {
	return rawSchema(map[string]interface{}{
		"pattern": map[string]interface{}{"type": "string", "description": "Regular expression to search for."},
		"limit":   map[string]interface{}{"type": "integer", "description": "Maximum matches to return (default 50)."},
	}, []string{"pattern"})
}
func (t *SearchTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	var in struct {
		Pattern string `json:"pattern"`
		Limit   int    `json:"limit"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(in.Pattern) == "" {
		return toolError("pattern is required"), nil
	}
	if in.Limit <= 0 {
		in.Limit = 50
	}
	matches, err := t.index.Search(in.Pattern, in.Limit)
	if err != nil {
		return toolError(err.Error()), nil
	}
	payload, _ := json.MarshalIndent(map[string]interface{}{"matches": matches}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

// SymbolSearchTool implements workspace_symbol_search.
type SymbolSearchTool struct{ index *Index }

func NewSymbolSearchTool(index *Index) *SymbolSearchTool { return &SymbolSearchTool{index: index} }

func (t *SymbolSearchTool) Name() string { return "workspace_symbol_search" }
func (t *SymbolSearchTool) Description() string {
	return "Search indexed symbol declarations (func/type/class/def/struct/interface) by name."
}
func (t *SymbolSearchTool) Schema() json.RawMessage {
	return rawSchema(map[string]interface{}{
		"query": map[string]interface{}{"type": "string", "description": "Substring to match against symbol names."},
	}, []string{"query"})
}
func (t *SymbolSearchTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	var in struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	payload, _ := json.MarshalIndent(map[string]interface{}{"symbols": t.index.Symbols(in.Query)}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

// SymbolReferencesTool implements workspace_symbol_references: a grep
// for the literal symbol name across indexed files.
type SymbolReferencesTool struct{ index *Index }

func NewSymbolReferencesTool(index *Index) *SymbolReferencesTool {
	return &SymbolReferencesTool{index: index}
}

func (t *SymbolReferencesTool) Name() string { return "workspace_symbol_references" }
func (t *SymbolReferencesTool) Description() string {
	return "Find references to a symbol name across indexed files."
}
func (t *SymbolReferencesTool) Schema() json.RawMessage {
	return rawSchema(map[string]interface{}{
		"name": map[string]interface{}{"type": "string", "description": "Symbol name to find references to."},
	}, []string{"name"})
}
func (t *SymbolReferencesTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	var in struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(in.Name) == "" {
		return toolError("name is required"), nil
	}
	matches, err := t.index.Search(`\b`+regexpQuote(in.Name)+`\b`, 100)
	if err != nil {
		return toolError(err.Error()), nil
	}
	payload, _ := json.MarshalIndent(map[string]interface{}{"references": matches}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

// GotoDefinitionTool implements workspace_goto_definition.
type GotoDefinitionTool struct{ index *Index }

func NewGotoDefinitionTool(index *Index) *GotoDefinitionTool {
	return &GotoDefinitionTool{index: index}
}

func (t *GotoDefinitionTool) Name() string { return "workspace_goto_definition" }
func (t *GotoDefinitionTool) Description() string {
	return "Find the definition site(s) of a symbol by exact name."
}
func (t *GotoDefinitionTool) Schema() json.RawMessage {
	return rawSchema(map[string]interface{}{
		"name": map[string]interface{}{"type": "string", "description": "Exact symbol name."},
	}, []string{"name"})
}
func (t *GotoDefinitionTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	var in struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(params, &in); err != nil {
		return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
	}
	var defs []Symbol
	for _, s := range t.index.Symbols(in.Name) {
		if s.Name == in.Name {
			defs = append(defs, s)
		}
	}
	payload, _ := json.MarshalIndent(map[string]interface{}{"definitions": defs}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

// IndexRebuildTool implements workspace_index_rebuild.
type IndexRebuildTool struct{ index *Index }

func NewIndexRebuildTool(index *Index) *IndexRebuildTool { return &IndexRebuildTool{index: index} }

func (t *IndexRebuildTool) Name() string        { return "workspace_index_rebuild" }
func (t *IndexRebuildTool) Description() string { return "Rebuild the file and symbol index from disk." }
func (t *IndexRebuildTool) Schema() json.RawMessage {
	return rawSchema(map[string]interface{}{}, nil)
}
func (t *IndexRebuildTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	_ = params
	if err := t.index.Rebuild(); err != nil {
		return toolError(err.Error()), nil
	}
	summary := t.index.Summary()
	payload, _ := json.MarshalIndent(summary, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

// ProjectSummaryTool implements project_summary.
type ProjectSummaryTool struct{ index *Index }

func NewProjectSummaryTool(index *Index) *ProjectSummaryTool {
	return &ProjectSummaryTool{index: index}
}

func (t *ProjectSummaryTool) Name() string        { return "project_summary" }
func (t *ProjectSummaryTool) Description() string { return "Summarize the indexed workspace (file/symbol counts, languages)." }
func (t *ProjectSummaryTool) Schema() json.RawMessage {
	return rawSchema(map[string]interface{}{}, nil)
}
func (t *ProjectSummaryTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	_ = params
	payload, _ := json.MarshalIndent(t.index.Summary(), "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

func rawSchema(properties map[string]interface{}, required []string) json.RawMessage {
	schema := map[string]interface{}{"type": "object", "properties": properties}
	if len(required) > 0 {
		schema["required"] = required
	}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

func regexpQuote(s string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`, `.`, `\.`, `+`, `\+`, `*`, `\*`, `?`, `\?`, `(`, `\(`, `)`, `\)`,
		`[`, `\[`, `]`, `\]`, `{`, `\{`, `}`, `\}`, `^`, `\^`, `$`, `\$`, `|`, `\|`,
	)
	return replacer.Replace(s)
}

func toolError(message string) *agent.ToolResult {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return &agent.ToolResult{Content: string(payload), IsError: true}
}
