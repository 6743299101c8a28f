package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// compileToolSchema compiles an MCP tool's input_schema as JSON Schema,
// surfacing malformed schemas from third-party servers before they reach
// an LLM's tool definitions or a workspace_mcp_call argument check.
func compileToolSchema(schema json.RawMessage) (*jsonschema.Schema, error) {
	if len(schema) == 0 {
		return nil, nil
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("tool-schema.json", bytes.NewReader(schema)); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	compiled, err := compiler.Compile("tool-schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return compiled, nil
}

// validateToolArguments checks call arguments against a tool's input_schema,
// skipping validation (rather than failing closed) when the schema itself
// doesn't compile, since a malformed schema is the server's bug, not the
// caller's.
func validateToolArguments(schema json.RawMessage, arguments map[string]any) error {
	compiled, err := compileToolSchema(schema)
	if err != nil || compiled == nil {
		return nil
	}
	return compiled.Validate(argumentsToInterface(arguments))
}

func argumentsToInterface(arguments map[string]any) any {
	if arguments == nil {
		return map[string]any{}
	}
	return arguments
}
