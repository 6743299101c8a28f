package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRole_Constants(t *testing.T) {
	tests := []struct {
		constant Role
		expected string
	}{
		{RoleUser, "user"},
		{RoleAssistant, "assistant"},
		{RoleTool, "tool"},
		{RoleSystem, "system"},
	}

	for _, tt := range tests {
		t.Run(string(tt.constant), func(t *testing.T) {
			if string(tt.constant) != tt.expected {
				t.Errorf("constant = %q, want %q", tt.constant, tt.expected)
			}
		})
	}
}

func TestTurn_JSONRoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	original := Turn{
		Role:      RoleAssistant,
		Type:      "message",
		Status:    200,
		Content:   json.RawMessage(`{"text":"hello"}`),
		Metadata:  map[string]any{"source": "test"},
		CreatedAt: now,
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded Turn
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if decoded.Role != original.Role {
		t.Errorf("Role = %v, want %v", decoded.Role, original.Role)
	}
	if string(decoded.Content) != string(original.Content) {
		t.Errorf("Content = %s, want %s", decoded.Content, original.Content)
	}
}

func TestToolCall_Struct(t *testing.T) {
	tc := ToolCall{
		ID:    "tc-123",
		Name:  "web_search",
		Input: json.RawMessage(`{"query": "test query"}`),
	}

	if tc.ID != "tc-123" {
		t.Errorf("ID = %q, want %q", tc.ID, "tc-123")
	}
	if tc.Name != "web_search" {
		t.Errorf("Name = %q, want %q", tc.Name, "web_search")
	}
}

func TestToolResult_IsError(t *testing.T) {
	ok := ToolResult{ToolCallID: "tc-123", OK: true, Status: 200, Content: "done"}
	if ok.IsError() {
		t.Error("IsError should be false for a successful result")
	}

	denied := ToolResult{
		ToolCallID: "tc-456",
		OK:         false,
		Status:     403,
		Error:      &ToolResultError{Code: "tool_disallowed", Message: "denied"},
	}
	if !denied.IsError() {
		t.Error("IsError should be true when Error is set")
	}

	notOK := ToolResult{ToolCallID: "tc-789", OK: false, Status: 500, Content: "boom"}
	if !notOK.IsError() {
		t.Error("IsError should be true when OK is false")
	}
}

func TestSession_Struct(t *testing.T) {
	now := time.Now()
	session := Session{
		ID:        "session-123",
		Generated: true,
		Metadata:  map[string]any{"test": true},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if session.ID != "session-123" {
		t.Errorf("ID = %q, want %q", session.ID, "session-123")
	}
	if !session.Generated {
		t.Error("Generated should be true")
	}
}
