package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nexusrelay/agentproxy/internal/agent"
)

// TaskTool dispatches one canonical workspace_task_* action.
type TaskTool struct {
	action string
	store  *Store
}

// NewTaskTool creates a task tool for action in
// {create,get,update,set_status,delete}.
func NewTaskTool(action string, store *Store) *TaskTool {
	return &TaskTool{action: action, store: store}
}

func (t *TaskTool) Name() string { return "workspace_task_" + t.action }

func (t *TaskTool) Description() string {
	return fmt.Sprintf("%s a workspace task.", capitalize(t.action))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (t *TaskTool) Schema() json.RawMessage {
	props := map[string]interface{}{
		"id":     map[string]interface{}{"type": "string", "description": "Task id."},
		"title":  map[string]interface{}{"type": "string", "description": "Task title."},
		"detail": map[string]interface{}{"type": "string", "description": "Task detail."},
		"status": map[string]interface{}{"type": "string", "description": "pending|in_progress|completed|cancelled"},
	}
	var required []string
	switch t.action {
	case "create":
		required = []string{"title"}
	case "get", "delete":
		required = []string{"id"}
	case "update":
		required = []string{"id"}
	case "set_status":
		required = []string{"id", "status"}
	}
	schema := map[string]interface{}{"type": "object", "properties": props, "required": required}
	payload, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return payload
}

type taskInput struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
	Status string `json:"status"`
}

func (t *TaskTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	if t.store == nil {
		return toolError("task store unavailable"), nil
	}
	var in taskInput
	if len(params) > 0 {
		if err := json.Unmarshal(params, &in); err != nil {
			return toolError(fmt.Sprintf("Invalid parameters: %v", err)), nil
		}
	}

	switch t.action {
	case "create":
		if strings.TrimSpace(in.Title) == "" {
			return toolError("title is required"), nil
		}
		return marshalTask(t.store.Create(in.Title, in.Detail)), nil
	case "get":
		if strings.TrimSpace(in.ID) == "" {
			return toolError("id is required"), nil
		}
		task, ok := t.store.Get(in.ID)
		if !ok {
			return toolError("task not found: " + in.ID), nil
		}
		return marshalTaskValue(task), nil
	case "update":
		if strings.TrimSpace(in.ID) == "" {
			return toolError("id is required"), nil
		}
		task, ok := t.store.Update(in.ID, in.Title, in.Detail)
		if !ok {
			return toolError("task not found: " + in.ID), nil
		}
		return marshalTaskValue(task), nil
	case "set_status":
		if strings.TrimSpace(in.ID) == "" {
			return toolError("id is required"), nil
		}
		task, ok, err := t.store.SetStatus(in.ID, in.Status)
		if err != nil {
			return toolError(err.Error()), nil
		}
		if !ok {
			return toolError("task not found: " + in.ID), nil
		}
		return marshalTaskValue(task), nil
	case "delete":
		if strings.TrimSpace(in.ID) == "" {
			return toolError("id is required"), nil
		}
		if !t.store.Delete(in.ID) {
			return toolError("task not found: " + in.ID), nil
		}
		payload, _ := json.MarshalIndent(map[string]interface{}{"deleted": in.ID}, "", "  ")
		return &agent.ToolResult{Content: string(payload)}, nil
	default:
		return toolError("unsupported action: " + t.action), nil
	}
}

// TasksListTool implements workspace_tasks_list.
type TasksListTool struct{ store *Store }

func NewTasksListTool(store *Store) *TasksListTool { return &TasksListTool{store: store} }

func (t *TasksListTool) Name() string        { return "workspace_tasks_list" }
func (t *TasksListTool) Description() string { return "List all workspace tasks." }
func (t *TasksListTool) Schema() json.RawMessage {
	return json.RawMessage(`{"type":"object","properties":{}}`)
}
func (t *TasksListTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	_ = ctx
	_ = params
	if t.store == nil {
		payload, _ := json.MarshalIndent(map[string]interface{}{"tasks": []Task{}}, "", "  ")
		return &agent.ToolResult{Content: string(payload)}, nil
	}
	payload, _ := json.MarshalIndent(map[string]interface{}{"tasks": t.store.List()}, "", "  ")
	return &agent.ToolResult{Content: string(payload)}, nil
}

func marshalTask(t *Task) *agent.ToolResult { return marshalTaskValue(*t) }

func marshalTaskValue(t Task) *agent.ToolResult {
	payload, _ := json.MarshalIndent(t, "", "  ")
	return &agent.ToolResult{Content: string(payload)}
}

func toolError(message string) *agent.ToolResult {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return &agent.ToolResult{Content: string(payload), IsError: true}
}
