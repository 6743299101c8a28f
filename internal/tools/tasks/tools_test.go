package tasks

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestTaskToolCreateGetSetStatus(t *testing.T) {
	store := NewStore()
	create := NewTaskTool("create", store)

	params, _ := json.Marshal(map[string]string{"title": "ship feature"})
	result, err := create.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success: %s", result.Content)
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(result.Content), &created); err != nil {
		t.Fatalf("parse: %v", err)
	}

	setStatus := NewTaskTool("set_status", store)
	statusParams, _ := json.Marshal(map[string]string{"id": created.ID, "status": "completed"})
	statusResult, err := setStatus.Execute(context.Background(), statusParams)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(statusResult.Content, "completed") {
		t.Fatalf("expected completed status in result: %s", statusResult.Content)
	}

	list := NewTasksListTool(store)
	listResult, err := list.Execute(context.Background(), json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(listResult.Content, created.ID) {
		t.Fatalf("expected created task in list: %s", listResult.Content)
	}
}

func TestTaskToolGetMissing(t *testing.T) {
	store := NewStore()
	get := NewTaskTool("get", store)
	params, _ := json.Marshal(map[string]string{"id": "task-404"})
	result, err := get.Execute(context.Background(), params)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !result.IsError {
		t.Fatalf("expected error for missing task")
	}
}
