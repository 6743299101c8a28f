// Package tasks implements the workspace_task_* / workspace_tasks_list
// tool family (§4.3 Tasks): an in-memory task board scoped to the
// server process, sufficient to exercise the loop and policy engine
// end to end (the durable `tasks` table §4.7 describes is out of
// scope, same as edits.Store).
package tasks

import (
	"fmt"
	"sync"
	"time"
)

// Task is a single tracked unit of work.
type Task struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Statuses a task may hold; set_status rejects anything else.
var Statuses = map[string]bool{
	"pending": true, "in_progress": true, "completed": true, "cancelled": true,
}

// Store is a mutex-protected task board.
type Store struct {
	mu    sync.Mutex
	tasks map[string]*Task
	seq   int
}

// NewStore creates an empty task board.
func NewStore() *Store {
	return &Store{tasks: map[string]*Task{}}
}

// Create adds a task in "pending" status and returns it.
func (s *Store) Create(title, detail string) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	now := time.Now()
	t := &Task{
		ID:        fmt.Sprintf("task-%d", s.seq),
		Title:     title,
		Detail:    detail,
		Status:    "pending",
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks[t.ID] = t
	return t
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Update replaces a task's title/detail (empty strings leave the field
// unchanged).
func (s *Store) Update(id, title, detail string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	if title != "" {
		t.Title = title
	}
	if detail != "" {
		t.Detail = detail
	}
	t.UpdatedAt = time.Now()
	return *t, true
}

// SetStatus transitions a task's status.
func (s *Store) SetStatus(id, status string) (Task, bool, error) {
	if !Statuses[status] {
		return Task{}, false, fmt.Errorf("invalid status: %s", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, false, nil
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	return *t, true, nil
}

// Delete removes a task.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	return true
}

// List returns all tasks, most recently created first.
func (s *Store) List() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].CreatedAt.After(out[i].CreatedAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out
}
