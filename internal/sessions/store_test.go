package sessions

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nexusrelay/agentproxy/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetOrCreateSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	session, err := s.GetOrCreateSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetOrCreateSession error: %v", err)
	}
	if session.ID != "sess-1" {
		t.Errorf("ID = %q, want sess-1", session.ID)
	}
	if len(session.History) != 0 {
		t.Errorf("History = %v, want empty", session.History)
	}

	again, err := s.GetOrCreateSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("second GetOrCreateSession error: %v", err)
	}
	if again.CreatedAt != session.CreatedAt {
		t.Error("second call should return the same session, not recreate it")
	}
}

func TestAppendSessionTurn(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	turn := models.Turn{
		Role:    models.RoleUser,
		Type:    "message",
		Status:  200,
		Content: json.RawMessage(`{"text":"hello"}`),
	}
	stored, err := s.AppendSessionTurn(ctx, "sess-1", turn, map[string]any{"client": "test"})
	if err != nil {
		t.Fatalf("AppendSessionTurn error: %v", err)
	}
	if stored.ID == 0 {
		t.Error("expected non-zero turn id after insert")
	}

	second := models.Turn{Role: models.RoleAssistant, Type: "message", Status: 200, Content: json.RawMessage(`{"text":"hi"}`)}
	if _, err := s.AppendSessionTurn(ctx, "sess-1", second, nil); err != nil {
		t.Fatalf("second AppendSessionTurn error: %v", err)
	}

	session, err := s.GetOrCreateSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetOrCreateSession error: %v", err)
	}
	if len(session.History) != 2 {
		t.Fatalf("History length = %d, want 2", len(session.History))
	}
	if session.History[0].Role != models.RoleUser || session.History[1].Role != models.RoleAssistant {
		t.Errorf("turns out of order: %+v", session.History)
	}
	if session.Metadata["client"] != "test" {
		t.Errorf("session metadata = %v, want client=test", session.Metadata)
	}
}

func TestDeleteSessionCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	turn := models.Turn{Role: models.RoleUser, Type: "message", Content: json.RawMessage(`{}`)}
	if _, err := s.AppendSessionTurn(ctx, "sess-1", turn, nil); err != nil {
		t.Fatalf("AppendSessionTurn error: %v", err)
	}

	if err := s.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("DeleteSession error: %v", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns WHERE session_id = ?`, "sess-1").Scan(&count); err != nil {
		t.Fatalf("count turns: %v", err)
	}
	if count != 0 {
		t.Errorf("turns remaining after delete = %d, want 0", count)
	}

	if err := s.DeleteSession(ctx, "sess-1"); err != ErrNotFound {
		t.Errorf("DeleteSession on missing id = %v, want ErrNotFound", err)
	}
}

func TestUpsertSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.UpsertSession(ctx, "sess-1", true, map[string]any{"title": "first"}); err != nil {
		t.Fatalf("UpsertSession error: %v", err)
	}
	session, err := s.GetOrCreateSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetOrCreateSession error: %v", err)
	}
	if !session.Generated {
		t.Error("Generated = false, want true")
	}
	if session.Metadata["title"] != "first" {
		t.Errorf("Metadata = %v, want title=first", session.Metadata)
	}

	if err := s.UpsertSession(ctx, "sess-1", false, map[string]any{"title": "second"}); err != nil {
		t.Fatalf("second UpsertSession error: %v", err)
	}
	session, err = s.GetOrCreateSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetOrCreateSession error: %v", err)
	}
	if session.Generated {
		t.Error("Generated = true, want false after update")
	}
	if session.Metadata["title"] != "second" {
		t.Errorf("Metadata = %v, want title=second", session.Metadata)
	}
}
