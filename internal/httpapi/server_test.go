package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nexusrelay/agentproxy/internal/sessions"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := sessions.Open("")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewServer(nil, store, nil)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want %q", body["status"], "ok")
	}
}

func TestHandleMetrics(t *testing.T) {
	s := newTestServer(t)
	s.metrics.requests.Inc()
	s.metrics.requests.Inc()
	s.metrics.requests.Inc()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "agentproxy_requests_total 3") {
		t.Errorf("expected exposition body to report 3 requests, got:\n%s", rec.Body.String())
	}
}

func TestHandleDebugSession_MissingHeader(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/debug/session", nil)
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleDebugSession_NotFound(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/debug/session", nil)
	req.Header.Set("x-session-id", "nonexistent")
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandleDebugSession_Found(t *testing.T) {
	s := newTestServer(t)
	if _, err := s.store.GetOrCreateSession(context.Background(), "abc"); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/debug/session", nil)
	req.Header.Set("x-session-id", "abc")
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestResolveSessionIDFromHeaders_Priority(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	req.Header.Set("anthropic-session-id", "lowest-priority")
	req.Header.Set("x-session-id", "highest-priority")

	id := resolveSessionIDFromHeaders(req)
	if id != "highest-priority" {
		t.Errorf("id = %q, want %q", id, "highest-priority")
	}
}

func TestResolveSessionID_FallsBackToBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	body := json.RawMessage(`{"session_id":"from-body"}`)

	id, generated := resolveSessionID(req, body)
	if generated {
		t.Errorf("generated = true, want false")
	}
	if id != "from-body" {
		t.Errorf("id = %q, want %q", id, "from-body")
	}
}

func TestResolveSessionID_GeneratesWhenAbsent(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", nil)
	body := json.RawMessage(`{}`)

	id, generated := resolveSessionID(req, body)
	if !generated {
		t.Errorf("generated = false, want true")
	}
	if id == "" {
		t.Errorf("expected a generated id, got empty string")
	}
}
