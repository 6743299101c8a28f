// Package httpapi implements the proxy's external HTTP surface: health,
// metrics, session debug, and the Anthropic-compatible /v1/messages agent
// loop entry point (§6).
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nexusrelay/agentproxy/internal/agent"
	"github.com/nexusrelay/agentproxy/internal/sessions"
)

// sessionIDHeaders are tried in order before falling back to body fields.
var sessionIDHeaders = []string{
	"x-session-id",
	"x-claude-session-id",
	"x-claude-session",
	"x-claude-conversation-id",
	"anthropic-session-id",
}

// Metrics are the counters surfaced at GET /metrics in Prometheus
// exposition format.
type Metrics struct {
	requests          prometheus.Counter
	responsesSuccess  prometheus.Counter
	responsesError    prometheus.Counter
	streamingSessions prometheus.Counter
	registry          *prometheus.Registry
}

// NewMetrics registers the proxy's counters against a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentproxy_requests_total",
			Help: "Total POST /v1/messages requests received.",
		}),
		responsesSuccess: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentproxy_responses_success_total",
			Help: "Total requests that completed without a provider or internal error.",
		}),
		responsesError: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentproxy_responses_error_total",
			Help: "Total requests that ended in a client, provider, or internal error.",
		}),
		streamingSessions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "agentproxy_streaming_sessions_total",
			Help: "Total requests served over SSE.",
		}),
	}
	m.registry = prometheus.NewRegistry()
	m.registry.MustRegister(m.requests, m.responsesSuccess, m.responsesError, m.streamingSessions)
	return m
}

// Server is the proxy's HTTP surface. It holds no orchestration logic of
// its own beyond request/session plumbing; the step loop lives in
// agent.Orchestrator.
type Server struct {
	orchestrator *agent.Orchestrator
	store        *sessions.Store
	logger       *slog.Logger
	metrics      *Metrics
}

// NewServer builds an HTTP handler wired to the given orchestrator and
// session store.
func NewServer(orchestrator *agent.Orchestrator, store *sessions.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{orchestrator: orchestrator, store: store, logger: logger, metrics: NewMetrics()}
}

// Routes returns the server's http.Handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /debug/session", s.handleDebugSession)
	mux.HandleFunc("POST /v1/messages", s.handleMessages)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDebugSession(w http.ResponseWriter, r *http.Request) {
	id := resolveSessionIDFromHeaders(r)
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing_session_id", "no session id header present")
		return
	}
	session, err := s.store.GetSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			writeError(w, http.StatusNotFound, "session_not_found", fmt.Sprintf("no session %q", id))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	s.metrics.requests.Inc()

	body, err := decodeBody(r)
	if err != nil {
		s.metrics.responsesError.Inc()
		writeError(w, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	id, generated := resolveSessionID(r, body.raw)
	ctx := r.Context()
	session, err := s.store.GetOrCreateSession(ctx, id)
	if err != nil {
		s.metrics.responsesError.Inc()
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	session.Generated = generated

	result, err := s.orchestrator.ProcessMessage(ctx, body.raw, session)
	if err != nil {
		s.metrics.responsesError.Inc()
		s.logger.Error("orchestrator failure", "error", err, "session_id", id)
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	if result.UpstreamStatus != 0 {
		s.metrics.responsesError.Inc()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(result.UpstreamStatus)
		w.Write(result.UpstreamBody)
		return
	}

	s.metrics.responsesSuccess.Inc()

	if body.stream {
		s.metrics.streamingSessions.Inc()
		s.writeSSE(w, result)
		return
	}

	w.Header().Set("X-Termination-Reason", string(result.TerminationReason))
	writeJSON(w, http.StatusOK, json.RawMessage(result.Body))
}

func (s *Server) writeSSE(w http.ResponseWriter, result *agent.StepResult) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)

	messageEvent := map[string]any{"type": "message", "message": json.RawMessage(result.Body)}
	writeSSEEvent(w, "message", messageEvent)
	if flusher != nil {
		flusher.Flush()
	}

	endEvent := map[string]any{"termination": string(result.TerminationReason)}
	writeSSEEvent(w, "end", endEvent)
	if flusher != nil {
		flusher.Flush()
	}
}

func writeSSEEvent(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

type requestBody struct {
	raw    json.RawMessage
	stream bool
}

func decodeBody(r *http.Request) (requestBody, error) {
	var decoded struct {
		Stream bool `json:"stream"`
	}
	raw, err := jsonRawBody(r)
	if err != nil {
		return requestBody{}, err
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return requestBody{}, err
	}
	return requestBody{raw: raw, stream: decoded.Stream}, nil
}

func jsonRawBody(r *http.Request) (json.RawMessage, error) {
	defer r.Body.Close()
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode request body: %w", err)
	}
	return raw, nil
}

// resolveSessionID implements §6's header-then-body resolution order,
// generating a fresh id when none is present.
func resolveSessionID(r *http.Request, body json.RawMessage) (id string, generated bool) {
	if id := resolveSessionIDFromHeaders(r); id != "" {
		return id, false
	}

	var fields struct {
		SessionID      string `json:"session_id"`
		SessionIDCamel string `json:"sessionId"`
		ConversationID string `json:"conversation_id"`
	}
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, candidate := range []string{fields.SessionID, fields.SessionIDCamel, fields.ConversationID} {
			if strings.TrimSpace(candidate) != "" {
				return candidate, false
			}
		}
	}

	return uuid.NewString(), true
}

func resolveSessionIDFromHeaders(r *http.Request) string {
	for _, header := range sessionIDHeaders {
		if value := strings.TrimSpace(r.Header.Get(header)); value != "" {
			return value
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": code, "message": message})
}

// Shutdown performs a graceful shutdown of the given HTTP server, then
// runs each closer in order, returning the first error encountered.
func Shutdown(ctx context.Context, httpServer *http.Server, closers ...func() error) error {
	err := httpServer.Shutdown(ctx)
	for _, closer := range closers {
		if closeErr := closer(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
