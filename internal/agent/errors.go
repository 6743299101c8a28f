package agent

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for orchestrator-level failures.
var (
	ErrNoProvider    = errors.New("no provider configured")
	ErrToolNotFound  = errors.New("tool not found")
	ErrToolTimeout   = errors.New("tool execution timed out")
	ErrToolPanic     = errors.New("tool panicked")
	ErrPolicyDenied  = errors.New("tool call denied by policy")
)

// ToolErrorType categorizes a recovered tool failure. It is surfaced to the
// client as part of a tool-role Turn, never as an HTTP-level error.
type ToolErrorType string

const (
	ToolErrorNotFound     ToolErrorType = "not_found"
	ToolErrorInvalidInput ToolErrorType = "invalid_input"
	ToolErrorTimeout      ToolErrorType = "timeout"
	ToolErrorPanic        ToolErrorType = "panic"
	ToolErrorDenied       ToolErrorType = "policy_denied"
	ToolErrorExecution    ToolErrorType = "execution"
)

// ToolError is a structured, recovered tool-execution failure.
type ToolError struct {
	Type       ToolErrorType
	ToolName   string
	ToolCallID string
	Message    string
	Cause      error
}

func (e *ToolError) Error() string {
	parts := []string{fmt.Sprintf("[tool:%s]", e.Type)}
	if e.ToolName != "" {
		parts = append(parts, e.ToolName)
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, " ")
}

func (e *ToolError) Unwrap() error { return e.Cause }

// NewToolError builds a ToolError, classifying the cause when no explicit
// type is given.
func NewToolError(toolName string, errType ToolErrorType, cause error) *ToolError {
	e := &ToolError{ToolName: toolName, Type: errType, Cause: cause}
	if errType == "" {
		switch {
		case errors.Is(cause, ErrToolNotFound):
			e.Type = ToolErrorNotFound
		case errors.Is(cause, ErrToolTimeout):
			e.Type = ToolErrorTimeout
		case errors.Is(cause, ErrToolPanic):
			e.Type = ToolErrorPanic
		case errors.Is(cause, ErrPolicyDenied):
			e.Type = ToolErrorDenied
		default:
			e.Type = ToolErrorExecution
		}
	}
	if cause != nil {
		e.Message = cause.Error()
	}
	return e
}

// GetToolError extracts a *ToolError from an error chain.
func GetToolError(err error) (*ToolError, bool) {
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr, true
	}
	return nil, false
}

// ProviderUpstreamError wraps a non-2xx response from the upstream
// provider. The orchestrator never retries on this error class: the
// status and body are passed through to the client verbatim.
type ProviderUpstreamError struct {
	Provider string
	Status   int
	Body     []byte
}

func (e *ProviderUpstreamError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.Provider, e.Status)
}

// TerminationReason explains why the orchestrator's step loop stopped.
type TerminationReason string

const (
	TerminationCompletion      TerminationReason = "completion"
	TerminationCacheHit        TerminationReason = "cache_hit"
	TerminationStepLimit       TerminationReason = "step_limit"
	TerminationToolLimit       TerminationReason = "tool_limit_reached"
	TerminationDurationLimit   TerminationReason = "duration_limit"
	TerminationProviderError   TerminationReason = "provider_error"
)
