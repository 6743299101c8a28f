package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/nexusrelay/agentproxy/internal/agent"
)

// IsTransportError reports whether err happened before any HTTP response was
// received: connection refused, DNS failure, TLS handshake failure, or a
// client-side timeout. The Databricks and Azure adapters retry only these
// errors through BaseProvider.Retry; a received non-2xx response is an
// UpstreamError and is not retried by them.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	return false
}

// UpstreamError wraps a non-2xx HTTP response from an upstream provider.
// The orchestrator passes Status and Body straight back to the client
// without reinterpreting them, per the spec's failure-passthrough rule.
type UpstreamError struct {
	Provider string
	Status   int
	Body     []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream returned status %d", e.Provider, e.Status)
}

// Unwrap exposes the error as the agent.ProviderUpstreamError the
// orchestrator looks for when passing a non-2xx response through.
func (e *UpstreamError) Unwrap() error {
	return &agent.ProviderUpstreamError{Provider: e.Provider, Status: e.Status, Body: e.Body}
}

// NewUpstreamError builds an UpstreamError from a provider name, status
// code, and raw response body.
func NewUpstreamError(provider string, status int, body []byte) *UpstreamError {
	return &UpstreamError{Provider: provider, Status: status, Body: body}
}
