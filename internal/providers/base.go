// Package providers implements the upstream LLM adapters: Databricks,
// Azure-hosted Anthropic, and Amazon Bedrock. Each adapter satisfies
// agent.Provider and streams agent.CompletionChunk values back to the
// orchestrator's step loop.
package providers

import (
	"context"
	"time"

	"github.com/nexusrelay/agentproxy/internal/backoff"
)

// BaseProvider holds shared retry configuration for upstream adapters.
// Retry retries whatever the adapter's predicate accepts. The Databricks
// and Azure adapters pass IsTransportError, so they retry only
// network-level transport errors (connection refused, timeout, DNS
// failure); a non-2xx HTTP response is not retried by them and is
// returned as an UpstreamError, which unwraps to an
// agent.ProviderUpstreamError that is passed through to the client
// verbatim. The Bedrock adapter also retries its throttling and
// service-unavailable errors.
type BaseProvider struct {
	name       string
	maxRetries int
	retryDelay time.Duration
}

// NewBaseProvider creates a base provider with sane defaults.
func NewBaseProvider(name string, maxRetries int, retryDelay time.Duration) BaseProvider {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return BaseProvider{name: name, maxRetries: maxRetries, retryDelay: retryDelay}
}

// Name returns the provider identifier.
func (b *BaseProvider) Name() string { return b.name }

// retryPolicy turns the adapter's configured delay into a
// backoff.BackoffPolicy: retryDelay is the initial step, capped at 10x
// itself, doubling each attempt with up to 50% jitter.
func (b *BaseProvider) retryPolicy() backoff.BackoffPolicy {
	initial := float64(b.retryDelay / time.Millisecond)
	return backoff.BackoffPolicy{
		InitialMs: initial,
		MaxMs:     initial * 10,
		Factor:    2.0,
		Jitter:    0.5,
	}
}

// Retry executes op with exponential backoff while isTransport reports
// the error as a network-level failure.
func (b *BaseProvider) Retry(ctx context.Context, isTransport func(error) bool, op func() error) error {
	if op == nil {
		return nil
	}
	policy := b.retryPolicy()
	var lastErr error
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if isTransport == nil || !isTransport(err) {
			return err
		}
		if attempt >= b.maxRetries {
			break
		}
		if err := backoff.SleepWithBackoff(ctx, policy, attempt); err != nil {
			return err
		}
	}
	return lastErr
}
