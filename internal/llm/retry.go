package llm

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"time"
)

// Retry policy: up to MaxAttempts calls with exponential backoff starting at
// BaseDelay (1s, 2s, 4s by default). Only transient failures are retried;
// auth and malformed-request failures surface immediately.
const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
)

// RetryOptions tunes the bounded retry decorator.
type RetryOptions struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

type retryingClient struct {
	base        Client
	maxAttempts int
	baseDelay   time.Duration
}

// WithRetry wraps a client with the bounded retry policy.
func WithRetry(base Client, opts RetryOptions) Client {
	if base == nil {
		return nil
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	return &retryingClient{
		base:        base,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.BaseDelay,
	}
}

func (r *retryingClient) Complete(ctx context.Context, req Request) (string, error) {
	var lastErr error
	delay := r.baseDelay

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		resp, err := r.base.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !ShouldRetry(err) || attempt == r.maxAttempts {
			break
		}

		log.Printf("llm retry attempt=%d max=%d delay=%s error=%v", attempt, r.maxAttempts, delay, err)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		delay *= 2
	}

	return "", lastErr
}

// ShouldRetry classifies an error as transient.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "client.timeout") {
		return true
	}
	if strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection closed") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout") ||
		strings.Contains(msg, "eof") {
		return true
	}

	return false
}
