package llm

import (
	"context"
	"errors"
	"fmt"
)

// Request captures one chat completion call to an AI provider.
type Request struct {
	System      string
	User        string
	ForceJSON   bool
	MaxTokens   int
	Temperature float32
}

// Client abstracts an AI provider backend. Implementations differ only in
// request framing and response unwrapping, never in the contract shape.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrUnknownProvider is returned for provider ids outside the configured set.
var ErrUnknownProvider = errors.New("unknown ai provider")

// APIError is a classified failure from a provider backend.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: http status %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// Transient reports whether the failure is worth retrying.
// Rate limits, request timeouts and server errors are transient;
// auth and malformed-request failures are not.
func (e *APIError) Transient() bool {
	switch {
	case e.Status == 408, e.Status == 429:
		return true
	case e.Status >= 500:
		return true
	default:
		return false
	}
}
