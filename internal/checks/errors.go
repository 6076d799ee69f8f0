package checks

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the task does not exist.
	ErrNotFound = errors.New("check task not found")
	// ErrInvalidInput indicates a malformed create request.
	ErrInvalidInput = errors.New("invalid check request")
	// ErrTerminal indicates a write against a completed or failed task.
	ErrTerminal = errors.New("task already in a terminal state")
)

// ProviderError marks an exhausted AI provider call for one dimension.
// It is the only failure class that fails a whole task.
type ProviderError struct {
	Dimension string
	Provider  string
	Err       error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s failed on dimension %s: %v", e.Provider, e.Dimension, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
