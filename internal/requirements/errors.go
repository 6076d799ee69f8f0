package requirements

import "errors"

var (
	// ErrNotFound indicates the task does not exist.
	ErrNotFound = errors.New("analysis task not found")
	// ErrInvalidInput indicates a malformed request.
	ErrInvalidInput = errors.New("invalid analysis request")
	// ErrInvalidState indicates an export against a task without a payload.
	ErrInvalidState = errors.New("task has no exportable payload")
	// ErrTerminal indicates a write against a completed or failed task.
	ErrTerminal = errors.New("task already in a terminal state")
)
