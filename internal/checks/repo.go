package checks

import "context"

// Repo defines persistence for check tasks. Implementations enforce the
// lifecycle invariants: terminal states are frozen, progress never moves
// backwards, and progress always reflects the merged result count.
type Repo interface {
	Create(ctx context.Context, task Task) error
	// GetByID returns a deep-copied snapshot of the task.
	GetByID(ctx context.Context, taskID string) (Task, error)
	MarkProcessing(ctx context.Context, taskID string) error
	// AddResult merges one dimension result and recomputes progress.
	AddResult(ctx context.Context, taskID string, result DimensionResult) error
	Complete(ctx context.Context, taskID string, overallScore int, summary string) error
	Fail(ctx context.Context, taskID string, summary string) error
}
