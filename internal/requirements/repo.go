package requirements

import "context"

// Repo defines persistence for analysis tasks. Implementations freeze
// terminal rows and keep progress monotonic.
type Repo interface {
	Create(ctx context.Context, task Task) error
	// GetByID returns a deep-copied snapshot of the task.
	GetByID(ctx context.Context, taskID string) (Task, error)
	// MarkProcessing moves the task to processing at progress 50.
	MarkProcessing(ctx context.Context, taskID string) error
	CompleteAnalysis(ctx context.Context, taskID string, analysis RequirementAnalysis, summary string) error
	CompleteSuite(ctx context.Context, taskID string, suite TestCaseSuite, summary string) error
	Fail(ctx context.Context, taskID string, summary string) error
}
