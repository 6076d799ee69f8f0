package requirements

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryRepo stores analysis tasks in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Task
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID: make(map[string]Task),
	}
}

// Create stores the task.
func (r *MemoryRepo) Create(ctx context.Context, task Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[task.ID]; exists {
		return fmt.Errorf("duplicate task id %s", task.ID)
	}
	r.byID[task.ID] = task.Clone()
	return nil
}

// GetByID returns a deep-copied snapshot of the task.
func (r *MemoryRepo) GetByID(ctx context.Context, taskID string) (Task, error) {
	if err := ctx.Err(); err != nil {
		return Task{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.byID[taskID]
	if !ok {
		return Task{}, ErrNotFound
	}
	return task.Clone(), nil
}

// MarkProcessing moves a pending task to processing at progress 50.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, taskID string) error {
	return r.update(ctx, taskID, func(task *Task) {
		task.Status = StatusProcessing
		if task.Progress < 50 {
			task.Progress = 50
		}
	})
}

// CompleteAnalysis finalizes a requirements task.
func (r *MemoryRepo) CompleteAnalysis(ctx context.Context, taskID string, analysis RequirementAnalysis, summary string) error {
	return r.update(ctx, taskID, func(task *Task) {
		now := time.Now().UTC()
		task.Status = StatusCompleted
		task.Progress = 100
		task.Analysis = &analysis
		task.Summary = summary
		task.CompletedAt = &now
	})
}

// CompleteSuite finalizes a testcases task.
func (r *MemoryRepo) CompleteSuite(ctx context.Context, taskID string, suite TestCaseSuite, summary string) error {
	return r.update(ctx, taskID, func(task *Task) {
		now := time.Now().UTC()
		task.Status = StatusCompleted
		task.Progress = 100
		task.Suite = &suite
		task.Summary = summary
		task.CompletedAt = &now
	})
}

// Fail finalizes a failed task.
func (r *MemoryRepo) Fail(ctx context.Context, taskID string, summary string) error {
	return r.update(ctx, taskID, func(task *Task) {
		now := time.Now().UTC()
		task.Status = StatusFailed
		task.Summary = summary
		task.CompletedAt = &now
	})
}

func (r *MemoryRepo) update(ctx context.Context, taskID string, apply func(*Task)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.byID[taskID]
	if !ok {
		return ErrNotFound
	}
	if task.Terminal() {
		return ErrTerminal
	}
	apply(&task)
	r.byID[taskID] = task
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
