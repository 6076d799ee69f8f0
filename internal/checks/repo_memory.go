package checks

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// MemoryRepo stores check tasks in memory and is safe for concurrent use.
// All writes go through one mutex, so readers always see progress and the
// merged result set move together.
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

// MarkProcessing moves a pending task to processing.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, taskID string) error {
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
	task.Status = StatusProcessing
	r.byID[taskID] = task
	return nil
}

// AddResult merges one dimension result and recomputes progress. Results for
// terminal tasks are dropped with ErrTerminal; progress never decreases.
func (r *MemoryRepo) AddResult(ctx context.Context, taskID string, result DimensionResult) error {
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
	if task.Results == nil {
		task.Results = make(map[string]DimensionResult, len(task.Dimensions))
	}
	task.Results[result.Dimension] = result

	if progress := progressFor(len(task.Results), len(task.Dimensions)); progress > task.Progress {
		task.Progress = progress
	}
	r.byID[taskID] = task
	return nil
}

// Complete finalizes a successful task.
func (r *MemoryRepo) Complete(ctx context.Context, taskID string, overallScore int, summary string) error {
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
	now := time.Now().UTC()
	task.Status = StatusCompleted
	task.Progress = 100
	task.OverallScore = &overallScore
	task.Summary = summary
	task.CompletedAt = &now
	r.byID[taskID] = task
	return nil
}

// Fail finalizes a failed task. Already-merged results are retained.
func (r *MemoryRepo) Fail(ctx context.Context, taskID string, summary string) error {
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
	now := time.Now().UTC()
	task.Status = StatusFailed
	task.Summary = summary
	task.CompletedAt = &now
	r.byID[taskID] = task
	return nil
}

func progressFor(merged, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(merged) / float64(total)))
}

var _ Repo = (*MemoryRepo)(nil)
