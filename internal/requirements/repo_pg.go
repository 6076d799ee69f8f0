package requirements

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres. Payloads are JSONB; lifecycle
// guards live in the WHERE clauses so terminal rows stay frozen.
type PGRepo struct {
	DB *sql.DB
}

const taskColumns = `id, document_id, kind, provider, status, progress, analysis, suite, summary, created_at, completed_at`

// Create inserts a new task row.
func (r *PGRepo) Create(ctx context.Context, task Task) error {
	const query = `
INSERT INTO requirement_tasks (
    id, document_id, kind, provider, status, progress,
    analysis, suite, summary, created_at, completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	var analysis, suite []byte
	var err error
	if task.Analysis != nil {
		if analysis, err = json.Marshal(task.Analysis); err != nil {
			return fmt.Errorf("marshal analysis: %w", err)
		}
	}
	if task.Suite != nil {
		if suite, err = json.Marshal(task.Suite); err != nil {
			return fmt.Errorf("marshal suite: %w", err)
		}
	}
	var completedAt sql.NullTime
	if task.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *task.CompletedAt, Valid: true}
	}

	_, err = r.DB.ExecContext(ctx, query,
		task.ID, task.DocumentID, task.Kind, task.Provider, task.Status, task.Progress,
		analysis, suite, task.Summary, task.CreatedAt, completedAt,
	)
	return err
}

// GetByID fetches a task snapshot.
func (r *PGRepo) GetByID(ctx context.Context, taskID string) (Task, error) {
	const query = `
SELECT ` + taskColumns + `
FROM requirement_tasks
WHERE id = $1
LIMIT 1`

	var task Task
	var rawAnalysis, rawSuite []byte
	var completedAt sql.NullTime
	err := r.DB.QueryRowContext(ctx, query, taskID).Scan(
		&task.ID,
		&task.DocumentID,
		&task.Kind,
		&task.Provider,
		&task.Status,
		&task.Progress,
		&rawAnalysis,
		&rawSuite,
		&task.Summary,
		&task.CreatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	if len(rawAnalysis) > 0 {
		task.Analysis = &RequirementAnalysis{}
		if err := json.Unmarshal(rawAnalysis, task.Analysis); err != nil {
			return Task{}, fmt.Errorf("unmarshal analysis: %w", err)
		}
	}
	if len(rawSuite) > 0 {
		task.Suite = &TestCaseSuite{}
		if err := json.Unmarshal(rawSuite, task.Suite); err != nil {
			return Task{}, fmt.Errorf("unmarshal suite: %w", err)
		}
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return task, nil
}

// MarkProcessing moves a non-terminal task to processing at progress 50.
func (r *PGRepo) MarkProcessing(ctx context.Context, taskID string) error {
	const query = `
UPDATE requirement_tasks
SET status = $1, progress = GREATEST(progress, 50)
WHERE id = $2 AND status NOT IN ($3, $4)`
	res, err := r.DB.ExecContext(ctx, query, StatusProcessing, taskID, StatusCompleted, StatusFailed)
	if err != nil {
		return err
	}
	return r.requireUpdated(ctx, res, taskID)
}

// CompleteAnalysis finalizes a requirements task.
func (r *PGRepo) CompleteAnalysis(ctx context.Context, taskID string, analysis RequirementAnalysis, summary string) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	const query = `
UPDATE requirement_tasks
SET status = $1, progress = 100, analysis = $2, summary = $3, completed_at = $4
WHERE id = $5 AND status NOT IN ($6, $7)`
	res, err := r.DB.ExecContext(ctx, query, StatusCompleted, payload, summary,
		time.Now().UTC(), taskID, StatusCompleted, StatusFailed)
	if err != nil {
		return err
	}
	return r.requireUpdated(ctx, res, taskID)
}

// CompleteSuite finalizes a testcases task.
func (r *PGRepo) CompleteSuite(ctx context.Context, taskID string, suite TestCaseSuite, summary string) error {
	payload, err := json.Marshal(suite)
	if err != nil {
		return fmt.Errorf("marshal suite: %w", err)
	}
	const query = `
UPDATE requirement_tasks
SET status = $1, progress = 100, suite = $2, summary = $3, completed_at = $4
WHERE id = $5 AND status NOT IN ($6, $7)`
	res, err := r.DB.ExecContext(ctx, query, StatusCompleted, payload, summary,
		time.Now().UTC(), taskID, StatusCompleted, StatusFailed)
	if err != nil {
		return err
	}
	return r.requireUpdated(ctx, res, taskID)
}

// Fail finalizes a failed task.
func (r *PGRepo) Fail(ctx context.Context, taskID string, summary string) error {
	const query = `
UPDATE requirement_tasks
SET status = $1, summary = $2, completed_at = $3
WHERE id = $4 AND status NOT IN ($5, $6)`
	res, err := r.DB.ExecContext(ctx, query, StatusFailed, summary,
		time.Now().UTC(), taskID, StatusCompleted, StatusFailed)
	if err != nil {
		return err
	}
	return r.requireUpdated(ctx, res, taskID)
}

func (r *PGRepo) requireUpdated(ctx context.Context, res sql.Result, taskID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	var exists bool
	if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM requirement_tasks WHERE id = $1)`, taskID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrTerminal
}

var _ Repo = (*PGRepo)(nil)
