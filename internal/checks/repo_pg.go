package checks

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres. Dimension lists and merged results
// live in JSONB columns; lifecycle guards are expressed in the WHERE clauses
// so terminal rows are never rewritten.
type PGRepo struct {
	DB *sql.DB
}

const taskColumns = `id, document_id, dimensions, provider, custom_rules, status, progress, results, overall_score, summary, created_at, completed_at`

// Create inserts a new task row.
func (r *PGRepo) Create(ctx context.Context, task Task) error {
	const query = `
INSERT INTO check_tasks (
    id, document_id, dimensions, provider, custom_rules,
    status, progress, results, overall_score, summary, created_at, completed_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	dims, err := json.Marshal(task.Dimensions)
	if err != nil {
		return fmt.Errorf("marshal dimensions: %w", err)
	}
	results, err := marshalResults(task.Results)
	if err != nil {
		return err
	}
	var overall sql.NullInt32
	if task.OverallScore != nil {
		overall = sql.NullInt32{Int32: int32(*task.OverallScore), Valid: true}
	}
	var completedAt sql.NullTime
	if task.CompletedAt != nil {
		completedAt = sql.NullTime{Time: *task.CompletedAt, Valid: true}
	}

	_, err = r.DB.ExecContext(ctx, query,
		task.ID, task.DocumentID, dims, task.Provider, task.CustomRules,
		task.Status, task.Progress, results, overall, task.Summary,
		task.CreatedAt, completedAt,
	)
	return err
}

// GetByID fetches a task snapshot.
func (r *PGRepo) GetByID(ctx context.Context, taskID string) (Task, error) {
	const query = `
SELECT ` + taskColumns + `
FROM check_tasks
WHERE id = $1
LIMIT 1`
	task, err := scanTask(r.DB.QueryRowContext(ctx, query, taskID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

// MarkProcessing moves a non-terminal task to processing.
func (r *PGRepo) MarkProcessing(ctx context.Context, taskID string) error {
	const query = `
UPDATE check_tasks
SET status = $1
WHERE id = $2 AND status NOT IN ($3, $4)`
	res, err := r.DB.ExecContext(ctx, query, StatusProcessing, taskID, StatusCompleted, StatusFailed)
	if err != nil {
		return err
	}
	return requireUpdated(ctx, r.DB, res, taskID)
}

// AddResult merges one dimension result under a row lock so progress and the
// result set stay consistent for readers.
func (r *PGRepo) AddResult(ctx context.Context, taskID string, result DimensionResult) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const selectQuery = `
SELECT dimensions, results, progress, status
FROM check_tasks
WHERE id = $1
FOR UPDATE`
	var rawDims, rawResults []byte
	var progress int
	var status string
	if err := tx.QueryRowContext(ctx, selectQuery, taskID).Scan(&rawDims, &rawResults, &progress, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if status == StatusCompleted || status == StatusFailed {
		return ErrTerminal
	}

	var dims []string
	if err := json.Unmarshal(rawDims, &dims); err != nil {
		return fmt.Errorf("unmarshal dimensions: %w", err)
	}
	results := map[string]DimensionResult{}
	if len(rawResults) > 0 {
		if err := json.Unmarshal(rawResults, &results); err != nil {
			return fmt.Errorf("unmarshal results: %w", err)
		}
	}
	results[result.Dimension] = result
	if p := progressFor(len(results), len(dims)); p > progress {
		progress = p
	}

	merged, err := marshalResults(results)
	if err != nil {
		return err
	}
	const updateQuery = `
UPDATE check_tasks
SET results = $1, progress = $2
WHERE id = $3`
	if _, err := tx.ExecContext(ctx, updateQuery, merged, progress, taskID); err != nil {
		return err
	}
	return tx.Commit()
}

// Complete finalizes a successful task.
func (r *PGRepo) Complete(ctx context.Context, taskID string, overallScore int, summary string) error {
	const query = `
UPDATE check_tasks
SET status = $1, progress = 100, overall_score = $2, summary = $3, completed_at = $4
WHERE id = $5 AND status NOT IN ($6, $7)`
	res, err := r.DB.ExecContext(ctx, query, StatusCompleted, overallScore, summary,
		time.Now().UTC(), taskID, StatusCompleted, StatusFailed)
	if err != nil {
		return err
	}
	return requireUpdated(ctx, r.DB, res, taskID)
}

// Fail finalizes a failed task.
func (r *PGRepo) Fail(ctx context.Context, taskID string, summary string) error {
	const query = `
UPDATE check_tasks
SET status = $1, summary = $2, completed_at = $3
WHERE id = $4 AND status NOT IN ($5, $6)`
	res, err := r.DB.ExecContext(ctx, query, StatusFailed, summary,
		time.Now().UTC(), taskID, StatusCompleted, StatusFailed)
	if err != nil {
		return err
	}
	return requireUpdated(ctx, r.DB, res, taskID)
}

// requireUpdated distinguishes a missing row from a terminal one after a
// guarded update touched nothing.
func requireUpdated(ctx context.Context, db *sql.DB, res sql.Result, taskID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected > 0 {
		return nil
	}
	var exists bool
	if err := db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM check_tasks WHERE id = $1)`, taskID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrTerminal
}

func marshalResults(results map[string]DimensionResult) ([]byte, error) {
	if results == nil {
		return nil, nil
	}
	data, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}
	return data, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var task Task
	var rawDims, rawResults []byte
	var overall sql.NullInt32
	var completedAt sql.NullTime
	if err := row.Scan(
		&task.ID,
		&task.DocumentID,
		&rawDims,
		&task.Provider,
		&task.CustomRules,
		&task.Status,
		&task.Progress,
		&rawResults,
		&overall,
		&task.Summary,
		&task.CreatedAt,
		&completedAt,
	); err != nil {
		return Task{}, err
	}
	if err := json.Unmarshal(rawDims, &task.Dimensions); err != nil {
		return Task{}, fmt.Errorf("unmarshal dimensions: %w", err)
	}
	if len(rawResults) > 0 {
		if err := json.Unmarshal(rawResults, &task.Results); err != nil {
			return Task{}, fmt.Errorf("unmarshal results: %w", err)
		}
	}
	if overall.Valid {
		score := int(overall.Int32)
		task.OverallScore = &score
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return task, nil
}

var _ Repo = (*PGRepo)(nil)
