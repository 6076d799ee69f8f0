package checks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/li18635787490/ai-test-service/internal/documents"
	"github.com/li18635787490/ai-test-service/internal/extract"
	"github.com/li18635787490/ai-test-service/internal/llm"
	"github.com/li18635787490/ai-test-service/internal/shared/metrics"
	"github.com/li18635787490/ai-test-service/internal/shared/telemetry"
)

const defaultConcurrency = 3

// Service orchestrates document check tasks.
type Service struct {
	Repo      Repo
	Docs      documents.Repo
	Resolver  *extract.Resolver
	Providers *llm.Registry
	Checker   Checker
	// Concurrency bounds the dimension fan-out per task.
	Concurrency int

	// pollInterval drives Wait; tests shorten it.
	pollInterval time.Duration
}

// Create validates the request, resolves the document text and starts the
// background run. The returned task is always in pending; callers poll for
// progress.
func (s *Service) Create(ctx context.Context, documentID string, dimensions []string, provider, customRules string) (Task, error) {
	if strings.TrimSpace(documentID) == "" {
		return Task{}, fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	dims, err := normalizeDimensions(dimensions)
	if err != nil {
		return Task{}, err
	}

	client, err := s.Providers.Get(provider)
	if err != nil {
		return Task{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	doc, err := s.Docs.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return Task{}, fmt.Errorf("%w: document %s", ErrNotFound, documentID)
		}
		return Task{}, err
	}

	// Text resolution happens before the task exists so extraction problems
	// surface synchronously instead of as a failed task.
	text, err := s.Resolver.Resolve(ctx, doc)
	if err != nil {
		return Task{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	task := Task{
		ID:          uuid.NewString(),
		DocumentID:  documentID,
		Dimensions:  dims,
		Provider:    resolvedProvider(provider, s.Providers),
		CustomRules: customRules,
		Status:      StatusPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, task); err != nil {
		return Task{}, err
	}
	metrics.IncCheckStarted()

	go s.run(backgroundWithRequestID(ctx), task, client, doc.FileName, text)

	return task, nil
}

// Get returns a task snapshot by id.
func (s *Service) Get(ctx context.Context, taskID string) (Task, error) {
	if strings.TrimSpace(taskID) == "" {
		return Task{}, fmt.Errorf("%w: task id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, taskID)
}

// Wait polls the task until it reaches a terminal state or the timeout
// elapses, then returns the latest snapshot either way.
func (s *Service) Wait(ctx context.Context, taskID string, timeout time.Duration) (Task, error) {
	interval := s.pollInterval
	if interval <= 0 {
		interval = time.Second
	}
	deadline := time.Now().Add(timeout)

	for {
		task, err := s.Get(ctx, taskID)
		if err != nil {
			return Task{}, err
		}
		if task.Terminal() || !time.Now().Before(deadline) {
			return task, nil
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return task, nil
		}
	}
}

func (s *Service) run(ctx context.Context, task Task, client llm.Client, fileName, text string) {
	startedAt := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			s.failTask(ctx, task, fmt.Errorf("panic: %v", r), startedAt)
		}
	}()

	if err := s.Repo.MarkProcessing(ctx, task.ID); err != nil {
		s.failTask(ctx, task, fmt.Errorf("set processing failed: %w", err), startedAt)
		return
	}
	telemetry.Info("check.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"task_id":           task.ID,
		"document_id":       task.DocumentID,
		"status":            StatusProcessing,
		"status_transition": "pending->processing",
	})

	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	g, groupCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, dimension := range task.Dimensions {
		dimension := dimension
		g.Go(func() error {
			result, err := s.Checker.Check(groupCtx, client, dimension, fileName, text, task.CustomRules)
			if err != nil {
				return &ProviderError{Dimension: dimension, Provider: task.Provider, Err: err}
			}
			if err := s.Repo.AddResult(groupCtx, task.ID, result); err != nil {
				return fmt.Errorf("merge result for %s: %w", dimension, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.failTask(ctx, task, err, startedAt)
		return
	}

	final, err := s.Repo.GetByID(ctx, task.ID)
	if err != nil {
		s.failTask(ctx, task, fmt.Errorf("task lookup: %w", err), startedAt)
		return
	}

	overall := overallScore(final.Results)
	summary := completedSummary(final.Results)
	if err := s.Repo.Complete(ctx, task.ID, overall, summary); err != nil {
		s.failTask(ctx, task, fmt.Errorf("set completed failed: %w", err), startedAt)
		return
	}

	completedAt := time.Now().UTC()
	metrics.IncCheckCompleted()
	metrics.ObserveCheckDurationMs(float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0)
	telemetry.Info("check.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"task_id":           task.ID,
		"document_id":       task.DocumentID,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"overall_score":     overall,
		"duration_ms":       completedAt.Sub(startedAt).Milliseconds(),
	})
}

func (s *Service) failTask(ctx context.Context, task Task, cause error, startedAt time.Time) {
	summary := "Check failed: " + sanitizeError(cause)
	if err := s.Repo.Fail(context.Background(), task.ID, summary); err != nil {
		telemetry.Error("check.fail_update", map[string]any{
			"task_id": task.ID,
			"error":   err.Error(),
			"cause":   cause.Error(),
		})
	}
	completedAt := time.Now().UTC()
	metrics.IncCheckFailed()
	metrics.ObserveCheckDurationMs(float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0)
	telemetry.Info("check.status", map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"task_id":           task.ID,
		"document_id":       task.DocumentID,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"error":             sanitizeError(cause),
	})
}

// overallScore is the rounded mean of the per-dimension scores.
func overallScore(results map[string]DimensionResult) int {
	if len(results) == 0 {
		return 0
	}
	sum := 0
	for _, res := range results {
		sum += res.Score
	}
	return roundDiv(sum, len(results))
}

// completedSummary is deterministic: same results, same words.
func completedSummary(results map[string]DimensionResult) string {
	errorCount, warningCount, infoCount := 0, 0, 0
	for _, res := range results {
		for _, issue := range res.Issues {
			switch issue.Severity {
			case SeverityError:
				errorCount++
			case SeverityWarning:
				warningCount++
			default:
				infoCount++
			}
		}
	}
	return fmt.Sprintf("Checked %d dimensions: %d errors, %d warnings, %d info. Overall score %d/100.",
		len(results), errorCount, warningCount, infoCount, overallScore(results))
}

// roundDiv is round-half-up integer division for non-negative inputs.
func roundDiv(sum, n int) int {
	return (sum + n/2) / n
}

func resolvedProvider(provider string, registry *llm.Registry) string {
	if strings.TrimSpace(provider) != "" {
		return provider
	}
	return registry.DefaultID()
}

func normalizeDimensions(dimensions []string) ([]string, error) {
	if len(dimensions) == 0 {
		return nil, fmt.Errorf("%w: at least one dimension is required", ErrInvalidInput)
	}
	seen := make(map[string]bool, len(dimensions))
	out := make([]string, 0, len(dimensions))
	for _, dim := range dimensions {
		dim = strings.ToLower(strings.TrimSpace(dim))
		if !ValidDimension(dim) {
			return nil, fmt.Errorf("%w: unknown dimension %q", ErrInvalidInput, dim)
		}
		if !seen[dim] {
			seen[dim] = true
			out = append(out, dim)
		}
	}
	sort.Strings(out)
	return out, nil
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
