package requirements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/li18635787490/ai-test-service/internal/documents"
	"github.com/li18635787490/ai-test-service/internal/extract"
	"github.com/li18635787490/ai-test-service/internal/llm"
	"github.com/li18635787490/ai-test-service/internal/shared/metrics"
	"github.com/li18635787490/ai-test-service/internal/shared/telemetry"
)

// Service orchestrates requirement analysis and test case generation tasks.
type Service struct {
	Repo      Repo
	Docs      documents.Repo
	Resolver  *extract.Resolver
	Providers *llm.Registry
}

// Analyze starts a requirement analysis task for a document.
func (s *Service) Analyze(ctx context.Context, documentID, provider string) (Task, error) {
	return s.start(ctx, documentID, provider, KindRequirements)
}

// GenerateTestCases starts a test case generation task for a document.
func (s *Service) GenerateTestCases(ctx context.Context, documentID, provider string) (Task, error) {
	return s.start(ctx, documentID, provider, KindTestCases)
}

// Get returns a task snapshot by id.
func (s *Service) Get(ctx context.Context, taskID string) (Task, error) {
	if strings.TrimSpace(taskID) == "" {
		return Task{}, fmt.Errorf("%w: task id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, taskID)
}

func (s *Service) start(ctx context.Context, documentID, provider, kind string) (Task, error) {
	if strings.TrimSpace(documentID) == "" {
		return Task{}, fmt.Errorf("%w: document id is required", ErrInvalidInput)
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

	text, err := s.Resolver.Resolve(ctx, doc)
	if err != nil {
		return Task{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	resolvedProvider := provider
	if strings.TrimSpace(resolvedProvider) == "" {
		resolvedProvider = s.Providers.DefaultID()
	}

	task := Task{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Kind:       kind,
		Provider:   resolvedProvider,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.Repo.Create(ctx, task); err != nil {
		return Task{}, err
	}
	metrics.IncAnalysisStarted()

	go s.run(context.Background(), task, client, doc.FileName, text)

	return task, nil
}

func (s *Service) run(ctx context.Context, task Task, client llm.Client, fileName, text string) {
	startedAt := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			s.failTask(task, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := s.Repo.MarkProcessing(ctx, task.ID); err != nil {
		s.failTask(task, fmt.Errorf("set processing failed: %w", err))
		return
	}
	telemetry.Info("analysis.status", map[string]any{
		"task_id":           task.ID,
		"document_id":       task.DocumentID,
		"kind":              task.Kind,
		"status":            StatusProcessing,
		"status_transition": "pending->processing",
	})

	var system string
	if task.Kind == KindTestCases {
		system = llm.TestCaseSystemPrompt()
	} else {
		system = llm.RequirementAnalysisSystemPrompt()
	}

	reply, err := client.Complete(ctx, llm.Request{
		System:    system,
		User:      llm.AnalysisUserPrompt(fileName, text),
		ForceJSON: true,
	})
	if err != nil {
		s.failTask(task, err)
		return
	}

	raw, err := llm.ExtractJSON(reply)
	if err != nil {
		s.failTask(task, fmt.Errorf("unparseable AI response: %w", err))
		return
	}

	var summary string
	if task.Kind == KindTestCases {
		suite, err := parseSuite(raw, task.DocumentID)
		if err != nil {
			s.failTask(task, fmt.Errorf("unparseable AI response: %w", err))
			return
		}
		summary = fmt.Sprintf("Generated %d test cases.", suite.TotalCases)
		if err := s.Repo.CompleteSuite(ctx, task.ID, suite, summary); err != nil {
			s.failTask(task, fmt.Errorf("set completed failed: %w", err))
			return
		}
	} else {
		analysis, err := parseAnalysis(raw)
		if err != nil {
			s.failTask(task, fmt.Errorf("unparseable AI response: %w", err))
			return
		}
		summary = fmt.Sprintf("Analyzed %d requirements. Overall score %d/100.", analysis.Total, analysis.OverallScore)
		if err := s.Repo.CompleteAnalysis(ctx, task.ID, analysis, summary); err != nil {
			s.failTask(task, fmt.Errorf("set completed failed: %w", err))
			return
		}
	}

	metrics.IncAnalysisCompleted()
	telemetry.Info("analysis.status", map[string]any{
		"task_id":           task.ID,
		"document_id":       task.DocumentID,
		"kind":              task.Kind,
		"status":            StatusCompleted,
		"status_transition": "processing->completed",
		"duration_ms":       time.Since(startedAt).Milliseconds(),
	})
}

func (s *Service) failTask(task Task, cause error) {
	summary := "Analysis failed: " + sanitizeError(cause)
	if err := s.Repo.Fail(context.Background(), task.ID, summary); err != nil {
		telemetry.Error("analysis.fail_update", map[string]any{
			"task_id": task.ID,
			"error":   err.Error(),
			"cause":   cause.Error(),
		})
	}
	metrics.IncAnalysisFailed()
	telemetry.Info("analysis.status", map[string]any{
		"task_id":           task.ID,
		"document_id":       task.DocumentID,
		"kind":              task.Kind,
		"status":            StatusFailed,
		"status_transition": "processing->failed",
		"error":             sanitizeError(cause),
	})
}

// parseAnalysis normalizes the provider reply: scores clamped to [0,100],
// the overall score recomputed as the rounded mean of the four axes.
func parseAnalysis(raw json.RawMessage) (RequirementAnalysis, error) {
	var parsed struct {
		Requirements           []RequirementItem `json:"requirements"`
		CompletenessScore      int               `json:"completeness_score"`
		ClarityScore           int               `json:"clarity_score"`
		ConsistencyScore       int               `json:"consistency_score"`
		TestabilityScore       int               `json:"testability_score"`
		Summary                string            `json:"summary"`
		ImprovementSuggestions []string          `json:"improvement_suggestions"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return RequirementAnalysis{}, err
	}

	analysis := RequirementAnalysis{
		Total:                  len(parsed.Requirements),
		Items:                  parsed.Requirements,
		CompletenessScore:      clamp(parsed.CompletenessScore),
		ClarityScore:           clamp(parsed.ClarityScore),
		ConsistencyScore:       clamp(parsed.ConsistencyScore),
		TestabilityScore:       clamp(parsed.TestabilityScore),
		Summary:                parsed.Summary,
		ImprovementSuggestions: parsed.ImprovementSuggestions,
	}
	sum := analysis.CompletenessScore + analysis.ClarityScore + analysis.ConsistencyScore + analysis.TestabilityScore
	analysis.OverallScore = (sum + 2) / 4
	return analysis, nil
}

func parseSuite(raw json.RawMessage, documentID string) (TestCaseSuite, error) {
	var parsed struct {
		TestCases       []TestCase `json:"test_cases"`
		CoverageSummary string     `json:"coverage_summary"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return TestCaseSuite{}, err
	}
	return TestCaseSuite{
		DocumentID:      documentID,
		TotalCases:      len(parsed.TestCases),
		Cases:           parsed.TestCases,
		CoverageSummary: parsed.CoverageSummary,
		GeneratedAt:     time.Now().UTC(),
	}, nil
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
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
