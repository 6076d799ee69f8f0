package requirements

import "time"

// Task kinds. A task either analyzes a requirement document or generates a
// test case suite from it; both ride the same lifecycle.
const (
	KindRequirements = "requirements"
	KindTestCases    = "testcases"
)

// Task lifecycle states. The single AI call gives coarse progress:
// 0 pending, 50 in flight, 100 terminal.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// RequirementItem is one itemized requirement from the analysis.
type RequirementItem struct {
	ReqID       string   `json:"req_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Priority    string   `json:"priority"`
	Issues      []string `json:"issues,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
}

// RequirementAnalysis is the payload of a completed requirements task.
type RequirementAnalysis struct {
	Total                  int               `json:"total"`
	Items                  []RequirementItem `json:"items"`
	CompletenessScore      int               `json:"completeness_score"`
	ClarityScore           int               `json:"clarity_score"`
	ConsistencyScore       int               `json:"consistency_score"`
	TestabilityScore       int               `json:"testability_score"`
	OverallScore           int               `json:"overall_score"`
	Summary                string            `json:"summary"`
	ImprovementSuggestions []string          `json:"improvement_suggestions,omitempty"`
}

// TestStep is one numbered step of a test case.
type TestStep struct {
	StepNumber int    `json:"step_number"`
	Action     string `json:"action"`
	Expected   string `json:"expected"`
}

// TestCase is one generated test case.
type TestCase struct {
	CaseID        string     `json:"case_id"`
	RequirementID string     `json:"requirement_id"`
	Title         string     `json:"title"`
	Priority      string     `json:"priority"`
	CaseType      string     `json:"case_type"`
	Precondition  string     `json:"precondition,omitempty"`
	Steps         []TestStep `json:"steps"`
	TestData      string     `json:"test_data,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
}

// TestCaseSuite is the payload of a completed testcases task.
type TestCaseSuite struct {
	DocumentID      string     `json:"document_id"`
	TotalCases      int        `json:"total_cases"`
	Cases           []TestCase `json:"cases"`
	CoverageSummary string     `json:"coverage_summary"`
	GeneratedAt     time.Time  `json:"generated_at"`
}

// Task is a tracked requirement analysis or test case generation job.
type Task struct {
	ID          string
	DocumentID  string
	Kind        string
	Provider    string
	Status      string
	Progress    int
	Analysis    *RequirementAnalysis
	Suite       *TestCaseSuite
	Summary     string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Terminal reports whether the task reached a final state.
func (t Task) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// Clone returns a deep copy safe to hand to readers.
func (t Task) Clone() Task {
	out := t
	if t.Analysis != nil {
		analysis := *t.Analysis
		analysis.Items = append([]RequirementItem(nil), t.Analysis.Items...)
		analysis.ImprovementSuggestions = append([]string(nil), t.Analysis.ImprovementSuggestions...)
		out.Analysis = &analysis
	}
	if t.Suite != nil {
		suite := *t.Suite
		suite.Cases = append([]TestCase(nil), t.Suite.Cases...)
		out.Suite = &suite
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		out.CompletedAt = &at
	}
	return out
}
