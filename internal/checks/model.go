package checks

import "time"

// Task lifecycle states. Terminal states are never left.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Check dimensions. The set is closed; requests naming anything else are
// rejected up front.
const (
	DimensionFormat     = "format"
	DimensionContent    = "content"
	DimensionLogic      = "logic"
	DimensionSensitive  = "sensitive"
	DimensionCompliance = "compliance"
)

// Issue severities.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

var knownDimensions = map[string]bool{
	DimensionFormat:     true,
	DimensionContent:    true,
	DimensionLogic:      true,
	DimensionSensitive:  true,
	DimensionCompliance: true,
}

// ValidDimension reports whether the id names a known check dimension.
func ValidDimension(dimension string) bool {
	return knownDimensions[dimension]
}

// Issue is a single finding inside a dimension result.
type Issue struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Position    string `json:"position,omitempty"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion,omitempty"`
}

// DimensionResult is the outcome of checking one dimension.
type DimensionResult struct {
	Dimension string  `json:"dimension"`
	Score     int     `json:"score"`
	Summary   string  `json:"summary,omitempty"`
	Issues    []Issue `json:"issues"`
}

// Task is a tracked document check job.
type Task struct {
	ID           string
	DocumentID   string
	Dimensions   []string
	Provider     string
	CustomRules  string
	Status       string
	Progress     int
	Results      map[string]DimensionResult
	OverallScore *int
	Summary      string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// Terminal reports whether the task reached a final state.
func (t Task) Terminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

// Clone returns a deep copy safe to hand to readers while the task is
// still being written to.
func (t Task) Clone() Task {
	out := t
	out.Dimensions = append([]string(nil), t.Dimensions...)
	if t.Results != nil {
		out.Results = make(map[string]DimensionResult, len(t.Results))
		for dim, res := range t.Results {
			copied := res
			copied.Issues = append([]Issue(nil), res.Issues...)
			out.Results[dim] = copied
		}
	}
	if t.OverallScore != nil {
		score := *t.OverallScore
		out.OverallScore = &score
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		out.CompletedAt = &at
	}
	return out
}
