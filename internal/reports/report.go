package reports

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/li18635787490/ai-test-service/internal/checks"
)

// ErrInvalidState indicates the task has not finished yet.
var ErrInvalidState = errors.New("task has not reached a terminal state")

// IssueTotals counts issues by severity across all dimension results.
type IssueTotals struct {
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
}

// Section is one dimension's slice of the report.
type Section struct {
	Dimension string         `json:"dimension"`
	Score     int            `json:"score"`
	Summary   string         `json:"summary,omitempty"`
	Issues    []checks.Issue `json:"issues"`
}

// Report is the assembled view of a finished check task.
type Report struct {
	TaskID       string      `json:"task_id"`
	DocumentID   string      `json:"document_id"`
	Status       string      `json:"status"`
	AIProvider   string      `json:"ai_provider"`
	Dimensions   []string    `json:"dimensions"`
	OverallScore *int        `json:"overall_score,omitempty"`
	Summary      string      `json:"summary,omitempty"`
	IssueTotals  IssueTotals `json:"issue_totals"`
	Sections     []Section   `json:"sections"`
	CreatedAt    time.Time   `json:"created_at"`
	CompletedAt  *time.Time  `json:"completed_at,omitempty"`
	GeneratedAt  time.Time   `json:"generated_at"`
}

// Assemble builds a report from a terminal task snapshot. Failed tasks
// render with whatever results were merged before the failure and no
// overall score.
func Assemble(task checks.Task) (Report, error) {
	if !task.Terminal() {
		return Report{}, fmt.Errorf("%w: task is %s", ErrInvalidState, task.Status)
	}

	report := Report{
		TaskID:       task.ID,
		DocumentID:   task.DocumentID,
		Status:       task.Status,
		AIProvider:   task.Provider,
		Dimensions:   append([]string(nil), task.Dimensions...),
		OverallScore: task.OverallScore,
		Summary:      task.Summary,
		CreatedAt:    task.CreatedAt,
		CompletedAt:  task.CompletedAt,
		GeneratedAt:  time.Now().UTC(),
	}

	dims := make([]string, 0, len(task.Results))
	for dim := range task.Results {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	for _, dim := range dims {
		res := task.Results[dim]
		report.Sections = append(report.Sections, Section{
			Dimension: dim,
			Score:     res.Score,
			Summary:   res.Summary,
			Issues:    append([]checks.Issue(nil), res.Issues...),
		})
		for _, issue := range res.Issues {
			switch issue.Severity {
			case checks.SeverityError:
				report.IssueTotals.Errors++
			case checks.SeverityWarning:
				report.IssueTotals.Warnings++
			default:
				report.IssueTotals.Info++
			}
		}
	}
	return report, nil
}
