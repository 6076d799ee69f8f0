package requirements

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// Export formats.
const (
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// Export renders a completed task's payload in the requested format and
// returns the content, its MIME type, and a suggested file name. CSV is
// only meaningful for test case suites.
func Export(task Task, format string) ([]byte, string, string, error) {
	switch format {
	case FormatMarkdown:
	case FormatCSV:
		if task.Kind != KindTestCases {
			return nil, "", "", fmt.Errorf("%w: csv export is only available for test cases", ErrInvalidInput)
		}
	default:
		return nil, "", "", fmt.Errorf("%w: unsupported export format %q", ErrInvalidInput, format)
	}
	if task.Status != StatusCompleted {
		return nil, "", "", fmt.Errorf("%w: task is %s", ErrInvalidState, task.Status)
	}

	switch task.Kind {
	case KindRequirements:
		if task.Analysis == nil {
			return nil, "", "", ErrInvalidState
		}
		name := fmt.Sprintf("requirements-%s.md", task.ID)
		return analysisMarkdown(*task.Analysis), "text/markdown; charset=utf-8", name, nil
	case KindTestCases:
		if task.Suite == nil {
			return nil, "", "", ErrInvalidState
		}
		if format == FormatCSV {
			content, err := suiteCSV(*task.Suite)
			if err != nil {
				return nil, "", "", err
			}
			name := fmt.Sprintf("testcases-%s.csv", task.ID)
			return content, "text/csv; charset=utf-8", name, nil
		}
		name := fmt.Sprintf("testcases-%s.md", task.ID)
		return suiteMarkdown(*task.Suite), "text/markdown; charset=utf-8", name, nil
	default:
		return nil, "", "", fmt.Errorf("%w: unknown task kind %q", ErrInvalidState, task.Kind)
	}
}

func analysisMarkdown(analysis RequirementAnalysis) []byte {
	var b strings.Builder
	b.WriteString("# Requirement Analysis\n\n")
	fmt.Fprintf(&b, "%s\n\n", analysis.Summary)
	b.WriteString("## Scores\n\n")
	b.WriteString("| Axis | Score |\n|---|---|\n")
	fmt.Fprintf(&b, "| Completeness | %d |\n", analysis.CompletenessScore)
	fmt.Fprintf(&b, "| Clarity | %d |\n", analysis.ClarityScore)
	fmt.Fprintf(&b, "| Consistency | %d |\n", analysis.ConsistencyScore)
	fmt.Fprintf(&b, "| Testability | %d |\n", analysis.TestabilityScore)
	fmt.Fprintf(&b, "| **Overall** | **%d** |\n\n", analysis.OverallScore)

	fmt.Fprintf(&b, "## Requirements (%d)\n\n", analysis.Total)
	for _, item := range analysis.Items {
		fmt.Fprintf(&b, "### %s %s\n\n", item.ReqID, item.Title)
		if item.Priority != "" {
			fmt.Fprintf(&b, "Priority: %s\n\n", item.Priority)
		}
		if item.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", item.Description)
		}
		if len(item.Issues) > 0 {
			b.WriteString("Issues:\n\n")
			for _, issue := range item.Issues {
				fmt.Fprintf(&b, "- %s\n", issue)
			}
			b.WriteString("\n")
		}
		if len(item.Suggestions) > 0 {
			b.WriteString("Suggestions:\n\n")
			for _, suggestion := range item.Suggestions {
				fmt.Fprintf(&b, "- %s\n", suggestion)
			}
			b.WriteString("\n")
		}
	}

	if len(analysis.ImprovementSuggestions) > 0 {
		b.WriteString("## Improvement Suggestions\n\n")
		for _, suggestion := range analysis.ImprovementSuggestions {
			fmt.Fprintf(&b, "- %s\n", suggestion)
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func suiteMarkdown(suite TestCaseSuite) []byte {
	var b strings.Builder
	b.WriteString("# Test Cases\n\n")
	fmt.Fprintf(&b, "Document: %s\n\n", suite.DocumentID)
	fmt.Fprintf(&b, "Total cases: %d\n\n", suite.TotalCases)
	if suite.CoverageSummary != "" {
		fmt.Fprintf(&b, "%s\n\n", suite.CoverageSummary)
	}
	for _, tc := range suite.Cases {
		fmt.Fprintf(&b, "## %s %s\n\n", tc.CaseID, tc.Title)
		fmt.Fprintf(&b, "Priority: %s", tc.Priority)
		if tc.CaseType != "" {
			fmt.Fprintf(&b, " | Type: %s", tc.CaseType)
		}
		if tc.RequirementID != "" {
			fmt.Fprintf(&b, " | Requirement: %s", tc.RequirementID)
		}
		b.WriteString("\n\n")
		if tc.Precondition != "" {
			fmt.Fprintf(&b, "Precondition: %s\n\n", tc.Precondition)
		}
		if len(tc.Steps) > 0 {
			b.WriteString("| # | Action | Expected |\n|---|---|---|\n")
			for _, step := range tc.Steps {
				fmt.Fprintf(&b, "| %d | %s | %s |\n", step.StepNumber, mdCell(step.Action), mdCell(step.Expected))
			}
			b.WriteString("\n")
		}
		if tc.TestData != "" {
			fmt.Fprintf(&b, "Test data: %s\n\n", tc.TestData)
		}
		if len(tc.Tags) > 0 {
			fmt.Fprintf(&b, "Tags: %s\n\n", strings.Join(tc.Tags, ", "))
		}
	}
	return []byte(b.String())
}

func suiteCSV(suite TestCaseSuite) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"case_id", "requirement_id", "title", "priority", "case_type", "precondition", "steps", "expected", "test_data", "tags"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, tc := range suite.Cases {
		var actions, expectations []string
		for _, step := range tc.Steps {
			actions = append(actions, fmt.Sprintf("%d. %s", step.StepNumber, step.Action))
			expectations = append(expectations, fmt.Sprintf("%d. %s", step.StepNumber, step.Expected))
		}
		record := []string{
			tc.CaseID,
			tc.RequirementID,
			tc.Title,
			tc.Priority,
			tc.CaseType,
			tc.Precondition,
			strings.Join(actions, "\n"),
			strings.Join(expectations, "\n"),
			tc.TestData,
			strings.Join(tc.Tags, ","),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// mdCell keeps multi-line step text from breaking the markdown table.
func mdCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
