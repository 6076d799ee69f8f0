package requirements

import (
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"
)

func completedAnalysisTask() Task {
	now := time.Now().UTC()
	return Task{
		ID:     "task-1",
		Kind:   KindRequirements,
		Status: StatusCompleted,
		Analysis: &RequirementAnalysis{
			Total: 1,
			Items: []RequirementItem{{
				ReqID:       "REQ-001",
				Title:       "Login",
				Description: "Users can log in.",
				Priority:    "high",
				Issues:      []string{"no lockout policy"},
				Suggestions: []string{"define lockout"},
			}},
			CompletenessScore:      80,
			ClarityScore:           70,
			ConsistencyScore:       90,
			TestabilityScore:       75,
			OverallScore:           79,
			Summary:                "Solid draft.",
			ImprovementSuggestions: []string{"add acceptance criteria"},
		},
		CompletedAt: &now,
	}
}

func completedSuiteTask() Task {
	now := time.Now().UTC()
	return Task{
		ID:     "task-2",
		Kind:   KindTestCases,
		Status: StatusCompleted,
		Suite: &TestCaseSuite{
			DocumentID: "doc-1",
			TotalCases: 1,
			Cases: []TestCase{{
				CaseID:        "TC-001",
				RequirementID: "REQ-001",
				Title:         "Login happy path",
				Priority:      "P0",
				CaseType:      "functional",
				Precondition:  "account exists",
				Steps: []TestStep{
					{StepNumber: 1, Action: "open login | page", Expected: "form shown"},
					{StepNumber: 2, Action: "submit credentials", Expected: "dashboard shown"},
				},
				TestData: "user: alice",
				Tags:     []string{"smoke", "auth"},
			}},
			CoverageSummary: "All covered.",
			GeneratedAt:     now,
		},
		CompletedAt: &now,
	}
}

func TestExportAnalysisMarkdown(t *testing.T) {
	content, contentType, fileName, err := Export(completedAnalysisTask(), FormatMarkdown)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.HasPrefix(contentType, "text/markdown") {
		t.Fatalf("content type = %q", contentType)
	}
	if fileName != "requirements-task-1.md" {
		t.Fatalf("file name = %q", fileName)
	}
	text := string(content)
	for _, want := range []string{
		"# Requirement Analysis",
		"| Completeness | 80 |",
		"| **Overall** | **79** |",
		"### REQ-001 Login",
		"- no lockout policy",
		"- add acceptance criteria",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("markdown missing %q:\n%s", want, text)
		}
	}
}

func TestExportSuiteMarkdown(t *testing.T) {
	content, _, fileName, err := Export(completedSuiteTask(), FormatMarkdown)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if fileName != "testcases-task-2.md" {
		t.Fatalf("file name = %q", fileName)
	}
	text := string(content)
	for _, want := range []string{
		"## TC-001 Login happy path",
		"Priority: P0 | Type: functional | Requirement: REQ-001",
		"| 2 | submit credentials | dashboard shown |",
		"Tags: smoke, auth",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("markdown missing %q:\n%s", want, text)
		}
	}
	// Pipes in step text must not break the table.
	if !strings.Contains(text, `open login \| page`) {
		t.Fatalf("pipe not escaped:\n%s", text)
	}
}

func TestExportSuiteCSV(t *testing.T) {
	content, contentType, fileName, err := Export(completedSuiteTask(), FormatCSV)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.HasPrefix(contentType, "text/csv") {
		t.Fatalf("content type = %q", contentType)
	}
	if fileName != "testcases-task-2.csv" {
		t.Fatalf("file name = %q", fileName)
	}

	records, err := csv.NewReader(strings.NewReader(string(content))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(records))
	}
	if records[0][0] != "case_id" {
		t.Fatalf("header = %v", records[0])
	}
	row := records[1]
	if row[0] != "TC-001" || row[3] != "P0" {
		t.Fatalf("row = %v", row)
	}
	if !strings.Contains(row[6], "2. submit credentials") {
		t.Fatalf("steps cell = %q", row[6])
	}
	if row[9] != "smoke,auth" {
		t.Fatalf("tags cell = %q", row[9])
	}
}

func TestExportRejectsCSVForRequirements(t *testing.T) {
	_, _, _, err := Export(completedAnalysisTask(), FormatCSV)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	_, _, _, err := Export(completedSuiteTask(), "xlsx")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestExportRejectsNonCompletedTask(t *testing.T) {
	task := completedSuiteTask()
	task.Status = StatusProcessing
	_, _, _, err := Export(task, FormatMarkdown)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}

	failed := completedAnalysisTask()
	failed.Status = StatusFailed
	failed.Analysis = nil
	_, _, _, err = Export(failed, FormatMarkdown)
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}
