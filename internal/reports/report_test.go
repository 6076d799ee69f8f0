package reports

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/li18635787490/ai-test-service/internal/checks"
)

func terminalTask() checks.Task {
	score := 75
	now := time.Now().UTC()
	return checks.Task{
		ID:           "task-1",
		DocumentID:   "doc-1",
		Dimensions:   []string{"content", "format"},
		Provider:     "openai",
		Status:       checks.StatusCompleted,
		Progress:     100,
		OverallScore: &score,
		Summary:      "Checked 2 dimensions: 1 errors, 1 warnings, 1 info. Overall score 75/100.",
		Results: map[string]checks.DimensionResult{
			"format": {
				Dimension: "format",
				Score:     80,
				Issues: []checks.Issue{
					{Type: "heading", Severity: checks.SeverityWarning, Description: "inconsistent heading levels"},
					{Type: "style", Severity: checks.SeverityInfo, Description: "long paragraphs"},
				},
			},
			"content": {
				Dimension: "content",
				Score:     70,
				Issues: []checks.Issue{
					{Type: "missing", Severity: checks.SeverityError, Description: "no acceptance criteria"},
				},
			},
		},
		CreatedAt:   now.Add(-time.Minute),
		CompletedAt: &now,
	}
}

func TestAssemble(t *testing.T) {
	report, err := Assemble(terminalTask())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if report.TaskID != "task-1" || report.Status != checks.StatusCompleted {
		t.Fatalf("report = %+v", report)
	}
	if report.OverallScore == nil || *report.OverallScore != 75 {
		t.Fatalf("overall = %v", report.OverallScore)
	}
	if report.IssueTotals != (IssueTotals{Errors: 1, Warnings: 1, Info: 1}) {
		t.Fatalf("totals = %+v", report.IssueTotals)
	}
	// Sections are sorted by dimension.
	if len(report.Sections) != 2 || report.Sections[0].Dimension != "content" || report.Sections[1].Dimension != "format" {
		t.Fatalf("sections = %+v", report.Sections)
	}
	if report.GeneratedAt.IsZero() {
		t.Fatal("GeneratedAt not set")
	}
}

func TestAssembleFailedTaskIsPartial(t *testing.T) {
	task := terminalTask()
	task.Status = checks.StatusFailed
	task.OverallScore = nil
	task.Summary = "Check failed: provider unavailable"
	delete(task.Results, "content")

	report, err := Assemble(task)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if report.OverallScore != nil {
		t.Fatalf("overall = %v, want nil", report.OverallScore)
	}
	if len(report.Sections) != 1 || report.Sections[0].Dimension != "format" {
		t.Fatalf("sections = %+v", report.Sections)
	}
}

func TestAssembleRejectsRunningTask(t *testing.T) {
	for _, status := range []string{checks.StatusPending, checks.StatusProcessing} {
		task := terminalTask()
		task.Status = status
		if _, err := Assemble(task); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("status %s: err = %v, want ErrInvalidState", status, err)
		}
	}
}

func TestMarkdownRender(t *testing.T) {
	report, err := Assemble(terminalTask())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	text := string(Markdown(report))
	for _, want := range []string{
		"# Document Check Report",
		"## Overall Score: 75/100",
		"Issues: 1 errors, 1 warnings, 1 info",
		"## Content (70/100)",
		"## Format (80/100)",
		"| error |  | no acceptance criteria |  |",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("markdown missing %q:\n%s", want, text)
		}
	}
}

func TestHTMLRender(t *testing.T) {
	report, err := Assemble(terminalTask())
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	page, err := HTML(report)
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	html := string(page)
	for _, want := range []string{
		"<title>Check Report task-1</title>",
		"75/100",
		"no acceptance criteria",
		`class="severity-error"`,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("html missing %q", want)
		}
	}
}

func TestHTMLEscapesContent(t *testing.T) {
	task := terminalTask()
	res := task.Results["format"]
	res.Issues = append(res.Issues, checks.Issue{
		Type:        "xss",
		Severity:    checks.SeverityError,
		Description: "<script>alert(1)</script>",
	})
	task.Results["format"] = res

	report, err := Assemble(task)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	page, err := HTML(report)
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	if strings.Contains(string(page), "<script>alert(1)</script>") {
		t.Fatal("issue description was not escaped")
	}
}
