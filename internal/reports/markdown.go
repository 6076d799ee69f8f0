package reports

import (
	"fmt"
	"strings"
)

// Markdown renders the report as a markdown document.
func Markdown(report Report) []byte {
	var b strings.Builder
	b.WriteString("# Document Check Report\n\n")
	fmt.Fprintf(&b, "Task: %s\n\n", report.TaskID)
	fmt.Fprintf(&b, "Document: %s\n\n", report.DocumentID)
	fmt.Fprintf(&b, "Status: %s | Provider: %s\n\n", report.Status, report.AIProvider)
	if report.OverallScore != nil {
		fmt.Fprintf(&b, "## Overall Score: %d/100\n\n", *report.OverallScore)
	}
	if report.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", report.Summary)
	}
	fmt.Fprintf(&b, "Issues: %d errors, %d warnings, %d info\n\n",
		report.IssueTotals.Errors, report.IssueTotals.Warnings, report.IssueTotals.Info)

	for _, section := range report.Sections {
		fmt.Fprintf(&b, "## %s (%d/100)\n\n", titleCase(section.Dimension), section.Score)
		if section.Summary != "" {
			fmt.Fprintf(&b, "%s\n\n", section.Summary)
		}
		if len(section.Issues) == 0 {
			b.WriteString("No issues found.\n\n")
			continue
		}
		b.WriteString("| Severity | Position | Description | Suggestion |\n|---|---|---|---|\n")
		for _, issue := range section.Issues {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				issue.Severity, cell(issue.Position), cell(issue.Description), cell(issue.Suggestion))
		}
		b.WriteString("\n")
	}
	return []byte(b.String())
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
