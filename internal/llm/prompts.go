package llm

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed prompts/*.txt
var promptFS embed.FS

// dimensionOutput is appended to every dimension system prompt so replies
// stay machine-parseable.
const dimensionOutput = `
Respond with JSON only, no prose around it:
{
  "score": <integer 0-100>,
  "summary": "<one sentence overall judgement>",
  "issues": [
    {
      "type": "<short issue category>",
      "severity": "error" | "warning" | "info",
      "position": "<where in the document, e.g. section or paragraph>",
      "description": "<what is wrong>",
      "suggestion": "<how to fix it>"
    }
  ]
}
An empty issues array is valid when nothing is wrong.`

const requirementsOutput = `
Respond with JSON only, no prose around it:
{
  "requirements": [
    {
      "req_id": "REQ-001",
      "title": "...",
      "description": "...",
      "priority": "high" | "medium" | "low",
      "issues": ["..."],
      "suggestions": ["..."]
    }
  ],
  "completeness_score": <integer 0-100>,
  "clarity_score": <integer 0-100>,
  "consistency_score": <integer 0-100>,
  "testability_score": <integer 0-100>,
  "summary": "<one paragraph overview>",
  "improvement_suggestions": ["..."]
}`

const testcasesOutput = `
Respond with JSON only, no prose around it:
{
  "test_cases": [
    {
      "case_id": "TC-001",
      "requirement_id": "REQ-001",
      "title": "...",
      "priority": "P0" | "P1" | "P2" | "P3",
      "case_type": "functional" | "boundary" | "exception" | "performance" | "security",
      "precondition": "...",
      "steps": [{"step_number": 1, "action": "...", "expected": "..."}],
      "test_data": "...",
      "tags": ["..."]
    }
  ],
  "coverage_summary": "..."
}`

func promptFile(name string) string {
	b, err := promptFS.ReadFile("prompts/" + name + ".txt")
	if err != nil {
		// The prompt set is embedded at build time; a missing file is a
		// packaging bug, not a runtime condition.
		panic(fmt.Sprintf("llm: missing embedded prompt %q: %v", name, err))
	}
	return strings.TrimSpace(string(b))
}

// DimensionSystemPrompt returns the system prompt for one check dimension.
// The dimension id must be one of the known ids; callers validate upstream.
func DimensionSystemPrompt(dimension string) string {
	return promptFile(dimension) + "\n" + dimensionOutput
}

// DimensionUserPrompt wraps the document text for a dimension check.
func DimensionUserPrompt(fileName, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Document name: %s\n\n", fileName)
	b.WriteString("Document content:\n")
	b.WriteString(text)
	return b.String()
}

// RequirementAnalysisSystemPrompt returns the system prompt for requirement
// document analysis.
func RequirementAnalysisSystemPrompt() string {
	return promptFile("requirements") + "\n" + requirementsOutput
}

// TestCaseSystemPrompt returns the system prompt for test case generation.
func TestCaseSystemPrompt() string {
	return promptFile("testcases") + "\n" + testcasesOutput
}

// AnalysisUserPrompt wraps a requirement document for either analyzer.
func AnalysisUserPrompt(fileName, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Requirement document: %s\n\n", fileName)
	b.WriteString(text)
	return b.String()
}
