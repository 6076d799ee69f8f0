package checks

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/li18635787490/ai-test-service/internal/llm"
)

type fnClient struct {
	fn func(ctx context.Context, req llm.Request) (string, error)
}

func (c *fnClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	return c.fn(ctx, req)
}

func TestParseResultCleanReply(t *testing.T) {
	res := parseResult(DimensionFormat, `{"score": 85, "summary": "mostly well formatted", "issues": [
		{"type": "heading", "severity": "warning", "position": "section 2", "description": "skipped level", "suggestion": "renumber"}
	]}`)
	if res.Dimension != DimensionFormat {
		t.Fatalf("dimension = %q", res.Dimension)
	}
	if res.Score != 85 {
		t.Fatalf("score = %d, want 85", res.Score)
	}
	if res.Summary != "mostly well formatted" {
		t.Fatalf("summary = %q", res.Summary)
	}
	if len(res.Issues) != 1 || res.Issues[0].Severity != SeverityWarning {
		t.Fatalf("issues = %+v", res.Issues)
	}
}

func TestParseResultFencedReply(t *testing.T) {
	res := parseResult(DimensionContent, "The result:\n```json\n{\"score\": 90, \"issues\": []}\n```")
	if res.Score != 90 {
		t.Fatalf("score = %d, want 90", res.Score)
	}
	if len(res.Issues) != 0 {
		t.Fatalf("issues = %+v", res.Issues)
	}
}

func TestParseResultClampsScore(t *testing.T) {
	if res := parseResult(DimensionLogic, `{"score": 150, "issues": []}`); res.Score != 100 {
		t.Fatalf("score = %d, want 100", res.Score)
	}
	if res := parseResult(DimensionLogic, `{"score": -20, "issues": []}`); res.Score != 0 {
		t.Fatalf("score = %d, want 0", res.Score)
	}
}

func TestParseResultCoercesUnknownSeverity(t *testing.T) {
	res := parseResult(DimensionSensitive, `{"score": 95, "issues": [
		{"type": "x", "severity": "critical", "description": "a"},
		{"type": "y", "severity": "ERROR", "description": "b"}
	]}`)
	if res.Issues[0].Severity != SeverityInfo {
		t.Fatalf("severity = %q, want info", res.Issues[0].Severity)
	}
	if res.Issues[1].Severity != SeverityError {
		t.Fatalf("severity = %q, want error", res.Issues[1].Severity)
	}
}

func TestParseResultCapsScoreByIssues(t *testing.T) {
	// Two errors and one warning cap the score at 100 - 20 - 5 = 75.
	res := parseResult(DimensionCompliance, `{"score": 98, "issues": [
		{"type": "a", "severity": "error", "description": "a"},
		{"type": "b", "severity": "error", "description": "b"},
		{"type": "c", "severity": "warning", "description": "c"}
	]}`)
	if res.Score != 75 {
		t.Fatalf("score = %d, want 75", res.Score)
	}

	// A reported score below the cap stands.
	res = parseResult(DimensionCompliance, `{"score": 40, "issues": [
		{"type": "a", "severity": "error", "description": "a"}
	]}`)
	if res.Score != 40 {
		t.Fatalf("score = %d, want 40", res.Score)
	}
}

func TestParseResultDegradesOnGarbage(t *testing.T) {
	res := parseResult(DimensionFormat, "I am sorry, I cannot inspect this document.")
	if res.Score != 0 {
		t.Fatalf("score = %d, want 0", res.Score)
	}
	if len(res.Issues) != 1 {
		t.Fatalf("issues = %+v, want exactly one", res.Issues)
	}
	issue := res.Issues[0]
	if issue.Severity != SeverityWarning || issue.Description != "unparseable AI response" {
		t.Fatalf("issue = %+v", issue)
	}
}

func TestCheckPropagatesProviderFailure(t *testing.T) {
	client := &fnClient{fn: func(ctx context.Context, req llm.Request) (string, error) {
		return "", &llm.APIError{Provider: "openai", Status: 500, Message: "down"}
	}}

	var checker Checker
	_, err := checker.Check(context.Background(), client, DimensionFormat, "a.txt", "text", "")
	if err == nil {
		t.Fatal("expected error")
	}
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v", err)
	}
}

func TestCheckAppendsCustomRules(t *testing.T) {
	var captured llm.Request
	client := &fnClient{fn: func(ctx context.Context, req llm.Request) (string, error) {
		captured = req
		return `{"score": 100, "issues": []}`, nil
	}}

	var checker Checker
	res, err := checker.Check(context.Background(), client, DimensionContent, "a.txt", "body text", "flag passive voice")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Score != 100 {
		t.Fatalf("score = %d", res.Score)
	}
	if !captured.ForceJSON {
		t.Fatal("ForceJSON not set")
	}
	if !strings.Contains(captured.System, "flag passive voice") {
		t.Fatalf("system prompt missing custom rules: %q", captured.System)
	}
	if !strings.Contains(captured.User, "a.txt") || !strings.Contains(captured.User, "body text") {
		t.Fatalf("user prompt = %q", captured.User)
	}
}
