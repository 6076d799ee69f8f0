package checks

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/li18635787490/ai-test-service/internal/llm"
	"github.com/li18635787490/ai-test-service/internal/shared/telemetry"
)

// Checker runs a single dimension check against an AI provider and
// normalizes the reply into a DimensionResult.
type Checker struct{}

// rawResult mirrors the JSON shape requested from the provider.
type rawResult struct {
	Score   json.Number `json:"score"`
	Summary string      `json:"summary"`
	Issues  []struct {
		Type        string `json:"type"`
		Severity    string `json:"severity"`
		Position    string `json:"position"`
		Description string `json:"description"`
		Suggestion  string `json:"suggestion"`
	} `json:"issues"`
}

// Check calls the provider for one dimension. A reply that cannot be parsed
// degrades to a zero-score result with a single warning instead of an error;
// only the provider call itself failing is returned as an error.
func (Checker) Check(ctx context.Context, client llm.Client, dimension, fileName, text, customRules string) (DimensionResult, error) {
	system := llm.DimensionSystemPrompt(dimension)
	if rules := strings.TrimSpace(customRules); rules != "" {
		system += "\n\nAdditional rules from the requester:\n" + rules
	}

	reply, err := client.Complete(ctx, llm.Request{
		System:    system,
		User:      llm.DimensionUserPrompt(fileName, text),
		ForceJSON: true,
	})
	if err != nil {
		return DimensionResult{}, err
	}

	return parseResult(dimension, reply), nil
}

// parseResult normalizes a provider reply: score clamped to [0,100],
// unrecognized severities coerced to info, and the score capped by issue
// weight (10 per error, 5 per warning). Unparseable replies degrade to a
// zero-score result with one warning.
func parseResult(dimension, reply string) DimensionResult {
	degraded := DimensionResult{
		Dimension: dimension,
		Score:     0,
		Summary:   "unparseable AI response",
		Issues: []Issue{{
			Type:        "parse",
			Severity:    SeverityWarning,
			Description: "unparseable AI response",
		}},
	}

	raw, err := llm.ExtractJSON(reply)
	if err != nil {
		telemetry.Warn("check.parse", map[string]any{
			"dimension": dimension,
			"error":     err.Error(),
		})
		return degraded
	}

	var parsed rawResult
	if err := json.Unmarshal(raw, &parsed); err != nil {
		telemetry.Warn("check.parse", map[string]any{
			"dimension": dimension,
			"error":     err.Error(),
		})
		return degraded
	}

	score := 100
	if f, err := parsed.Score.Float64(); err == nil {
		score = int(f)
	}
	score = clamp(score, 0, 100)

	issues := make([]Issue, 0, len(parsed.Issues))
	errorCount, warningCount := 0, 0
	for _, raw := range parsed.Issues {
		severity := strings.ToLower(strings.TrimSpace(raw.Severity))
		switch severity {
		case SeverityError:
			errorCount++
		case SeverityWarning:
			warningCount++
		default:
			severity = SeverityInfo
		}
		issues = append(issues, Issue{
			Type:        raw.Type,
			Severity:    severity,
			Position:    raw.Position,
			Description: raw.Description,
			Suggestion:  raw.Suggestion,
		})
	}

	if limit := clamp(100-10*errorCount-5*warningCount, 0, 100); score > limit {
		score = limit
	}

	return DimensionResult{
		Dimension: dimension,
		Score:     score,
		Summary:   strings.TrimSpace(parsed.Summary),
		Issues:    issues,
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
