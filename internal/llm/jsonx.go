package llm

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"
)

var fencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ExtractJSON pulls a JSON object out of free-form model output. It handles
// markdown code fences and surrounding prose before giving up.
func ExtractJSON(raw string) (json.RawMessage, error) {
	s := strings.TrimSpace(raw)

	if m := fencedBlock.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end != -1 && end > start {
		s = s[start : end+1]
	}

	if !json.Valid([]byte(s)) {
		return nil, errors.New("no valid JSON object in response")
	}
	return json.RawMessage(s), nil
}
