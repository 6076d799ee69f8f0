package llm

import (
	"encoding/json"
	"testing"
)

func TestExtractJSONPlainObject(t *testing.T) {
	raw, err := ExtractJSON(`{"score": 88, "issues": []}`)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	var parsed struct {
		Score int `json:"score"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed.Score != 88 {
		t.Fatalf("score = %d, want 88", parsed.Score)
	}
}

func TestExtractJSONFencedBlock(t *testing.T) {
	input := "Here is the result:\n```json\n{\"score\": 75}\n```\nHope that helps."
	raw, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if string(raw) != `{"score": 75}` {
		t.Fatalf("raw = %q", string(raw))
	}
}

func TestExtractJSONBareFence(t *testing.T) {
	input := "```\n{\"ok\": true}\n```"
	raw, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if string(raw) != `{"ok": true}` {
		t.Fatalf("raw = %q", string(raw))
	}
}

func TestExtractJSONSurroundingProse(t *testing.T) {
	input := `The document looks fine overall. {"score": 90, "issues": []} Let me know if you need more.`
	raw, err := ExtractJSON(input)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if !json.Valid(raw) {
		t.Fatalf("extracted invalid JSON: %q", string(raw))
	}
}

func TestExtractJSONNoObject(t *testing.T) {
	if _, err := ExtractJSON("I could not analyze the document."); err == nil {
		t.Fatal("expected error for prose-only reply")
	}
	if _, err := ExtractJSON(`{"score": `); err == nil {
		t.Fatal("expected error for truncated JSON")
	}
}
