package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/li18635787490/ai-test-service/internal/llm"
)

func TestCompleteSuccess(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q", got)
		}
		if got := r.Header.Get("anthropic-version"); got != apiVersion {
			t.Errorf("anthropic-version = %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"score\": 92}"}]}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-key", "claude-3-opus-20240229", srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	resp, err := client.Complete(context.Background(), llm.Request{
		System: "check the document",
		User:   "hello",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp != `{"score": 92}` {
		t.Fatalf("resp = %q", resp)
	}

	if captured["system"] != "check the document" {
		t.Errorf("system = %v", captured["system"])
	}
	if captured["max_tokens"] != float64(defaultMaxTokens) {
		t.Errorf("max_tokens = %v", captured["max_tokens"])
	}
}

func TestCompleteJoinsTextBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"content":[{"type":"text","text":"{\"score\":"},{"type":"text","text":" 70}"}]}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-key", "claude-3-opus-20240229", srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	resp, err := client.Complete(context.Background(), llm.Request{User: "hello"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp != `{"score": 70}` {
		t.Fatalf("resp = %q", resp)
	}
}

func TestCompleteHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"type":"overloaded_error","message":"Overloaded"}}`))
	}))
	defer srv.Close()

	client, err := NewClient("test-key", "claude-3-opus-20240229", srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, err = client.Complete(context.Background(), llm.Request{User: "hello"})
	var apiErr *llm.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Provider != "anthropic" || apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("apiErr = %+v", apiErr)
	}
	if apiErr.Message != "Overloaded (overloaded_error)" {
		t.Fatalf("message = %q", apiErr.Message)
	}
}
