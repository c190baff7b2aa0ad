package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"triage-agent/internal/llm"
)

func TestCompleteSendsExpectedRequest(t *testing.T) {
	var got map[string]any
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  {\"priority\":\"high\"}  "}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "test-key", BaseURL: server.URL + "/"})
	reply, err := client.Complete(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if reply != `{"priority":"high"}` {
		t.Fatalf("unexpected reply %q", reply)
	}
	if auth != "Bearer test-key" {
		t.Fatalf("unexpected authorization header %q", auth)
	}
	if got["model"] != DefaultModel {
		t.Fatalf("expected model %s, got %v", DefaultModel, got["model"])
	}
	if got["max_tokens"] != float64(DefaultMaxTokens) {
		t.Fatalf("expected max_tokens %d, got %v", DefaultMaxTokens, got["max_tokens"])
	}
	temp, ok := got["temperature"].(float64)
	if !ok || temp < 0.29 || temp > 0.31 {
		t.Fatalf("expected temperature 0.3, got %v", got["temperature"])
	}
	messages, ok := got["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %v", got["messages"])
	}
	first := messages[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "system text" {
		t.Fatalf("unexpected system message %v", first)
	}
}

func TestCompleteWithoutKeyMakesNoRequest(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "   ", BaseURL: server.URL})
	_, err := client.Complete(context.Background(), "", "prompt")
	if !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no requests, got %d", calls.Load())
	}
}

func TestCompleteNon2xxIsBackendError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached","type":"requests"}}`))
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: server.URL})
	_, err := client.Complete(context.Background(), "", "prompt")
	var backendErr *llm.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if backendErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", backendErr.StatusCode)
	}
	if backendErr.Message != "Rate limit reached" {
		t.Fatalf("unexpected message %q", backendErr.Message)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected exactly one request, got %d", calls.Load())
	}
}

func TestCompleteEmptyChoicesIsBackendError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: server.URL})
	_, err := client.Complete(context.Background(), "", "prompt")
	var backendErr *llm.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
}

func TestCompleteEmptyContentIsAReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  "}}]}`))
	}))
	defer server.Close()

	client := NewClient(Options{APIKey: "k", BaseURL: server.URL})
	got, err := client.Complete(context.Background(), "", "prompt")
	if err != nil {
		t.Fatalf("expected empty content to be returned without error, got %v", err)
	}
	if got != "" {
		t.Fatalf("expected trimmed empty reply, got %q", got)
	}
}

func TestCompleteTimeoutIsBackendError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Options{APIKey: "k", BaseURL: server.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Complete(context.Background(), "", "prompt")
	var backendErr *llm.BackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if backendErr.StatusCode != 0 {
		t.Fatalf("expected no status on transport failure, got %d", backendErr.StatusCode)
	}
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Options{})
	if client.Model() != DefaultModel {
		t.Fatalf("expected default model, got %q", client.Model())
	}
	if client.endpoint != DefaultBaseURL+"/chat/completions" {
		t.Fatalf("unexpected endpoint %q", client.endpoint)
	}
	if client.httpClient.Timeout != DefaultTimeout {
		t.Fatalf("unexpected timeout %v", client.httpClient.Timeout)
	}
}

func TestCompleteOmitsTemperatureForListedModels(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer server.Close()

	client := NewClient(Options{
		APIKey:              "test-key",
		BaseURL:             server.URL,
		Model:               "gpt-5-mini",
		NoTemperatureModels: []string{" GPT-5-MINI "},
	})
	if _, err := client.Complete(context.Background(), "", "prompt"); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, ok := got["temperature"]; ok {
		t.Fatalf("expected temperature to be omitted, got %v", got["temperature"])
	}
	if messages := got["messages"].([]any); len(messages) != 1 {
		t.Fatalf("expected only the user message, got %v", messages)
	}
}
