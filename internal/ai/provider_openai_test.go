package ai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/drillbook/drillbook/internal/ai"
)

func TestOpenAIProvider_Complete(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Kirchhoff's current law states..."}},
			},
			"model": "gpt-4o-mini",
			"usage": map[string]any{"prompt_tokens": 42, "completion_tokens": 17},
		})
	}))
	defer server.Close()

	p := ai.NewOpenAIProvider("test-key", ai.WithBaseURL(server.URL))
	resp, err := p.Complete(context.Background(), ai.CompletionRequest{
		Messages:  []ai.Message{{Role: "user", Content: "explain KCL"}},
		MaxTokens: 512,
	})

	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotBody["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v, want default gpt-4o-mini", gotBody["model"])
	}
	if resp.Content == "" {
		t.Error("Content is empty")
	}
	if resp.InputTokens != 42 || resp.OutputTokens != 17 {
		t.Errorf("tokens = %d/%d, want 42/17", resp.InputTokens, resp.OutputTokens)
	}
}

func TestOpenAIProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer server.Close()

	p := ai.NewOpenAIProvider("test-key", ai.WithBaseURL(server.URL))
	_, err := p.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	})

	var apiErr *ai.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Status != http.StatusTooManyRequests {
		t.Errorf("Status = %d, want 429", apiErr.Status)
	}
	if !apiErr.Transient() {
		t.Error("429 should be transient")
	}
}

func TestOpenAIProvider_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[],"model":"gpt-4o-mini"}`))
	}))
	defer server.Close()

	p := ai.NewOpenAIProvider("test-key", ai.WithBaseURL(server.URL))
	_, err := p.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Fatal("Complete() should fail on empty choices")
	}
}

func TestDeepSeekProvider_DefaultModel(t *testing.T) {
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{"message": map[string]any{"content": "ok"}}},
			"model":   "deepseek-chat",
		})
	}))
	defer server.Close()

	p := ai.NewDeepSeekProvider("key", ai.WithBaseURL(server.URL))
	if _, err := p.Complete(context.Background(), ai.CompletionRequest{
		Messages: []ai.Message{{Role: "user", Content: "hi"}},
	}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if gotBody["model"] != "deepseek-chat" {
		t.Errorf("model = %v, want deepseek-chat", gotBody["model"])
	}
}

func TestOpenAIProvider_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer server.Close()

	p := ai.NewOpenAIProvider("key", ai.WithBaseURL(server.URL))
	if err := p.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}
