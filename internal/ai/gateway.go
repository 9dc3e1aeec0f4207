// Package ai provides a provider-agnostic gateway to text-generation
// backends with fallback routing.
package ai

import (
	"context"
	"fmt"
)

// TaskType tags a request with the kind of synthesis it asks for.
type TaskType int

const (
	TaskContent TaskType = iota
	TaskAssistant
)

func (t TaskType) String() string {
	switch t {
	case TaskContent:
		return "content"
	case TaskAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Message represents a chat message.
type Message struct {
	Role      string   `json:"role"`
	Content   string   `json:"content"`
	ImageURLs []string `json:"image_urls,omitempty"`
}

// CompletionRequest is the input to a generation call.
type CompletionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Task        TaskType  `json:"task,omitempty"`
}

// CompletionResponse is the output of a generation call.
type CompletionResponse struct {
	Content      string `json:"content"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TotalTokens returns the sum of input and output tokens.
func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// APIError is a non-2xx response from a provider's API. Callers use the
// status code to tell transient failures (retryable) from semantic ones.
type APIError struct {
	Provider string
	Status   int
	Body     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s api error (status %d): %s", e.Provider, e.Status, e.Body)
}

// Transient reports whether the error is worth retrying: rate limits and
// server-side failures are, client errors are not.
func (e *APIError) Transient() bool {
	return e.Status == 429 || e.Status >= 500
}

// Provider is the interface all generation backends implement.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
	HealthCheck(ctx context.Context) error
}
