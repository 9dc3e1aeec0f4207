package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrNoProvider is returned when every registered provider failed or none
// are registered at all.
var ErrNoProvider = errors.New("all generation providers failed")

// Router picks a provider for each request, falling back through the
// registration order when one fails.
type Router struct {
	providers map[string]Provider
	fallback  []string
	mu        sync.RWMutex
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider; registration order is the fallback order.
func (r *Router) Register(name string, provider Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = provider
	r.fallback = append(r.fallback, name)
}

// Complete routes a request to the first provider that succeeds.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var lastErr error
	for _, name := range r.fallback {
		resp, err := r.providers[name].Complete(ctx, req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				// The caller's deadline expired; trying the next provider
				// would fail the same way.
				return CompletionResponse{}, fmt.Errorf("%w: %w", ErrNoProvider, err)
			}
			slog.Warn("generation provider failed, trying next",
				"provider", name,
				"task", req.Task.String(),
				"error", err,
			)
			continue
		}

		slog.Debug("generation request completed",
			"provider", name,
			"model", resp.Model,
			"task", req.Task.String(),
			"input_tokens", resp.InputTokens,
			"output_tokens", resp.OutputTokens,
			"total_tokens", resp.TotalTokens(),
		)
		return resp, nil
	}

	if lastErr != nil {
		return CompletionResponse{}, fmt.Errorf("%w: %w", ErrNoProvider, lastErr)
	}
	return CompletionResponse{}, ErrNoProvider
}

// HasProvider returns true if at least one provider is registered.
func (r *Router) HasProvider() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers) > 0
}

// Names returns the registered provider names in fallback order.
func (r *Router) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.fallback...)
}
