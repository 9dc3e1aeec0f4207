// Package generate wraps the AI router with the request discipline every
// generation call gets: a per-attempt timeout and one retry on transient
// failure. Semantic failures (bad request, empty output) are never retried.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/drillbook/drillbook/internal/ai"
)

// ErrGenerationFailed wraps every error leaving this package so callers can
// surface a uniform user-visible failure notice.
var ErrGenerationFailed = errors.New("generation failed")

const (
	defaultTimeout = 45 * time.Second
	defaultRetries = 1
)

// Completer is the routing surface the service depends on.
type Completer interface {
	Complete(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// Service executes generation requests.
type Service struct {
	router  Completer
	timeout time.Duration
	retries int
}

// Config holds the service's tunables; zero values pick defaults.
type Config struct {
	Timeout time.Duration
	Retries int
}

// New creates a generation service over the given router.
func New(router Completer, cfg Config) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = defaultRetries
	}
	return &Service{router: router, timeout: timeout, retries: retries}
}

// Generate runs one generation request. Each attempt gets its own deadline;
// a transient failure is retried at most s.retries times.
func (s *Service) Generate(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= s.retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.timeout)
		resp, err := s.router.Complete(attemptCtx, req)
		cancel()

		if err == nil {
			return resp, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
		if !transient(err) {
			break
		}
		if attempt < s.retries {
			slog.Warn("transient generation failure, retrying",
				"task", req.Task.String(),
				"attempt", attempt+1,
				"error", err,
			)
		}
	}

	return ai.CompletionResponse{}, fmt.Errorf("%w: %w", ErrGenerationFailed, lastErr)
}

// transient classifies an error as a retryable infrastructure failure.
func transient(err error) bool {
	var apiErr *ai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
