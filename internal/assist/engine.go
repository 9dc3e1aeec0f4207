// Package assist answers standalone topic questions: it resolves a sourcing
// policy for the query, drives the generation backend, and shapes the raw
// answer into normalized sections.
package assist

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/drillbook/drillbook/internal/ai"
	"github.com/drillbook/drillbook/internal/generate"
	"github.com/drillbook/drillbook/internal/prompt"
	"github.com/drillbook/drillbook/internal/sections"
	"github.com/drillbook/drillbook/internal/source"
)

const persistTimeout = 10 * time.Second

// Metadata carries the sourcing decision alongside the answer content.
type Metadata struct {
	Citations     []string `json:"citations"`
	Rationale     string   `json:"rationale"`
	AllowInternet bool     `json:"allowInternet"`
}

// Answer is the structured response for one assistant query.
type Answer struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// Decider maps a content query onto a sourcing policy.
type Decider interface {
	Decide(q source.ContentQuery) source.SourcePlan
}

// Generator runs one completion request against the backend.
type Generator interface {
	Generate(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// Engine composes the decision engine, the generation service, and the
// section pipeline into the assistant query flow.
type Engine struct {
	decider   Decider
	generator Generator
	store     ExchangeStore
	logger    *slog.Logger
}

// NewEngine creates an assistant engine. Store may be nil, in which case
// exchanges are not persisted.
func NewEngine(decider Decider, generator Generator, store ExchangeStore, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		decider:   decider,
		generator: generator,
		store:     store,
		logger:    logger,
	}
}

// Answer resolves the sourcing policy for the query, generates the answer,
// and extracts its sections. The exchange is persisted in the background;
// persistence failure never fails the request.
func (e *Engine) Answer(ctx context.Context, q source.ContentQuery) (Answer, error) {
	plan := e.decider.Decide(q)

	resp, err := e.generator.Generate(ctx, prompt.AssistantRequest(q, plan))
	if err != nil {
		return Answer{}, fmt.Errorf("assistant generation: %w", err)
	}

	parts := sections.Extract(resp.Content, sections.AnswerSchema)
	content := sections.Normalize(parts["answer"])
	if content == "" {
		// Model ignored the markers; fall back to the whole reply.
		content = sections.Normalize(resp.Content)
	}

	answer := Answer{
		Content: content,
		Metadata: Metadata{
			Citations:     plan.Citations,
			Rationale:     plan.Rationale,
			AllowInternet: plan.AllowInternet,
		},
	}

	if e.store != nil {
		exchange := Exchange{
			Topic:          q.Topic,
			KnowledgeLevel: string(q.KnowledgeLevel),
			Subject:        q.Subject,
			Reference:      q.Reference,
			Query:          q,
			Plan:           plan,
			Content:        content,
			Model:          resp.Model,
			CreatedAt:      time.Now(),
		}
		go func() {
			pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
			defer cancel()
			if err := e.store.SaveExchange(pctx, exchange); err != nil {
				e.logger.Warn("exchange persistence failed", "topic", q.Topic, "error", err)
			}
		}()
	}

	return answer, nil
}

var _ Decider = (*source.Engine)(nil)
var _ Generator = (*generate.Service)(nil)
