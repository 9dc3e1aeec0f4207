package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/drillbook/drillbook/internal/ai"
	"github.com/drillbook/drillbook/internal/catalog"
	"github.com/drillbook/drillbook/internal/platform/cache"
	"github.com/drillbook/drillbook/internal/prompt"
	"github.com/drillbook/drillbook/internal/sections"
)

// ErrNotFound means a term, subject, unit, or topic does not exist in the
// catalog.
var ErrNotFound = errors.New("not found")

// TopicContent is the payload of the content endpoint: the raw generated
// text plus its extracted, normalized sections.
type TopicContent struct {
	Subject  string            `json:"subject"`
	Unit     string            `json:"unit"`
	Topic    string            `json:"topic"`
	Content  string            `json:"content"`
	Sections map[string]string `json:"sections"`
}

// Generator runs one completion request against the backend.
type Generator interface {
	Generate(ctx context.Context, req ai.CompletionRequest) (ai.CompletionResponse, error)
}

// ContentService resolves a topic triple to generated study material,
// consulting the cache before the generation backend.
type ContentService struct {
	catalog   *catalog.Catalog
	generator Generator
	cache     *cache.Cache
	ttl       time.Duration
	logger    *slog.Logger
}

// NewContentService creates a content service. Cache may be nil, in which
// case every request hits the generation backend.
func NewContentService(cat *catalog.Catalog, generator Generator, c *cache.Cache, ttl time.Duration, logger *slog.Logger) *ContentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentService{
		catalog:   cat,
		generator: generator,
		cache:     c,
		ttl:       ttl,
		logger:    logger,
	}
}

// Topic generates (or serves from cache) the content for one topic.
func (s *ContentService) Topic(ctx context.Context, code string, unit, topicIndex int) (TopicContent, error) {
	topic, ok := s.catalog.Topic(code, unit, topicIndex)
	if !ok {
		return TopicContent{}, fmt.Errorf("topic %s/%d/%d: %w", code, unit, topicIndex, ErrNotFound)
	}
	subjectName, _ := s.catalog.SubjectName(code)
	unitTopics, _ := s.catalog.Topics(code, unit)

	key := fmt.Sprintf("content:%s:%d:%d", code, unit, topicIndex)
	if s.cache != nil {
		var cached TopicContent
		err := s.cache.GetJSON(ctx, key, &cached)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			s.logger.Warn("content cache read failed", "key", key, "error", err)
		}
	}

	resp, err := s.generator.Generate(ctx, prompt.TopicRequest(subjectName, unitTopics.Title, topic))
	if err != nil {
		return TopicContent{}, fmt.Errorf("generate topic content: %w", err)
	}

	parts := sections.Extract(resp.Content, sections.TopicSchema)
	normalized := make(map[string]string, len(parts))
	for name, text := range parts {
		normalized[name] = sections.Normalize(text)
	}

	content := TopicContent{
		Subject:  subjectName,
		Unit:     unitTopics.Title,
		Topic:    topic,
		Content:  resp.Content,
		Sections: normalized,
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, content, s.ttl); err != nil {
			s.logger.Warn("content cache write failed", "key", key, "error", err)
		}
	}
	return content, nil
}
