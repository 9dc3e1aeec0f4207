package server

import (
	"context"
	"fmt"

	"github.com/drillbook/drillbook/internal/catalog"
	"github.com/drillbook/drillbook/internal/nav"
)

// CatalogProvider serves navigation fetches from the catalog, deferring the
// content level to the ContentService.
type CatalogProvider struct {
	catalog *catalog.Catalog
	content *ContentService
}

// NewCatalogProvider creates the provider backing drill sessions.
func NewCatalogProvider(cat *catalog.Catalog, content *ContentService) *CatalogProvider {
	return &CatalogProvider{catalog: cat, content: content}
}

func (p *CatalogProvider) Terms(context.Context) ([]catalog.TermSummary, error) {
	return p.catalog.Terms(), nil
}

func (p *CatalogProvider) Subjects(_ context.Context, term string) ([]catalog.SubjectSummary, error) {
	subjects, ok := p.catalog.Subjects(term)
	if !ok {
		return nil, fmt.Errorf("term %s: %w", term, ErrNotFound)
	}
	return subjects, nil
}

func (p *CatalogProvider) Units(_ context.Context, code string) ([]catalog.UnitSummary, error) {
	units, ok := p.catalog.Units(code)
	if !ok {
		return nil, fmt.Errorf("subject %s: %w", code, ErrNotFound)
	}
	return units, nil
}

func (p *CatalogProvider) Topics(_ context.Context, code string, unit int) (catalog.UnitTopics, error) {
	topics, ok := p.catalog.Topics(code, unit)
	if !ok {
		return catalog.UnitTopics{}, fmt.Errorf("unit %s/%d: %w", code, unit, ErrNotFound)
	}
	return topics, nil
}

func (p *CatalogProvider) Content(ctx context.Context, code string, unit, topicIndex int) (nav.TopicView, error) {
	content, err := p.content.Topic(ctx, code, unit, topicIndex)
	if err != nil {
		return nav.TopicView{}, err
	}
	return nav.TopicView{
		Topic:    content.Topic,
		Content:  content.Content,
		Sections: content.Sections,
	}, nil
}

var _ nav.Provider = (*CatalogProvider)(nil)
