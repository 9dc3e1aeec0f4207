package assist

import (
	"context"
	"sync"
	"time"

	"github.com/drillbook/drillbook/internal/source"
)

// Exchange is one persisted query/answer pair together with the sourcing
// decision that shaped it.
type Exchange struct {
	Topic          string              `json:"topic"`
	KnowledgeLevel string              `json:"knowledgeLevel,omitempty"`
	Subject        string              `json:"subject,omitempty"`
	Reference      string              `json:"reference,omitempty"`
	Query          source.ContentQuery `json:"query"`
	Plan           source.SourcePlan   `json:"plan"`
	Content        string              `json:"content"`
	Model          string              `json:"model,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

// ExchangeStore persists assistant exchanges.
type ExchangeStore interface {
	SaveExchange(ctx context.Context, ex Exchange) error
	RecentExchanges(ctx context.Context, limit int) ([]Exchange, error)
}

// MemoryExchangeStore keeps exchanges in memory, newest first.
type MemoryExchangeStore struct {
	mu        sync.Mutex
	exchanges []Exchange
}

// NewMemoryExchangeStore creates an empty in-memory exchange store.
func NewMemoryExchangeStore() *MemoryExchangeStore {
	return &MemoryExchangeStore{}
}

func (s *MemoryExchangeStore) SaveExchange(_ context.Context, ex Exchange) error {
	if ex.CreatedAt.IsZero() {
		ex.CreatedAt = time.Now()
	}
	s.mu.Lock()
	s.exchanges = append([]Exchange{ex}, s.exchanges...)
	s.mu.Unlock()
	return nil
}

func (s *MemoryExchangeStore) RecentExchanges(_ context.Context, limit int) ([]Exchange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > len(s.exchanges) {
		limit = len(s.exchanges)
	}
	out := make([]Exchange, limit)
	copy(out, s.exchanges[:limit])
	return out, nil
}
