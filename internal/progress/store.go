package progress

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists completion records. Add must be idempotent at the record
// level: repeated identical submissions do not create duplicates.
type Store interface {
	Add(ctx context.Context, r Record) error
	IsCompleted(ctx context.Context, r Record) (bool, error)
	List(ctx context.Context) ([]CompletedRecord, error)
}

// MemoryStore is an in-memory Store for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[Record]time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Record]time.Time)}
}

func (s *MemoryStore) Add(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[r]; !ok {
		s.records[r] = time.Now()
	}
	return nil
}

func (s *MemoryStore) IsCompleted(_ context.Context, r Record) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.records[r]
	return ok, nil
}

func (s *MemoryStore) List(_ context.Context) ([]CompletedRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]CompletedRecord, 0, len(s.records))
	for r, at := range s.records {
		out = append(out, CompletedRecord{Record: r, CompletedAt: at})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubjectCode != out[j].SubjectCode {
			return out[i].SubjectCode < out[j].SubjectCode
		}
		if out[i].UnitNumber != out[j].UnitNumber {
			return out[i].UnitNumber < out[j].UnitNumber
		}
		return out[i].TopicIndex < out[j].TopicIndex
	})
	return out, nil
}
