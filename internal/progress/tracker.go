// Package progress tracks which curriculum topics a learner has completed
// and keeps the activity log that goes with it.
package progress

import (
	"sort"
	"sync"
	"time"
)

// Record identifies one completed topic.
type Record struct {
	SubjectCode string `json:"code"`
	UnitNumber  int    `json:"unit"`
	TopicIndex  int    `json:"topic"`
}

// CompletedRecord is a record with its completion time, as stored.
type CompletedRecord struct {
	Record
	CompletedAt time.Time `json:"completedAt"`
}

// Tracker is the in-session completion set. Membership and insertion are
// idempotent: adding an existing triple is a no-op.
type Tracker struct {
	mu  sync.RWMutex
	set map[Record]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{set: make(map[Record]struct{})}
}

// Add inserts a record and reports whether it was newly added.
func (t *Tracker) Add(r Record) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.set[r]; ok {
		return false
	}
	t.set[r] = struct{}{}
	return true
}

// IsCompleted reports set membership.
func (t *Tracker) IsCompleted(r Record) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.set[r]
	return ok
}

// Len returns the number of completed topics.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.set)
}

// All returns the records ordered by subject, unit, topic.
func (t *Tracker) All() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Record, 0, len(t.set))
	for r := range t.set {
		out = append(out, r)
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
	return out
}
