package catalog

import "strings"

// SubjectInferrer guesses the owning subject for a free-form topic string.
// Implementations must be deterministic; returning ok=false means no subject
// could be inferred and callers fall back to a generic citation.
type SubjectInferrer interface {
	InferSubject(topic string) (code string, ok bool)
}

// TopicLookupInferrer infers a subject by matching the topic string against
// the catalog's own unit topic lists. An exact (case-insensitive) topic match
// wins; otherwise the subject whose topics share the most words with the
// query is chosen, requiring at least two overlapping words to avoid noise.
type TopicLookupInferrer struct {
	catalog *Catalog
}

// NewTopicLookupInferrer creates an inferrer backed by the given catalog.
func NewTopicLookupInferrer(c *Catalog) *TopicLookupInferrer {
	return &TopicLookupInferrer{catalog: c}
}

func (ti *TopicLookupInferrer) InferSubject(topic string) (string, bool) {
	ti.catalog.mu.RLock()
	defer ti.catalog.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(topic))
	if needle == "" {
		return "", false
	}

	bestCode := ""
	bestScore := 0
	words := fields(needle)

	for _, t := range ti.catalog.terms {
		for _, s := range t.Subjects {
			for _, u := range s.Units {
				for _, candidate := range u.Topics {
					cl := strings.ToLower(candidate)
					if cl == needle {
						return s.Code, true
					}
					score := overlap(words, fields(cl))
					if score > bestScore {
						bestScore = score
						bestCode = s.Code
					}
				}
			}
		}
	}

	if bestScore >= 2 {
		return bestCode, true
	}
	return "", false
}

func fields(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		w = strings.Trim(w, ".,;:()")
		if len(w) > 2 {
			out[w] = struct{}{}
		}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}
