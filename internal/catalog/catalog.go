// Package catalog loads the curriculum tree and reference catalog from YAML
// files and exposes read-only lookups keyed by the navigation hierarchy
// (term, subject code, unit number, topic index).
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// TermAll is the sentinel term id meaning "no term selected".
const TermAll = "all"

// Catalog holds the loaded curriculum tree and per-subject references.
type Catalog struct {
	rootDir    string
	terms      []Term
	termIndex  map[string]int
	subjects   map[string]*Subject
	references map[string][]Reference
	mu         sync.RWMutex
}

// New creates a catalog and loads all content under rootDir. Term files are
// *.term.yaml; references live in references.yaml keyed by subject code.
func New(rootDir string) (*Catalog, error) {
	c := &Catalog{
		rootDir:    rootDir,
		termIndex:  make(map[string]int),
		subjects:   make(map[string]*Subject),
		references: make(map[string][]Reference),
	}

	if err := c.loadAll(); err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	slog.Info("catalog loaded",
		"terms", len(c.terms),
		"subjects", len(c.subjects),
		"reference_subjects", len(c.references),
	)
	return c, nil
}

// Terms returns every term with its subject count, in load order.
func (c *Catalog) Terms() []TermSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]TermSummary, 0, len(c.terms))
	for _, t := range c.terms {
		out = append(out, TermSummary{Term: t.ID, SubjectCount: len(t.Subjects)})
	}
	return out
}

// Subjects returns the subjects for a term.
func (c *Catalog) Subjects(termID string) ([]SubjectSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.termIndex[termID]
	if !ok {
		return nil, false
	}
	out := make([]SubjectSummary, 0, len(c.terms[i].Subjects))
	for _, s := range c.terms[i].Subjects {
		out = append(out, SubjectSummary{Code: s.Code, Name: s.Name})
	}
	return out, true
}

// Units returns the units for a subject code.
func (c *Catalog) Units(code string) ([]UnitSummary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.subjects[code]
	if !ok {
		return nil, false
	}
	out := make([]UnitSummary, 0, len(s.Units))
	for _, u := range s.Units {
		out = append(out, UnitSummary{Number: u.Number, Title: u.Title})
	}
	return out, true
}

// Topics returns the topic list for one unit of a subject.
func (c *Catalog) Topics(code string, unitNumber int) (UnitTopics, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	u, ok := c.unit(code, unitNumber)
	if !ok {
		return UnitTopics{}, false
	}
	return UnitTopics{Title: u.Title, Topics: append([]string(nil), u.Topics...)}, true
}

// Topic returns a single topic string by position within a unit.
func (c *Catalog) Topic(code string, unitNumber, topicIndex int) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	u, ok := c.unit(code, unitNumber)
	if !ok || topicIndex < 0 || topicIndex >= len(u.Topics) {
		return "", false
	}
	return u.Topics[topicIndex], true
}

// SubjectName returns the display name for a subject code.
func (c *Catalog) SubjectName(code string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.subjects[code]
	if !ok {
		return "", false
	}
	return s.Name, true
}

// References returns the reference catalog entries for a subject code.
func (c *Catalog) References(code string) []Reference {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Reference(nil), c.references[code]...)
}

// FindReference looks for a reference within a subject whose title matches
// the given name (case-insensitive substring match).
func (c *Catalog) FindReference(code, name string) (Reference, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return Reference{}, false
	}
	for _, r := range c.references[code] {
		if strings.Contains(strings.ToLower(r.Title), needle) {
			return r, true
		}
	}
	return Reference{}, false
}

// AllReferences returns every reference in the catalog, ordered by subject
// code so output is deterministic.
func (c *Catalog) AllReferences() []Reference {
	c.mu.RLock()
	defer c.mu.RUnlock()

	codes := make([]string, 0, len(c.references))
	for code := range c.references {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var out []Reference
	for _, code := range codes {
		out = append(out, c.references[code]...)
	}
	return out
}

func (c *Catalog) unit(code string, unitNumber int) (*Unit, bool) {
	s, ok := c.subjects[code]
	if !ok {
		return nil, false
	}
	for i := range s.Units {
		if s.Units[i].Number == unitNumber {
			return &s.Units[i], true
		}
	}
	return nil, false
}

func (c *Catalog) loadAll() error {
	return filepath.Walk(c.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}

		switch {
		case strings.HasSuffix(path, ".term.yaml"):
			return c.loadTerm(path)
		case filepath.Base(path) == "references.yaml":
			return c.loadReferences(path)
		}
		return nil
	})
}

func (c *Catalog) loadTerm(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var term Term
	if err := yaml.Unmarshal(data, &term); err != nil {
		slog.Warn("skipping invalid term YAML", "path", path, "error", err)
		return nil
	}
	if term.ID == "" {
		return nil
	}
	if term.ID == TermAll {
		return fmt.Errorf("term id %q is reserved: %s", TermAll, path)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, dup := c.termIndex[term.ID]; dup {
		return fmt.Errorf("duplicate term id %q: %s", term.ID, path)
	}
	c.termIndex[term.ID] = len(c.terms)
	c.terms = append(c.terms, term)
	for i := range term.Subjects {
		s := &c.terms[len(c.terms)-1].Subjects[i]
		c.subjects[s.Code] = s
	}
	return nil
}

func (c *Catalog) loadReferences(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var refs map[string][]Reference
	if err := yaml.Unmarshal(data, &refs); err != nil {
		slog.Warn("skipping invalid references YAML", "path", path, "error", err)
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for code, list := range refs {
		c.references[code] = append(c.references[code], list...)
	}
	return nil
}
