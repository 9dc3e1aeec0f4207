package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/drillbook/drillbook/internal/catalog"
)

func setupTestCatalog(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	termYAML := `
id: sem3
name: Semester 3
subjects:
  - code: EC3251
    name: Circuit Analysis
    units:
      - number: 1
        title: DC Circuit Analysis
        topics:
          - Kirchhoff's laws
          - Mesh current analysis
          - Node voltage analysis
      - number: 2
        title: Network Theorems
        topics:
          - Thevenin theorem
          - Norton theorem
  - code: MA3251
    name: Statistics and Numerical Methods
    units:
      - number: 1
        title: Testing of Hypothesis
        topics:
          - Sampling distributions
`
	refsYAML := `
EC3251:
  - title: Engineering Circuit Analysis
    author: Hayt and Kemmerly
    edition: 9th
  - title: Electric Circuits
    author: Nilsson
MA3251:
  - title: Probability and Statistics for Engineers
    author: Johnson
`
	if err := os.WriteFile(filepath.Join(dir, "sem3.term.yaml"), []byte(termYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "references.yaml"), []byte(refsYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New(setupTestCatalog(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestCatalog_Terms(t *testing.T) {
	c := newTestCatalog(t)

	terms := c.Terms()
	if len(terms) != 1 {
		t.Fatalf("Terms() count = %d, want 1", len(terms))
	}
	if terms[0].Term != "sem3" {
		t.Errorf("Term = %q, want %q", terms[0].Term, "sem3")
	}
	if terms[0].SubjectCount != 2 {
		t.Errorf("SubjectCount = %d, want 2", terms[0].SubjectCount)
	}
}

func TestCatalog_Subjects(t *testing.T) {
	c := newTestCatalog(t)

	subjects, ok := c.Subjects("sem3")
	if !ok {
		t.Fatal("Subjects(sem3) not found")
	}
	if len(subjects) != 2 {
		t.Fatalf("Subjects count = %d, want 2", len(subjects))
	}
	if subjects[0].Code != "EC3251" {
		t.Errorf("Code = %q, want EC3251", subjects[0].Code)
	}

	if _, ok := c.Subjects("sem9"); ok {
		t.Error("Subjects(sem9) should not be found")
	}
}

func TestCatalog_UnitsAndTopics(t *testing.T) {
	c := newTestCatalog(t)

	units, ok := c.Units("EC3251")
	if !ok {
		t.Fatal("Units(EC3251) not found")
	}
	if len(units) != 2 {
		t.Fatalf("Units count = %d, want 2", len(units))
	}

	topics, ok := c.Topics("EC3251", 2)
	if !ok {
		t.Fatal("Topics(EC3251, 2) not found")
	}
	if topics.Title != "Network Theorems" {
		t.Errorf("Title = %q, want %q", topics.Title, "Network Theorems")
	}
	if len(topics.Topics) != 2 {
		t.Errorf("Topics count = %d, want 2", len(topics.Topics))
	}

	topic, ok := c.Topic("EC3251", 1, 1)
	if !ok {
		t.Fatal("Topic(EC3251, 1, 1) not found")
	}
	if topic != "Mesh current analysis" {
		t.Errorf("Topic = %q, want %q", topic, "Mesh current analysis")
	}

	if _, ok := c.Topic("EC3251", 1, 99); ok {
		t.Error("Topic with out-of-range index should not be found")
	}
}

func TestCatalog_References(t *testing.T) {
	c := newTestCatalog(t)

	refs := c.References("EC3251")
	if len(refs) != 2 {
		t.Fatalf("References count = %d, want 2", len(refs))
	}

	ref, ok := c.FindReference("EC3251", "electric circuits")
	if !ok {
		t.Fatal("FindReference(electric circuits) not found")
	}
	if ref.Author != "Nilsson" {
		t.Errorf("Author = %q, want Nilsson", ref.Author)
	}

	if _, ok := c.FindReference("EC3251", "quantum field theory"); ok {
		t.Error("FindReference for unknown title should not match")
	}

	all := c.AllReferences()
	if len(all) != 3 {
		t.Errorf("AllReferences count = %d, want 3", len(all))
	}
}

func TestReference_String(t *testing.T) {
	r := catalog.Reference{Title: "Electric Circuits", Author: "Nilsson", Edition: "11th"}
	want := "Electric Circuits, Nilsson (11th)"
	if got := r.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestTopicLookupInferrer(t *testing.T) {
	c := newTestCatalog(t)
	inf := catalog.NewTopicLookupInferrer(c)

	code, ok := inf.InferSubject("Thevenin theorem")
	if !ok {
		t.Fatal("InferSubject(Thevenin theorem) should succeed")
	}
	if code != "EC3251" {
		t.Errorf("code = %q, want EC3251", code)
	}

	// Word overlap without an exact match.
	code, ok = inf.InferSubject("explain mesh current analysis with an example")
	if !ok || code != "EC3251" {
		t.Errorf("InferSubject(overlap) = %q, %v; want EC3251, true", code, ok)
	}

	if _, ok := inf.InferSubject("french revolution"); ok {
		t.Error("InferSubject for unrelated topic should fail")
	}
}
