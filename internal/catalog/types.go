package catalog

// Term is a top-level curriculum grouping (an academic term) loaded from YAML.
type Term struct {
	ID       string    `yaml:"id"`
	Name     string    `yaml:"name"`
	Subjects []Subject `yaml:"subjects"`
}

// Subject is a subject within a term, identified by its course code
// (e.g. EC3251).
type Subject struct {
	Code  string `yaml:"code"`
	Name  string `yaml:"name"`
	Units []Unit `yaml:"units"`
}

// Unit is a numbered unit within a subject.
type Unit struct {
	Number int      `yaml:"number"`
	Title  string   `yaml:"title"`
	Topics []string `yaml:"topics"`
}

// Reference is a citable source document scoped to a subject.
type Reference struct {
	Title   string `yaml:"title"`
	Author  string `yaml:"author"`
	Edition string `yaml:"edition,omitempty"`
}

// String renders a reference as a single citation line.
func (r Reference) String() string {
	s := r.Title
	if r.Author != "" {
		s += ", " + r.Author
	}
	if r.Edition != "" {
		s += " (" + r.Edition + ")"
	}
	return s
}

// TermSummary is the shape returned by the terms listing.
type TermSummary struct {
	Term         string `json:"term"`
	SubjectCount int    `json:"subjectCount"`
}

// SubjectSummary is the shape returned by the subjects listing.
type SubjectSummary struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// UnitSummary is the shape returned by the units listing.
type UnitSummary struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// UnitTopics is the shape returned by the topics listing.
type UnitTopics struct {
	Title  string   `json:"title"`
	Topics []string `json:"topics"`
}
