// Package nav holds the drill-down navigation state machine: a Selection
// over the term > subject > unit > topic hierarchy and the view derived
// from it.
package nav

// View is the screen implied by the current selection. It is always
// computed from Selection, never stored on its own.
type View int

const (
	ViewSemesters View = iota
	ViewSubjects
	ViewUnits
	ViewTopics
	ViewContent
)

func (v View) String() string {
	switch v {
	case ViewSemesters:
		return "SEMESTERS"
	case ViewSubjects:
		return "SUBJECTS"
	case ViewUnits:
		return "UNITS"
	case ViewTopics:
		return "TOPICS"
	case ViewContent:
		return "CONTENT"
	default:
		return "UNKNOWN"
	}
}

// SubjectRef identifies a selected subject.
type SubjectRef struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// UnitRef identifies a selected unit.
type UnitRef struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
}

// Selection is the single source of truth for navigation. A field may be
// populated only if every field above it is populated; clearing a field
// clears everything below it.
type Selection struct {
	Term       string      `json:"term,omitempty"`
	Subject    *SubjectRef `json:"subject,omitempty"`
	Unit       *UnitRef    `json:"unit,omitempty"`
	TopicIndex *int        `json:"topicIndex,omitempty"`
}

// View derives the active view from the deepest populated field.
func (s Selection) View() View {
	switch {
	case s.TopicIndex != nil:
		return ViewContent
	case s.Unit != nil:
		return ViewTopics
	case s.Subject != nil:
		return ViewUnits
	case s.Term != "":
		return ViewSubjects
	default:
		return ViewSemesters
	}
}

// Valid reports whether the hierarchy invariant holds.
func (s Selection) Valid() bool {
	if s.Subject != nil && s.Term == "" {
		return false
	}
	if s.Unit != nil && s.Subject == nil {
		return false
	}
	if s.TopicIndex != nil && s.Unit == nil {
		return false
	}
	return true
}

// Equal compares two selections field by field. Used to detect stale fetch
// responses.
func (s Selection) Equal(o Selection) bool {
	if s.Term != o.Term {
		return false
	}
	if (s.Subject == nil) != (o.Subject == nil) || (s.Subject != nil && *s.Subject != *o.Subject) {
		return false
	}
	if (s.Unit == nil) != (o.Unit == nil) || (s.Unit != nil && *s.Unit != *o.Unit) {
		return false
	}
	if (s.TopicIndex == nil) != (o.TopicIndex == nil) || (s.TopicIndex != nil && *s.TopicIndex != *o.TopicIndex) {
		return false
	}
	return true
}
