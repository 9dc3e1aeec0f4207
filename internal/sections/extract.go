// Package sections splits raw generated text into named sections using a
// marker schema and normalizes each section's ad-hoc markup into a small set
// of structured patterns.
package sections

import "strings"

// Marker declares one named section: its start token and an optional end
// token. An empty End means the section runs to end of text.
type Marker struct {
	Name  string
	Start string
	End   string
}

// Schema is an ordered list of markers. Order breaks ties when marker text
// occurs out of order or more than once in a document.
type Schema []Marker

// Names returns the section names in schema order.
func (s Schema) Names() []string {
	out := make([]string, len(s))
	for i, m := range s {
		out[i] = m.Name
	}
	return out
}

// TopicSchema splits a synthesized topic document.
var TopicSchema = Schema{
	{Name: "overview", Start: "[OVERVIEW]", End: "[EXPLANATION]"},
	{Name: "explanation", Start: "[EXPLANATION]", End: "[FORMULAS]"},
	{Name: "formulas", Start: "[FORMULAS]", End: "[EXAMPLES]"},
	{Name: "examples", Start: "[EXAMPLES]", End: "[SUMMARY]"},
	{Name: "summary", Start: "[SUMMARY]"},
}

// AnswerSchema splits an assistant answer.
var AnswerSchema = Schema{
	{Name: "answer", Start: "[ANSWER]", End: "[CITATIONS]"},
	{Name: "citations", Start: "[CITATIONS]", End: "[RESOURCES]"},
	{Name: "resources", Start: "[RESOURCES]"},
}

// Extract splits raw into named sections. Every marker is matched against
// the original text independently, first occurrence wins. A missing start
// token yields an empty section. A section never extends past another
// marker's declared start token, so a missing end token cannot swallow a
// later section's content.
func Extract(raw string, schema Schema) map[string]string {
	out := make(map[string]string, len(schema))

	for _, m := range schema {
		i := strings.Index(raw, m.Start)
		if i < 0 {
			out[m.Name] = ""
			continue
		}
		begin := i + len(m.Start)

		end := len(raw)
		if m.End != "" {
			if j := strings.Index(raw[begin:], m.End); j >= 0 {
				end = begin + j
			}
		}
		for _, other := range schema {
			if other.Start == m.Start {
				continue
			}
			if k := strings.Index(raw[begin:], other.Start); k >= 0 && begin+k < end {
				end = begin + k
			}
		}

		out[m.Name] = raw[begin:end]
	}

	return out
}
