package sections

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	boldRe    = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	varItemRe = regexp.MustCompile(`^-\s+([A-Za-z][A-Za-z0-9_()^]*)\s*:\s*(.+)$`)
	urlRe     = regexp.MustCompile(`https?://[^\s<>"]+`)
)

var wrapperPrefixes = []string{
	"<formula>", "<vars>", "</vars>", "<var ",
	"<list>", "</list>", "<item>", "<link>", "<p>",
}

// Normalize rewrites one extracted section into structured markup. It is
// idempotent: every step recognizes its own output and leaves it alone, so
// Normalize(Normalize(x)) == Normalize(x).
//
// Steps, in order: unicode NFC + line ending cleanup, emphasis-wrapped
// formulas, variable lists following a formula, dash lists, bare links,
// paragraphs.
func Normalize(s string) string {
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")

	lines := strings.Split(strings.TrimSpace(s), "\n")
	lines = rewriteFormulas(lines)
	lines = rewriteVariableLists(lines)
	lines = rewriteDashLists(lines)
	lines = rewriteLinks(lines)
	lines = wrapParagraphs(lines)

	return strings.Join(lines, "\n")
}

func isWrapped(line string) bool {
	t := strings.TrimSpace(line)
	for _, p := range wrapperPrefixes {
		if strings.HasPrefix(t, p) {
			return true
		}
	}
	return false
}

// hasArithmetic reports whether s looks like a formula rather than plain
// emphasized prose. A hyphen only counts when spaced as a binary operator,
// so hyphenated words stay prose.
func hasArithmetic(s string) bool {
	if strings.ContainsAny(s, "=<>+^*/×÷≤≥√∑∫") {
		return true
	}
	return strings.Contains(s, " - ")
}

// rewriteFormulas lifts **bold** spans containing arithmetic onto their own
// block-level formula lines. Bold spans without arithmetic are left alone.
func rewriteFormulas(lines []string) []string {
	var out []string
	for _, line := range lines {
		if isWrapped(line) || !strings.Contains(line, "**") {
			out = append(out, line)
			continue
		}

		rest := line
		var buf strings.Builder
		rewrote := false
		for {
			loc := boldRe.FindStringSubmatchIndex(rest)
			if loc == nil {
				break
			}
			inner := rest[loc[2]:loc[3]]
			if !hasArithmetic(inner) {
				buf.WriteString(rest[:loc[1]])
				rest = rest[loc[1]:]
				continue
			}
			buf.WriteString(rest[:loc[0]])
			if t := strings.TrimSpace(buf.String()); t != "" {
				out = append(out, t)
			}
			buf.Reset()
			out = append(out, "<formula>"+strings.TrimSpace(inner)+"</formula>")
			rewrote = true
			rest = rest[loc[1]:]
		}
		buf.WriteString(rest)

		if !rewrote {
			out = append(out, line)
			continue
		}
		if t := strings.TrimSpace(buf.String()); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// rewriteVariableLists turns a dash list of label: description items that
// immediately follows a formula line into a variable list block. A run with
// any non-conforming item is left for the plain list step.
func rewriteVariableLists(lines []string) []string {
	var out []string
	for i := 0; i < len(lines); i++ {
		out = append(out, lines[i])
		if !strings.HasPrefix(strings.TrimSpace(lines[i]), "<formula>") {
			continue
		}

		j := i + 1
		var items [][2]string
		conforms := true
		for j < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[j]), "- ") {
			m := varItemRe.FindStringSubmatch(strings.TrimSpace(lines[j]))
			if m == nil {
				conforms = false
				break
			}
			items = append(items, [2]string{m[1], m[2]})
			j++
		}
		if !conforms || len(items) == 0 {
			continue
		}

		out = append(out, "<vars>")
		for _, it := range items {
			out = append(out, `<var name="`+it[0]+`">`+it[1]+"</var>")
		}
		out = append(out, "</vars>")
		i = j - 1
	}
	return out
}

// rewriteDashLists groups remaining dash lines into list blocks.
func rewriteDashLists(lines []string) []string {
	var out []string
	for i := 0; i < len(lines); i++ {
		t := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(t, "- ") {
			out = append(out, lines[i])
			continue
		}

		out = append(out, "<list>")
		for i < len(lines) {
			t = strings.TrimSpace(lines[i])
			if !strings.HasPrefix(t, "- ") {
				break
			}
			out = append(out, "<item>"+strings.TrimSpace(strings.TrimPrefix(t, "- "))+"</item>")
			i++
		}
		out = append(out, "</list>")
		i--
	}
	return out
}

// rewriteLinks wraps bare URLs. A URL directly preceded by a link opening
// tag is already wrapped and is left untouched.
func rewriteLinks(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		if !strings.Contains(line, "http") {
			out[i] = line
			continue
		}
		out[i] = linkify(line)
	}
	return out
}

func linkify(line string) string {
	var b strings.Builder
	last := 0
	for _, loc := range urlRe.FindAllStringIndex(line, -1) {
		start, end := loc[0], loc[1]
		if strings.HasSuffix(line[:start], "<link>") {
			continue
		}
		url := strings.TrimRight(line[start:end], ".,;:")
		end = start + len(url)

		b.WriteString(line[last:start])
		b.WriteString("<link>")
		b.WriteString(url)
		b.WriteString("</link>")
		last = end
	}
	b.WriteString(line[last:])
	return b.String()
}

// wrapParagraphs joins blank-line-separated runs of remaining plain lines
// into paragraph blocks. Wrapper lines pass through; blank lines are
// dropped once paragraph boundaries are explicit.
func wrapParagraphs(lines []string) []string {
	var out []string
	var run []string

	flush := func() {
		if len(run) > 0 {
			out = append(out, "<p>"+strings.Join(run, " ")+"</p>")
			run = nil
		}
	}

	for _, line := range lines {
		t := strings.TrimSpace(line)
		switch {
		case t == "":
			flush()
		case isWrapped(line):
			flush()
			out = append(out, t)
		default:
			run = append(run, t)
		}
	}
	flush()

	return out
}
