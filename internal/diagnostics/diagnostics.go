// Package diagnostics anchors compiler and formatter error text to ranges
// of the document being edited.
package diagnostics

import (
	"regexp"
	"strconv"
	"strings"
)

// Source names the producer of the diagnostics in editor UIs.
const Source = "d2frag"

// Severity of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a message attached to the document byte range [From, To).
type Diagnostic struct {
	From     int      `json:"from"`
	To       int      `json:"to"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

var (
	// prefix:LINE:COL: MESSAGE
	structuredPattern = regexp.MustCompile(`^(.*?):(\d+):(\d+):\s*(.*)$`)
	// ... line LINE:COL ...
	embeddedPattern = regexp.MustCompile(`(?i)\bline\s+(\d+):(\d+)`)
)

// Map converts error text into diagnostics on doc. Lines naming a position
// produce one diagnostic each; the first unrecognized line becomes a single
// diagnostic on line 1 when nothing else has matched before it.
func Map(errorText string, doc Document) []Diagnostic {
	var out []Diagnostic
	fellBack := false

	for _, raw := range strings.Split(errorText, "\n") {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}

		if d, ok := structured(text, doc); ok {
			out = append(out, d)
			continue
		}
		if d, ok := embedded(text, doc); ok {
			out = append(out, d)
			continue
		}
		if len(out) == 0 && !fellBack {
			fellBack = true
			line := doc.Line(1)
			out = append(out, Diagnostic{
				From:     line.From,
				To:       line.To,
				Severity: SeverityError,
				Message:  text,
			})
		}
	}
	return out
}

func structured(text string, doc Document) (Diagnostic, bool) {
	m := structuredPattern.FindStringSubmatch(text)
	if m == nil {
		return Diagnostic{}, false
	}
	n, ok := lineNumber(m[2], doc)
	if !ok {
		return Diagnostic{}, false
	}
	col, err := strconv.Atoi(m[3])
	if err != nil {
		return Diagnostic{}, false
	}

	line := doc.Line(n)
	col = clamp(col, 1, line.To-line.From+1)
	from := line.From + col - 1
	msg := strings.TrimSpace(m[4])
	if msg == "" {
		msg = text
	}
	return Diagnostic{From: from, To: line.To, Severity: SeverityError, Message: msg}, true
}

func embedded(text string, doc Document) (Diagnostic, bool) {
	m := embeddedPattern.FindStringSubmatch(text)
	if m == nil {
		return Diagnostic{}, false
	}
	n, ok := lineNumber(m[1], doc)
	if !ok {
		return Diagnostic{}, false
	}
	line := doc.Line(n)
	return Diagnostic{From: line.From, To: line.To, Severity: SeverityError, Message: text}, true
}

// lineNumber parses a 1-based line number that must exist in doc.
func lineNumber(s string, doc Document) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > doc.Lines() {
		return 0, false
	}
	return n, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
