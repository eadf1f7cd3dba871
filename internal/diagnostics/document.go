package diagnostics

import (
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/veschin/d2-web-extension-sub000/internal/textpos"
)

// Line is the byte range of one document line, newline excluded.
type Line struct {
	From int
	To   int
}

// Document is the editing buffer diagnostics are anchored to. Lines are
// numbered from 1.
type Document interface {
	Line(n int) Line
	Lines() int
}

// TextDocument is a Document over an in-memory string.
type TextDocument struct {
	text   string
	starts []int
}

// NewTextDocument indexes the line starts of text.
func NewTextDocument(text string) *TextDocument {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &TextDocument{text: text, starts: starts}
}

// Text returns the document content.
func (d *TextDocument) Text() string { return d.text }

// Lines returns the number of lines; an empty document has one empty line.
func (d *TextDocument) Lines() int { return len(d.starts) }

// Line returns line n, clamped to the first or last line.
func (d *TextDocument) Line(n int) Line {
	if n < 1 {
		n = 1
	}
	if n > len(d.starts) {
		n = len(d.starts)
	}
	from := d.starts[n-1]
	to := len(d.text)
	if n < len(d.starts) {
		to = d.starts[n] - 1
	}
	if to > from && d.text[to-1] == '\r' {
		to--
	}
	return Line{From: from, To: to}
}

// ToProtocol converts diagnostics to LSP diagnostics positioned in doc.
func ToProtocol(diags []Diagnostic, doc *TextDocument) []protocol.Diagnostic {
	out := make([]protocol.Diagnostic, 0, len(diags))
	for _, d := range diags {
		severity := protocol.DiagnosticSeverityError
		if d.Severity == SeverityWarning {
			severity = protocol.DiagnosticSeverityWarning
		}
		source := Source
		out = append(out, protocol.Diagnostic{
			Range:    textpos.Range(doc.text, d.From, d.To),
			Severity: &severity,
			Source:   &source,
			Message:  strings.TrimSpace(d.Message),
		})
	}
	return out
}
