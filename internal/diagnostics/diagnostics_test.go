package diagnostics_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/veschin/d2-web-extension-sub000/internal/diagnostics"
)

func TestStructured(t *testing.T) {
	doc := diagnostics.NewTextDocument("a -> b\nclient: {\n}")
	got := diagnostics.Map("index.d2:2:9: unexpected map", doc)

	require.Len(t, got, 1)
	line := doc.Line(2)
	assert.Equal(t, diagnostics.Diagnostic{
		From:     line.From + 8,
		To:       line.To,
		Severity: diagnostics.SeverityError,
		Message:  "unexpected map",
	}, got[0])
}

func TestClamping(t *testing.T) {
	doc := diagnostics.NewTextDocument("ab\ncd")
	got := diagnostics.Map("<stdin>:1:99: overflow", doc)

	require.Len(t, got, 1)
	assert.Equal(t, doc.Line(1).To, got[0].From)
	assert.Equal(t, doc.Line(1).To, got[0].To)
	assert.Equal(t, "overflow", got[0].Message)
}

func TestClampingHugeColumn(t *testing.T) {
	doc := diagnostics.NewTextDocument("ab\ncd")
	got := diagnostics.Map("<stdin>:2:9223372036854775807: overflow", doc)

	require.Len(t, got, 1)
	assert.Equal(t, doc.Line(2).To, got[0].From)
	assert.Equal(t, doc.Line(2).To, got[0].To)
}

func TestEmptyMessageUsesWholeLine(t *testing.T) {
	doc := diagnostics.NewTextDocument("x")
	got := diagnostics.Map("  err.d2:1:1:  ", doc)
	require.Len(t, got, 1)
	assert.Equal(t, "err.d2:1:1:", got[0].Message)
}

func TestEmbedded(t *testing.T) {
	doc := diagnostics.NewTextDocument("one\ntwo\nthree")
	got := diagnostics.Map("compile failed at Line 3:2 near three", doc)

	require.Len(t, got, 1)
	assert.Equal(t, doc.Line(3).From, got[0].From)
	assert.Equal(t, doc.Line(3).To, got[0].To)
	assert.Equal(t, "compile failed at Line 3:2 near three", got[0].Message)
}

func TestOutOfRangeFallsThrough(t *testing.T) {
	doc := diagnostics.NewTextDocument("one")
	got := diagnostics.Map("x.d2:7:1: far away", doc)

	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].From)
	assert.Equal(t, 3, got[0].To)
	assert.Equal(t, "x.d2:7:1: far away", got[0].Message)
}

func TestSingleFallback(t *testing.T) {
	doc := diagnostics.NewTextDocument("a\nb")
	got := diagnostics.Map("something broke\nand then more\n", doc)

	require.Len(t, got, 1)
	assert.Equal(t, "something broke", got[0].Message)
	assert.Equal(t, doc.Line(1), diagnostics.Line{From: got[0].From, To: got[0].To})
}

func TestNoFallbackAfterMatch(t *testing.T) {
	doc := diagnostics.NewTextDocument("a\nb")
	got := diagnostics.Map("f.d2:2:1: bad\nunrecognized\nf.d2:1:1: worse", doc)

	require.Len(t, got, 2)
	assert.Equal(t, "bad", got[0].Message)
	assert.Equal(t, "worse", got[1].Message)
}

func TestEmptyErrorText(t *testing.T) {
	doc := diagnostics.NewTextDocument("a")
	assert.Empty(t, diagnostics.Map("", doc))
	assert.Empty(t, diagnostics.Map("\n  \n", doc))
}

func TestTextDocumentLines(t *testing.T) {
	doc := diagnostics.NewTextDocument("ab\r\ncd\n")
	assert.Equal(t, 3, doc.Lines())
	assert.Equal(t, diagnostics.Line{From: 0, To: 2}, doc.Line(1))
	assert.Equal(t, diagnostics.Line{From: 4, To: 6}, doc.Line(2))
	assert.Equal(t, diagnostics.Line{From: 7, To: 7}, doc.Line(3))
}

func TestToProtocol(t *testing.T) {
	doc := diagnostics.NewTextDocument("a -> b\nc: {")
	diags := diagnostics.Map("index.d2:2:4: unterminated map", doc)

	got := diagnostics.ToProtocol(diags, doc)
	require.Len(t, got, 1)
	assert.Equal(t, protocol.Position{Line: 1, Character: 3}, got[0].Range.Start)
	assert.Equal(t, protocol.Position{Line: 1, Character: 4}, got[0].Range.End)
	require.NotNil(t, got[0].Severity)
	assert.Equal(t, protocol.DiagnosticSeverityError, *got[0].Severity)
	assert.Equal(t, "unterminated map", got[0].Message)
}
