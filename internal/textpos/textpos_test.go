package textpos_test

import (
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/veschin/d2-web-extension-sub000/internal/textpos"
)

func pos(line, char uint32) protocol.Position {
	return protocol.Position{Line: line, Character: char}
}

func TestOffsetAndPosition(t *testing.T) {
	doc := "a -> b\nü: \"😀\" x\nend"

	tests := []struct {
		name   string
		pos    protocol.Position
		offset int
	}{
		{"start", pos(0, 0), 0},
		{"first line", pos(0, 4), 4},
		{"second line", pos(1, 0), 7},
		{"after two-byte rune", pos(1, 1), 9},
		{"after surrogate pair", pos(1, 6), 16},
		{"last line", pos(2, 3), 23},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := textpos.Offset(doc, tt.pos); got != tt.offset {
				t.Errorf("Offset(%v) = %d, want %d", tt.pos, got, tt.offset)
			}
			if got := textpos.Position(doc, tt.offset); got != tt.pos {
				t.Errorf("Position(%d) = %v, want %v", tt.offset, got, tt.pos)
			}
		})
	}
}

func TestOffsetClamps(t *testing.T) {
	doc := "ab\ncd"
	if got := textpos.Offset(doc, pos(9, 0)); got != 3 {
		t.Errorf("line past end: got %d, want 3", got)
	}
	if got := textpos.Offset(doc, pos(0, 40)); got != 2 {
		t.Errorf("character past end: got %d, want 2", got)
	}
	if got := textpos.Position(doc, 99); got != pos(1, 2) {
		t.Errorf("offset past end: got %v", got)
	}
}

func TestApply(t *testing.T) {
	doc := "a -> b\nc"

	incremental := protocol.TextDocumentContentChangeEvent{
		Range: &protocol.Range{Start: pos(0, 5), End: pos(0, 6)},
		Text:  "server",
	}
	if got := textpos.Apply(doc, incremental); got != "a -> server\nc" {
		t.Errorf("incremental edit = %q", got)
	}

	whole := protocol.TextDocumentContentChangeEventWhole{Text: "x"}
	if got := textpos.Apply(doc, whole); got != "x" {
		t.Errorf("whole edit = %q", got)
	}

	if got := textpos.Apply(doc, 42); got != doc {
		t.Errorf("unknown change type altered the document: %q", got)
	}
}

func TestWhole(t *testing.T) {
	r := textpos.Whole("one\ntwo")
	if r.Start != pos(0, 0) || r.End != pos(1, 3) {
		t.Errorf("Whole = %v", r)
	}
}
