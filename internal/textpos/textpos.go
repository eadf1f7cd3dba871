// Package textpos converts between UTF-8 byte offsets and LSP positions,
// whose character counts are UTF-16 code units.
package textpos

import (
	"strings"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// Offset returns the byte offset of pos in doc. Lines past the end clamp to
// the last line and characters past the end of a line clamp to its end.
func Offset(doc string, pos protocol.Position) int {
	lines := strings.Split(doc, "\n")
	if int(pos.Line) >= len(lines) {
		pos.Line = uint32(len(lines) - 1)
	}

	offset := 0
	for i := uint32(0); i < pos.Line; i++ {
		offset += len(lines[i]) + 1
	}

	var units uint32
	for _, r := range lines[pos.Line] {
		n := utf16Len(r)
		if units+n > pos.Character {
			break
		}
		units += n
		offset += utf8.RuneLen(r)
	}
	return offset
}

// Position returns the LSP position of a byte offset in doc, clamped to the
// document.
func Position(doc string, offset int) protocol.Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(doc) {
		offset = len(doc)
	}
	prefix := doc[:offset]
	line := strings.Count(prefix, "\n")
	if nl := strings.LastIndexByte(prefix, '\n'); nl >= 0 {
		prefix = prefix[nl+1:]
	}

	var units uint32
	for _, r := range prefix {
		units += utf16Len(r)
	}
	return protocol.Position{Line: uint32(line), Character: units}
}

// Range returns the LSP range covering bytes [from, to) of doc.
func Range(doc string, from, to int) protocol.Range {
	return protocol.Range{Start: Position(doc, from), End: Position(doc, to)}
}

// Whole returns the range spanning all of doc.
func Whole(doc string) protocol.Range {
	return Range(doc, 0, len(doc))
}

// Apply applies one content change to doc. A change without a range
// replaces the whole document.
func Apply(doc string, change any) string {
	switch c := change.(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		return c.Text
	case protocol.TextDocumentContentChangeEvent:
		if c.Range == nil {
			return c.Text
		}
		start := Offset(doc, c.Range.Start)
		end := Offset(doc, c.Range.End)
		if end < start {
			start, end = end, start
		}
		return doc[:start] + c.Text + doc[end:]
	}
	return doc
}

func utf16Len(r rune) uint32 {
	if r > 0xFFFF {
		return 2
	}
	return 1
}
