// Package blocks decomposes diagram source into a tree of named, line-ranged
// blocks. Two strategies produce the same result on well-formed input: a
// structural one driven by a grammar backend and a text-only fallback.
package blocks

import (
	"fmt"
	"strings"

	"github.com/veschin/d2-web-extension-sub000/internal/grammar"
	"github.com/veschin/d2-web-extension-sub000/internal/scan"
)

// Block is one shape, container or connection statement. Lines are 0-based
// and inclusive; Code is exactly those lines of the text the block was
// extracted from.
type Block struct {
	Name      string  `json:"name"`
	Code      string  `json:"code"`
	StartLine int     `json:"startLine"`
	EndLine   int     `json:"endLine"`
	Label     string  `json:"label,omitempty"`
	Children  []Block `json:"children,omitempty"`
}

// Extractor is a block extraction strategy.
type Extractor interface {
	Extract(source string) ([]Block, error)
}

// Extract returns the top-level blocks of source. With a nil backend, or when
// the backend fails in any way, the text strategy answers.
func Extract(source string, backend grammar.Backend) []Block {
	if backend != nil {
		if blocks, err := (Structural{Backend: backend}).Extract(source); err == nil {
			return blocks
		}
	}
	blocks, _ := Text{}.Extract(source)
	return blocks
}

// Walk calls fn for every block in depth-first order, parents first.
func Walk(blocks []Block, fn func(b Block, depth int)) {
	var walk func(bs []Block, depth int)
	walk = func(bs []Block, depth int) {
		for _, b := range bs {
			fn(b, depth)
			walk(b.Children, depth+1)
		}
	}
	walk(blocks, 0)
}

// lines splits text on '\n' keeping any '\r', so joining them back with '\n'
// reproduces the input byte for byte.
func lines(text string) []string {
	return strings.Split(text, "\n")
}

func sliceLines(ls []string, start, end int) string {
	if start < 0 {
		start = 0
	}
	if end >= len(ls) {
		end = len(ls) - 1
	}
	if start > end {
		return ""
	}
	return strings.Join(ls[start:end+1], "\n")
}

// SliceLines returns lines start..end (inclusive) of source.
func SliceLines(source string, start, end int) string {
	return sliceLines(lines(source), start, end)
}

// interior returns the text between a block's outer brace pair with leading
// blank lines removed, and the number of lines of code that precede it. An
// unterminated block's interior runs to the end of code.
func interior(code string) (inner string, offset int, ok bool) {
	open, close, matched := scan.MatchingBraces(code)
	if open < 0 {
		return "", 0, false
	}
	if matched {
		inner = code[open+1 : close]
	} else {
		inner = code[open+1:]
	}
	offset = strings.Count(code[:open+1], "\n")

	ws := len(inner) - len(strings.TrimLeft(inner, " \t\r\n"))
	if nl := strings.LastIndexByte(inner[:ws], '\n'); nl >= 0 {
		offset += strings.Count(inner[:nl+1], "\n")
		inner = inner[nl+1:]
	}
	return inner, offset, true
}

// rebase shifts every block in the tree by delta lines.
func rebase(blocks []Block, delta int) {
	for i := range blocks {
		blocks[i].StartLine += delta
		blocks[i].EndLine += delta
		rebase(blocks[i].Children, delta)
	}
}

// nonEmpty normalizes an empty child list to nil so it is omitted entirely.
func nonEmpty(blocks []Block) []Block {
	if len(blocks) == 0 {
		return nil
	}
	return blocks
}

// recoverTo turns a panic raised by a backend into an error.
func recoverTo(err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("blocks: grammar backend panicked: %v", r)
	}
}
