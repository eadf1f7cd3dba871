// Package grammar defines the optional grammar backend used by the
// structural extraction strategy: a normalized syntax tree and the backends
// able to produce it.
package grammar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrSyntax is returned when the source does not parse cleanly.
	ErrSyntax = errors.New("grammar: syntax error")
	// ErrNoLanguage is returned when a tree-sitter backend has no grammar.
	ErrNoLanguage = errors.New("grammar: no tree-sitter language loaded")
	// ErrClosed is returned by a backend used after Close.
	ErrClosed = errors.New("grammar: backend closed")
)

// Kind is the normalized role of a syntax node.
type Kind int

const (
	KindOther Kind = iota
	KindDocument
	KindComment
	KindDeclaration
	KindConnection
	KindIdentifier
	KindArrow
	KindValue
	KindBlock
)

var kindNames = map[Kind]string{
	KindOther:       "other",
	KindDocument:    "document",
	KindComment:     "comment",
	KindDeclaration: "declaration",
	KindConnection:  "connection",
	KindIdentifier:  "identifier",
	KindArrow:       "arrow",
	KindValue:       "value",
	KindBlock:       "block",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return KindOther, fmt.Errorf("grammar: unknown node kind %q", name)
}

// Node is one node of a parsed tree. Byte offsets index Tree.Source; lines
// are 0-based and inclusive.
type Node struct {
	Kind      Kind
	Type      string
	StartByte int
	EndByte   int
	StartLine int
	EndLine   int
	Children  []*Node
}

// Tree is a parsed document.
type Tree struct {
	Source string
	Root   *Node
}

// Text returns the exact source covered by n.
func (t *Tree) Text(n *Node) string {
	start, end := n.StartByte, n.EndByte
	if start < 0 {
		start = 0
	}
	if end > len(t.Source) {
		end = len(t.Source)
	}
	if start >= end {
		return ""
	}
	return t.Source[start:end]
}

// Child returns the first direct child of the given kind.
func (n *Node) Child(kind Kind) *Node {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// Header returns the identifier and arrow children that precede the node's
// value or block.
func (n *Node) Header() []*Node {
	var header []*Node
	for _, c := range n.Children {
		switch c.Kind {
		case KindValue, KindBlock:
			return header
		case KindIdentifier, KindArrow:
			header = append(header, c)
		}
	}
	return header
}

// Backend produces a syntax tree from source text.
type Backend interface {
	Parse(source string) (*Tree, error)
}

// lineIndex maps byte offsets to 0-based line numbers.
type lineIndex []int

func newLineIndex(source string) lineIndex {
	idx := lineIndex{0}
	for i := 0; i < len(source); i++ {
		if source[i] == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (idx lineIndex) line(offset int) int {
	return sort.Search(len(idx), func(i int) bool { return idx[i] > offset }) - 1
}

// node builds a Node spanning [start, end). The end line is the line of the
// last covered byte, so a span ending right after a newline stays on its line.
func (idx lineIndex) node(kind Kind, typ string, start, end int) *Node {
	last := end - 1
	if last < start {
		last = start
	}
	return &Node{
		Kind:      kind,
		Type:      typ,
		StartByte: start,
		EndByte:   end,
		StartLine: idx.line(start),
		EndLine:   idx.line(last),
	}
}

// trimSpan shrinks [start, end) so it neither starts nor ends with whitespace.
func trimSpan(source string, start, end int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end > len(source) {
		end = len(source)
	}
	for start < end && strings.IndexByte(" \t\r\n", source[start]) >= 0 {
		start++
	}
	for end > start && strings.IndexByte(" \t\r\n", source[end-1]) >= 0 {
		end--
	}
	return start, end
}
