package grammar

import (
	"fmt"
	"strings"

	"oss.terrastruct.com/d2/d2ast"
	"oss.terrastruct.com/d2/d2parser"
)

// D2 parses source in-process with the d2 parser and normalizes its AST.
type D2 struct {
	path string
}

// NewD2 returns a backend backed by oss.terrastruct.com/d2/d2parser.
func NewD2() *D2 {
	return &D2{path: "index.d2"}
}

// Parse implements Backend.
func (b *D2) Parse(source string) (*Tree, error) {
	m, err := d2parser.Parse(b.path, strings.NewReader(source), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
	}
	if m == nil {
		return nil, ErrSyntax
	}

	c := &d2Converter{source: source, idx: newLineIndex(source)}
	root := c.idx.node(KindDocument, "source_file", 0, len(source))
	root.Children = c.mapNodes(m)
	return &Tree{Source: source, Root: root}, nil
}

type d2Converter struct {
	source string
	idx    lineIndex
}

func (c *d2Converter) span(kind Kind, typ string, r d2ast.Range) *Node {
	start, end := trimSpan(c.source, r.Start.Byte, r.End.Byte)
	return c.idx.node(kind, typ, start, end)
}

func (c *d2Converter) mapNodes(m *d2ast.Map) []*Node {
	var nodes []*Node
	for _, box := range m.Nodes {
		switch {
		case box.Comment != nil:
			nodes = append(nodes, c.span(KindComment, "comment", box.Comment.Range))
		case box.BlockComment != nil:
			nodes = append(nodes, c.span(KindComment, "block_comment", box.BlockComment.Range))
		case box.MapKey != nil:
			nodes = append(nodes, c.mapKey(box.MapKey))
		}
	}
	return nodes
}

func (c *d2Converter) mapKey(k *d2ast.Key) *Node {
	n := c.span(KindDeclaration, "declaration", k.Range)
	if k.Key != nil && len(k.Key.Path) > 0 {
		n.Children = append(n.Children, c.span(KindIdentifier, "key", k.Key.Range))
	}

	if len(k.Edges) > 0 {
		n.Kind = KindConnection
		n.Type = "connection"
		lastEnd := -1
		for _, e := range k.Edges {
			// chained edges share their middle endpoint
			if e.Src != nil && e.Src.Range.Start.Byte >= lastEnd {
				n.Children = append(n.Children, c.span(KindIdentifier, "key", e.Src.Range))
			}
			if e.Src != nil && e.Dst != nil {
				start, end := trimSpan(c.source, e.Src.Range.End.Byte, e.Dst.Range.Start.Byte)
				n.Children = append(n.Children, c.idx.node(KindArrow, "arrow", start, end))
			}
			if e.Dst != nil {
				n.Children = append(n.Children, c.span(KindIdentifier, "key", e.Dst.Range))
				lastEnd = e.Dst.Range.End.Byte
			}
		}
	}

	if p := k.Primary.Unbox(); p != nil {
		n.Children = append(n.Children, c.value(p))
	}
	if k.Value.Map != nil {
		block := c.span(KindBlock, "block", k.Value.Map.Range)
		block.Children = c.mapNodes(k.Value.Map)
		n.Children = append(n.Children, block)
	} else if v := k.Value.Unbox(); v != nil {
		n.Children = append(n.Children, c.value(v))
	}
	return n
}

func (c *d2Converter) value(v d2ast.Value) *Node {
	typ := "value"
	var quote byte
	switch v.(type) {
	case *d2ast.DoubleQuotedString:
		typ, quote = "double_quoted_string", '"'
	case *d2ast.SingleQuotedString:
		typ, quote = "single_quoted_string", '\''
	case *d2ast.UnquotedString:
		typ = "unquoted_string"
	case *d2ast.BlockString:
		typ = "block_string"
	}
	r := v.GetRange()
	start, end := trimSpan(c.source, r.Start.Byte, r.End.Byte)
	if quote != 0 {
		start, end = widenQuotes(c.source, start, end, quote)
	}
	return c.idx.node(KindValue, typ, start, end)
}

// widenQuotes extends [start, end) over the surrounding quotes when the
// parser's range only covers the string contents.
func widenQuotes(source string, start, end int, quote byte) (int, int) {
	if start < end && source[start] == quote && source[end-1] == quote && end-start >= 2 {
		return start, end
	}
	if start > 0 && end < len(source) && source[start-1] == quote && source[end] == quote {
		return start - 1, end + 1
	}
	return start, end
}
