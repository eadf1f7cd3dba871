package blocks

import (
	"strings"

	"github.com/veschin/d2-web-extension-sub000/internal/grammar"
)

// Structural is the grammar-driven strategy. Names, labels and children come
// from the syntax tree; code slices come from the source lines the nodes span.
type Structural struct {
	Backend grammar.Backend
}

// Extract implements Extractor. Backend errors and panics are returned as
// errors so the caller can fall back to the text strategy.
func (s Structural) Extract(source string) (blocks []Block, err error) {
	if source == "" {
		return nil, nil
	}
	defer recoverTo(&err)

	tree, err := s.Backend.Parse(source)
	if err != nil {
		return nil, err
	}
	return structuralBlocks(tree, tree.Root.Children, lines(source), 0), nil
}

// structuralBlocks converts nodes whose text is ls, ls[0] being absolute line base.
func structuralBlocks(tree *grammar.Tree, nodes []*grammar.Node, ls []string, base int) []Block {
	var out []Block
	for _, n := range nodes {
		if n.Kind != grammar.KindDeclaration && n.Kind != grammar.KindConnection {
			continue
		}
		name := nodeName(tree, n)
		if name == "" {
			continue
		}

		code := sliceLines(ls, n.StartLine-base, n.EndLine-base)
		b := Block{
			Name:      name,
			Code:      code,
			StartLine: n.StartLine,
			EndLine:   n.EndLine,
			Label:     nodeLabel(tree, n),
		}
		if body := n.Child(grammar.KindBlock); body != nil {
			if inner, offset, ok := interior(code); ok {
				children := structuralBlocks(tree, body.Children, lines(inner), n.StartLine+offset)
				b.Children = nonEmpty(children)
			}
		}
		out = append(out, b)
	}
	return FilterDirectives(out)
}

// nodeName joins the node's header: the key of a declaration, the full
// endpoint chain of a connection.
func nodeName(tree *grammar.Tree, n *grammar.Node) string {
	header := n.Header()
	if len(header) == 0 {
		return ""
	}
	first, last := header[0], header[len(header)-1]
	if n.Kind != grammar.KindConnection {
		last = first
	}
	if first.StartByte >= last.EndByte {
		return ""
	}
	return strings.TrimSpace(tree.Source[first.StartByte:last.EndByte])
}

// nodeLabel reads a quoted value given directly to the node, or else the
// value of a `label` declaration among the body's direct children.
func nodeLabel(tree *grammar.Tree, n *grammar.Node) string {
	if v := n.Child(grammar.KindValue); v != nil {
		if text := strings.TrimSpace(tree.Text(v)); isQuoted(text) {
			return cleanLabel(text)
		}
	}

	body := n.Child(grammar.KindBlock)
	if body == nil {
		return ""
	}
	for _, c := range body.Children {
		if c.Kind != grammar.KindDeclaration || nodeName(tree, c) != "label" {
			continue
		}
		if v := c.Child(grammar.KindValue); v != nil {
			if text := strings.TrimSpace(tree.Text(v)); text != "" {
				return cleanLabel(text)
			}
		}
	}
	return ""
}
