// Package analyzer derives structural metadata from a single block's code:
// how many shapes and connections it holds, how deep it nests and what kind
// of diagram it most resembles.
package analyzer

import (
	"fmt"
	"strings"

	"github.com/veschin/d2-web-extension-sub000/internal/blocks"
	"github.com/veschin/d2-web-extension-sub000/internal/grammar"
	"github.com/veschin/d2-web-extension-sub000/internal/scan"
)

const maxTopIdentifiers = 5

// Metadata summarizes one block of diagram code.
type Metadata struct {
	ShapeCount      int      `json:"shapeCount" msgpack:"shape_count"`
	ConnectionCount int      `json:"connectionCount" msgpack:"connection_count"`
	NestingDepth    int      `json:"nestingDepth" msgpack:"nesting_depth"`
	Category        Category `json:"category" msgpack:"category"`
	HasStyles       bool     `json:"hasStyles" msgpack:"has_styles"`
	HasClasses      bool     `json:"hasClasses" msgpack:"has_classes"`
	TopIdentifiers  []string `json:"topIdentifiers" msgpack:"top_identifiers"`
}

// Analyzer is a metadata strategy.
type Analyzer interface {
	Analyze(code string) (Metadata, error)
}

// Analyze returns the metadata of code. With a nil backend, or when the
// backend fails in any way, the text strategy answers.
func Analyze(code string, backend grammar.Backend) Metadata {
	if backend != nil {
		if md, err := (Structural{Backend: backend}).Analyze(code); err == nil {
			return md
		}
	}
	md, _ := Text{}.Analyze(code)
	return md
}

// collector accumulates identifiers and counts while either strategy walks
// the code.
type collector struct {
	seen        map[string]struct{}
	shapes      int
	top         []string
	connections int
	depth       int
	hasStyles   bool
	hasClasses  bool
}

func newCollector() *collector {
	return &collector{seen: make(map[string]struct{})}
}

// topLevel records a top-level identifier.
func (c *collector) topLevel(id string) {
	if id == "" || blocks.IsDirective(id) {
		return
	}
	if _, ok := c.seen[id]; ok {
		return
	}
	c.seen[id] = struct{}{}
	c.shapes++
	if len(c.top) < maxTopIdentifiers {
		c.top = append(c.top, id)
	}
}

// key inspects any identifier for style and class usage.
func (c *collector) key(id string) {
	for _, seg := range strings.Split(id, ".") {
		switch seg {
		case "style":
			c.hasStyles = true
		case "class", "classes":
			c.hasClasses = true
		}
	}
}

func (c *collector) nesting(depth int) {
	if depth > c.depth {
		c.depth = depth
	}
}

func (c *collector) metadata(code string) Metadata {
	top := c.top
	if top == nil {
		top = []string{}
	}
	return Metadata{
		ShapeCount:      c.shapes,
		ConnectionCount: c.connections,
		NestingDepth:    c.depth,
		Category:        Categorize(c.shapes, c.connections, code, c.depth),
		HasStyles:       c.hasStyles,
		HasClasses:      c.hasClasses,
		TopIdentifiers:  top,
	}
}

// Text is the line-scanning strategy. It never fails.
type Text struct{}

// Analyze implements Analyzer.
func (Text) Analyze(code string) (Metadata, error) {
	c := newCollector()
	depth := 0
	inDirective := false
	for _, line := range strings.Split(code, "\n") {
		if scan.IsBlank(line) || scan.IsComment(line) {
			continue
		}
		delta, peak := scan.Depths(line)
		c.nesting(depth + peak)

		for _, k := range statementKeys(line) {
			c.key(k)
		}
		id := scan.LeadingIdentifier(line)
		if depth == 0 && scan.OpensBrace(line) {
			inDirective = blocks.IsDirective(id)
		}
		if scan.HasConnection(line) {
			c.connections++
		} else if depth == 0 || (depth == 1 && !inDirective && scan.OpensBrace(line)) {
			c.topLevel(id)
		}

		depth += delta
		if depth < 0 {
			depth = 0
		}
	}
	return c.metadata(code), nil
}

// statementKeys returns the leading identifier of every statement on line:
// at its start and after each unquoted '{' or ';'.
func statementKeys(line string) []string {
	var keys []string
	for _, part := range strings.FieldsFunc(scan.Unquoted(line), func(r rune) bool {
		return r == '{' || r == ';'
	}) {
		if id := scan.LeadingIdentifier(part); id != "" {
			keys = append(keys, id)
		}
	}
	return keys
}

// Structural is the grammar-driven strategy.
type Structural struct {
	Backend grammar.Backend
}

// Analyze implements Analyzer. Backend errors and panics are returned so the
// caller can fall back to the text strategy.
func (s Structural) Analyze(code string) (md Metadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analyzer: grammar backend panicked: %v", r)
		}
	}()

	c := newCollector()
	if strings.TrimSpace(code) == "" {
		return c.metadata(code), nil
	}
	tree, err := s.Backend.Parse(code)
	if err != nil {
		return Metadata{}, err
	}

	connLines := make(map[int]struct{})
	// inDirective marks the body of a directive container such as classes,
	// whose keys are not shapes.
	var walk func(nodes []*grammar.Node, depth int, inDirective bool)
	walk = func(nodes []*grammar.Node, depth int, inDirective bool) {
		for _, n := range nodes {
			body := n.Child(grammar.KindBlock)
			id := ""
			if header := n.Header(); len(header) > 0 {
				id = scan.LeadingIdentifier(tree.Text(header[0]))
			}
			switch n.Kind {
			case grammar.KindConnection:
				connLines[n.StartLine] = struct{}{}
			case grammar.KindDeclaration:
				c.key(id)
				if depth == 0 || (depth == 1 && !inDirective && body != nil) {
					c.topLevel(id)
				}
			default:
				continue
			}
			if body != nil {
				c.nesting(depth + 1)
				if depth == 0 {
					inDirective = blocks.IsDirective(id)
				}
				walk(body.Children, depth+1, inDirective)
			}
		}
	}
	walk(tree.Root.Children, 0, false)

	c.connections = len(connLines)
	return c.metadata(code), nil
}
