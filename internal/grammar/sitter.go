package grammar

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// DefaultSitterKinds maps the node types of the tree-sitter D2 grammar onto
// normalized kinds. Types missing from the map become KindOther.
var DefaultSitterKinds = map[string]Kind{
	"source_file":   KindDocument,
	"comment":       KindComment,
	"block_comment": KindComment,
	"declaration":   KindDeclaration,
	"shape":         KindDeclaration,
	"attribute":     KindDeclaration,
	"connection":    KindConnection,
	"identifier":    KindIdentifier,
	"shape_key":     KindIdentifier,
	"attr_key":      KindIdentifier,
	"arrow":         KindArrow,
	"label":         KindValue,
	"string":        KindValue,
	"value":         KindValue,
	"block":         KindBlock,
}

// Sitter is a tree-sitter backed Backend. The D2 grammar is supplied by the
// caller; parsers are pooled so concurrent Parse calls never share one.
type Sitter struct {
	lang  *sitter.Language
	kinds map[string]Kind
	pool  chan *sitter.Parser

	done      chan struct{}
	closeOnce sync.Once
}

// NewSitter creates a backend with size pooled parsers for lang. A nil kinds
// map selects DefaultSitterKinds.
func NewSitter(lang *sitter.Language, kinds map[string]Kind, size int) (*Sitter, error) {
	if lang == nil {
		return nil, ErrNoLanguage
	}
	if size <= 0 {
		size = 4
	}
	if kinds == nil {
		kinds = DefaultSitterKinds
	}

	s := &Sitter{
		lang:  lang,
		kinds: kinds,
		pool:  make(chan *sitter.Parser, size),
		done:  make(chan struct{}),
	}
	for i := 0; i < size; i++ {
		p := sitter.NewParser()
		p.SetLanguage(lang)
		s.pool <- p
	}
	return s, nil
}

// Parse implements Backend.
func (s *Sitter) Parse(source string) (*Tree, error) {
	var p *sitter.Parser
	select {
	case p = <-s.pool:
	case <-s.done:
		return nil, ErrClosed
	}
	defer func() { s.pool <- p }()

	tree, err := p.ParseCtx(context.Background(), nil, []byte(source))
	if err != nil {
		return nil, fmt.Errorf("grammar: tree-sitter parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, ErrSyntax
	}
	if root.HasError() {
		return nil, ErrSyntax
	}

	idx := newLineIndex(source)
	return &Tree{Source: source, Root: s.convert(root, idx)}, nil
}

func (s *Sitter) convert(n *sitter.Node, idx lineIndex) *Node {
	out := idx.node(s.kinds[n.Type()], n.Type(), int(n.StartByte()), int(n.EndByte()))
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		if child == nil {
			continue
		}
		out.Children = append(out.Children, s.convert(child, idx))
	}
	return out
}

// Close waits for every pooled parser to be returned and releases them.
// Parse fails with ErrClosed afterwards.
func (s *Sitter) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		for i := 0; i < cap(s.pool); i++ {
			p := <-s.pool
			p.Close()
		}
	})
	return nil
}
