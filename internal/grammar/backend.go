package grammar

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
)

// Backend names accepted by New.
const (
	NameText       = "text"
	NameD2         = "d2"
	NameTreeSitter = "tree-sitter"
)

// New builds the backend registered under name. The text backend is the
// absence of a grammar and yields nil. A tree-sitter backend needs lang.
func New(name string, lang *sitter.Language, kinds map[string]string) (Backend, error) {
	switch name {
	case "", NameD2:
		return NewD2(), nil
	case NameText:
		return nil, nil
	case NameTreeSitter:
		km, err := ParseKinds(kinds)
		if err != nil {
			return nil, err
		}
		s, err := NewSitter(lang, km, 0)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("grammar: unknown backend %q", name)
	}
}

// ParseKinds converts a node type -> kind name table into kinds, layered on
// top of DefaultSitterKinds.
func ParseKinds(names map[string]string) (map[string]Kind, error) {
	kinds := make(map[string]Kind, len(DefaultSitterKinds)+len(names))
	for typ, k := range DefaultSitterKinds {
		kinds[typ] = k
	}
	for typ, name := range names {
		k, err := ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("node type %q: %w", typ, err)
		}
		kinds[typ] = k
	}
	return kinds, nil
}
