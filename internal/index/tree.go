package index

import (
	"github.com/veschin/d2-web-extension-sub000/internal/analyzer"
	"github.com/veschin/d2-web-extension-sub000/internal/blocks"
)

// Entry is a block annotated with its metadata, the view model of a
// fragment browser.
type Entry struct {
	Name      string            `json:"name"`
	Code      string            `json:"code"`
	StartLine int               `json:"startLine"`
	EndLine   int               `json:"endLine"`
	Label     string            `json:"label,omitempty"`
	Hash      string            `json:"hash"`
	Metadata  analyzer.Metadata `json:"metadata"`
	Children  []Entry           `json:"children,omitempty"`
}

// Describe extracts the block tree of source and annotates every block,
// reusing stored metadata where the indexer has it.
func (ix *Indexer) Describe(source string) []Entry {
	return describe(blocks.Extract(source, ix.backend), func(code string) (string, analyzer.Metadata) {
		hash, md, _ := ix.Metadata(code)
		return hash, md
	})
}

func describe(bs []blocks.Block, meta func(code string) (string, analyzer.Metadata)) []Entry {
	if len(bs) == 0 {
		return nil
	}
	out := make([]Entry, len(bs))
	for i, b := range bs {
		hash, md := meta(b.Code)
		out[i] = Entry{
			Name:      b.Name,
			Code:      b.Code,
			StartLine: b.StartLine,
			EndLine:   b.EndLine,
			Label:     b.Label,
			Hash:      hash,
			Metadata:  md,
			Children:  describe(b.Children, meta),
		}
	}
	return out
}
