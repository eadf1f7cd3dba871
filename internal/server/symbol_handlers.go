package server

import (
	"math"
	"os"
	"strings"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/veschin/d2-web-extension-sub000/internal/analyzer"
	"github.com/veschin/d2-web-extension-sub000/internal/compile"
	"github.com/veschin/d2-web-extension-sub000/internal/index"
	"github.com/veschin/d2-web-extension-sub000/internal/scan"
	"github.com/veschin/d2-web-extension-sub000/internal/textpos"
)

const workspaceSymbolLimit = 200

func (s *Server) textDocumentDocumentSymbol(
	context *glsp.Context,
	params *protocol.DocumentSymbolParams,
) (any, error) {
	text, err := s.documentText(params.TextDocument.URI)
	if err != nil {
		return nil, err
	}
	return documentSymbols(text, s.describe(text)), nil
}

func (s *Server) textDocumentFormatting(
	context *glsp.Context,
	params *protocol.DocumentFormattingParams,
) ([]protocol.TextEdit, error) {
	uri := params.TextDocument.URI
	text, err := s.documentText(uri)
	if err != nil {
		return nil, err
	}
	name := uri
	if path, err := uriToPath(uri); err == nil {
		name = path
	}
	formatted, err := compile.Format(name, text)
	if err != nil {
		return nil, err
	}
	if formatted == text {
		return []protocol.TextEdit{}, nil
	}
	return []protocol.TextEdit{{Range: textpos.Whole(text), NewText: formatted}}, nil
}

func (s *Server) workspaceSymbol(
	context *glsp.Context,
	params *protocol.WorkspaceSymbolParams,
) ([]protocol.SymbolInformation, error) {
	if s.indexer == nil {
		return nil, nil
	}
	hits, err := s.indexer.Search(params.Query, workspaceSymbolLimit)
	if err != nil {
		return nil, err
	}
	symbols := make([]protocol.SymbolInformation, 0, len(hits))
	for _, h := range hits {
		container := h.Path
		symbols = append(symbols, protocol.SymbolInformation{
			Name: h.Name,
			Kind: symbolKind(h.Name, h.Metadata),
			Location: protocol.Location{
				URI: pathToURI(h.Path),
				Range: protocol.Range{
					Start: protocol.Position{Line: uint32(h.StartLine)},
					End:   protocol.Position{Line: uint32(h.EndLine + 1)},
				},
			},
			ContainerName: &container,
		})
	}
	return symbols, nil
}

// documentText returns the buffer of an open document, or the file contents
// of one the client has not opened.
func (s *Server) documentText(uri protocol.DocumentUri) (string, error) {
	if text, err := s.manager.Get(uri); err == nil {
		return text, nil
	}
	path, err := uriToPath(uri)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(content), nil
}

func (s *Server) describe(text string) []index.Entry {
	if s.indexer == nil {
		return index.New(nil, nil, nil).Describe(text)
	}
	return s.indexer.Describe(text)
}

// documentSymbols converts a fragment tree into an outline of doc.
func documentSymbols(doc string, entries []index.Entry) []protocol.DocumentSymbol {
	if len(entries) == 0 {
		return []protocol.DocumentSymbol{}
	}
	out := make([]protocol.DocumentSymbol, len(entries))
	for i, e := range entries {
		detail := string(e.Metadata.Category)
		if e.Label != "" {
			detail += " " + e.Label
		}
		r := lineRange(doc, e.StartLine, e.EndLine)
		out[i] = protocol.DocumentSymbol{
			Name:           e.Name,
			Detail:         &detail,
			Kind:           symbolKind(e.Name, e.Metadata),
			Range:          r,
			SelectionRange: protocol.Range{Start: r.Start, End: r.Start},
		}
		if len(e.Children) > 0 {
			out[i].Children = documentSymbols(doc, e.Children)
		}
	}
	return out
}

// symbolKind maps connections to Event, containers to Class and anything
// else to Object.
func symbolKind(name string, md analyzer.Metadata) protocol.SymbolKind {
	switch {
	case scan.HasConnection(name):
		return protocol.SymbolKindEvent
	case md.NestingDepth > 0:
		return protocol.SymbolKindClass
	default:
		return protocol.SymbolKindObject
	}
}

// lineRange spans whole lines start through end of doc.
func lineRange(doc string, start, end int) protocol.Range {
	from := textpos.Offset(doc, protocol.Position{Line: uint32(start)})
	to := textpos.Offset(doc, protocol.Position{Line: uint32(end), Character: math.MaxUint32})
	r := textpos.Range(doc, from, to)
	// a trailing \r is not part of the line
	if to > from && strings.HasSuffix(doc[:to], "\r") {
		r = textpos.Range(doc, from, to-1)
	}
	return r
}
