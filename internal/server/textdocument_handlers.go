package server

import (
	"fmt"
	"os"

	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/veschin/d2-web-extension-sub000/internal/compile"
	"github.com/veschin/d2-web-extension-sub000/internal/diagnostics"
)

func (s *Server) textDocumentDidOpen(
	context *glsp.Context,
	params *protocol.DidOpenTextDocumentParams,
) error {
	doc := params.TextDocument
	s.manager.Open(doc.URI, doc.Text, doc.Version)
	s.refresh(context, doc.URI, doc.Text)
	return nil
}

func (s *Server) textDocumentDidChange(
	context *glsp.Context,
	params *protocol.DidChangeTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	text, err := s.manager.Apply(uri, params.TextDocument.Version, params.ContentChanges)
	if err != nil {
		return fmt.Errorf("unexpected error during edit: %w", err)
	}
	s.refresh(context, uri, text)
	return nil
}

func (s *Server) textDocumentDidSave(
	context *glsp.Context,
	params *protocol.DidSaveTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	if params.Text != nil {
		version, err := s.manager.Version(uri)
		if err != nil {
			return err
		}
		s.manager.Open(uri, *params.Text, version)
	}
	text, err := s.manager.Get(uri)
	if err != nil {
		return err
	}
	s.refresh(context, uri, text)

	// the saved file is on disk now, bring its index entries up to date
	path, err := uriToPath(uri)
	if err != nil || s.indexer == nil {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if _, err := s.indexer.IndexFile(path, text, info.ModTime().UnixNano()); err != nil {
		return fmt.Errorf("index %s: %w", path, err)
	}
	return nil
}

func (s *Server) textDocumentDidClose(
	context *glsp.Context,
	params *protocol.DidCloseTextDocumentParams,
) error {
	uri := params.TextDocument.URI
	s.manager.Release(uri)
	publishDiagnostics(context, uri, []protocol.Diagnostic{})
	if err := s.hub.Remove(uri); err != nil {
		log.Warningf("feed: %v", err)
	}
	return nil
}

// refresh publishes the diagnostics of an open document and pushes its
// fragment tree to the feed.
func (s *Server) refresh(context *glsp.Context, uri protocol.DocumentUri, text string) {
	publishDiagnostics(context, uri, checkDocument(uri, text))
	if s.hub.URL() == "" || s.indexer == nil {
		return
	}
	if err := s.hub.Publish(uri, s.indexer.Describe(text)); err != nil {
		log.Warningf("feed: %v", err)
	}
}

// checkDocument runs the d2 parser over text and maps its errors onto the
// document.
func checkDocument(uri protocol.DocumentUri, text string) []protocol.Diagnostic {
	name := uri
	if path, err := uriToPath(uri); err == nil {
		name = path
	}
	doc := diagnostics.NewTextDocument(text)
	return diagnostics.ToProtocol(diagnostics.Map(compile.Check(name, text), doc), doc)
}

// publishDiagnostics sends diagnostics for uri. An empty slice clears the
// client's list.
func publishDiagnostics(
	context *glsp.Context,
	uri string,
	diagnostics []protocol.Diagnostic,
) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	context.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}
