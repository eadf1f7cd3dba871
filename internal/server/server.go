// Package server implements the d2frag language server: diagnostics from
// the d2 parser, document outlines built from the block tree, workspace
// fragment search and a live fragment feed.
package server

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/tliron/commonlog"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	"github.com/veschin/d2-web-extension-sub000/internal/cache"
	"github.com/veschin/d2-web-extension-sub000/internal/config"
	"github.com/veschin/d2-web-extension-sub000/internal/feed"
	"github.com/veschin/d2-web-extension-sub000/internal/grammar"
	"github.com/veschin/d2-web-extension-sub000/internal/index"
	"github.com/veschin/d2-web-extension-sub000/internal/manager"
	"github.com/veschin/d2-web-extension-sub000/internal/scheduler"
)

const Name = "d2frag"

var log = commonlog.GetLogger("d2frag.server")

type Server struct {
	handler  *protocol.Handler
	lang     *sitter.Language
	version  string
	root     string
	config   config.Config
	loader   *grammar.Loader
	store    *cache.Store
	indexer  *index.Indexer
	manager  *manager.DocumentManager
	tasks    *scheduler.Scheduler
	hub      *feed.Hub
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewServer returns a glsp server speaking LSP for D2 documents. lang is the
// tree-sitter D2 grammar used when the tree-sitter backend is configured; it
// may be nil.
func NewServer(lang *sitter.Language, version string) (*server.Server, error) {
	s := newServer(lang, version)
	return server.NewServer(s.handler, Name, false), nil
}

func newServer(lang *sitter.Language, version string) *Server {
	s := &Server{
		lang:    lang,
		version: version,
		manager: manager.NewDocumentManager(),
		hub:     feed.NewHub(),
		config:  config.Default(),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.handler = &protocol.Handler{
		Initialize:                 s.initialize,
		Initialized:                s.initialized,
		Shutdown:                   s.shutdown,
		SetTrace:                   s.setTrace,
		TextDocumentDidOpen:        s.textDocumentDidOpen,
		TextDocumentDidChange:      s.textDocumentDidChange,
		TextDocumentDidSave:        s.textDocumentDidSave,
		TextDocumentDidClose:       s.textDocumentDidClose,
		TextDocumentDocumentSymbol: s.textDocumentDocumentSymbol,
		TextDocumentFormatting:     s.textDocumentFormatting,
		WorkspaceSymbol:            s.workspaceSymbol,
		WorkspaceExecuteCommand:    s.workspaceExecuteCommand,
	}
	return s
}

// uriToPath returns the local path of a file URI.
func uriToPath(uri protocol.DocumentUri) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("failed to parse uri: %w", err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	return filepath.FromSlash(u.Path), nil
}

// pathToURI returns the file URI of a local path.
func pathToURI(path string) protocol.DocumentUri {
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}
