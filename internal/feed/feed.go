// Package feed pushes the fragment trees of open documents to browser
// clients over WebSocket.
package feed

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/tliron/commonlog"

	"github.com/veschin/d2-web-extension-sub000/internal/index"
)

var log = commonlog.GetLogger("d2frag.feed")

const (
	OpInit   = "init"
	OpUpdate = "update"
	OpRemove = "remove"
)

// Document is the fragment tree of one document.
type Document struct {
	URI     string        `json:"uri"`
	Entries []index.Entry `json:"entries"`
}

// Message is sent over WebSocket to update clients.
type Message struct {
	Op        string     `json:"op"`
	Documents []Document `json:"documents,omitempty"` // init
	Document  *Document  `json:"document,omitempty"`  // update
	URI       string     `json:"uri,omitempty"`       // remove
}

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Hub tracks the latest tree of every published document and broadcasts
// changes to connected clients.
type Hub struct {
	docsMu sync.Mutex
	docs   map[string][]index.Entry

	clientsMu sync.Mutex
	clients   map[*websocket.Conn]struct{}

	srv  *http.Server
	addr string
}

func NewHub() *Hub {
	return &Hub{
		docs:    make(map[string][]index.Entry),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Handler serves the browser UI at / and the feed at /ws.
func (h *Hub) Handler() http.Handler {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(static)))
	mux.HandleFunc("/ws", h.handleWS)
	return mux
}

// Start serves the hub on addr (":0" picks a free port) and returns the URL
// of the UI. Calling Start again returns the running server's URL.
func (h *Hub) Start(addr string) (string, error) {
	if h.srv != nil {
		return h.addr, nil
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("feed: listen %s: %w", addr, err)
	}
	h.srv = &http.Server{Handler: h.Handler()}
	h.addr = "http://" + l.Addr().String() + "/"

	go func() {
		if err := h.srv.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("feed server error: %v", err)
		}
	}()
	log.Infof("fragment feed at %s", h.addr)
	return h.addr, nil
}

// URL returns the UI address, or "" when the hub is not serving.
func (h *Hub) URL() string { return h.addr }

// Publish replaces the tree of uri and broadcasts it.
func (h *Hub) Publish(uri string, entries []index.Entry) error {
	h.docsMu.Lock()
	h.docs[uri] = entries
	h.docsMu.Unlock()
	return h.broadcast(Message{Op: OpUpdate, Document: &Document{URI: uri, Entries: entries}})
}

// Remove forgets uri and broadcasts the removal.
func (h *Hub) Remove(uri string) error {
	h.docsMu.Lock()
	delete(h.docs, uri)
	h.docsMu.Unlock()
	return h.broadcast(Message{Op: OpRemove, URI: uri})
}

// Snapshot returns every published document, sorted by URI.
func (h *Hub) Snapshot() []Document {
	h.docsMu.Lock()
	defer h.docsMu.Unlock()

	docs := make([]Document, 0, len(h.docs))
	for uri, entries := range h.docs {
		docs = append(docs, Document{URI: uri, Entries: entries})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].URI < docs[j].URI })
	return docs
}

// Close stops the server and disconnects every client.
func (h *Hub) Close() error {
	h.clientsMu.Lock()
	for conn := range h.clients {
		conn.Close()
		delete(h.clients, conn)
	}
	h.clientsMu.Unlock()

	if h.srv == nil {
		return nil
	}
	return h.srv.Shutdown(context.Background())
}

// broadcast marshals and sends a message to all clients.
func (h *Hub) broadcast(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for conn := range h.clients {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Warningf("broadcast error: %v", err)
			conn.Close()
			delete(h.clients, conn)
		}
	}
	return nil
}

// handleWS upgrades HTTP connections and sends the current state.
func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warningf("WS upgrade error: %v", err)
		return
	}

	// the snapshot is taken under the clients lock so no update falls
	// between it and registration
	h.clientsMu.Lock()
	data, err := json.Marshal(Message{Op: OpInit, Documents: h.Snapshot()})
	if err == nil {
		err = conn.WriteMessage(websocket.TextMessage, data)
	}
	if err != nil {
		h.clientsMu.Unlock()
		log.Warningf("init error: %v", err)
		conn.Close()
		return
	}
	h.clients[conn] = struct{}{}
	h.clientsMu.Unlock()

	defer func() {
		h.clientsMu.Lock()
		delete(h.clients, conn)
		h.clientsMu.Unlock()
		conn.Close()
	}()

	// keep connection open
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
}
