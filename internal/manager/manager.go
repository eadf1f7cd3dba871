package manager

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/veschin/d2-web-extension-sub000/internal/textpos"
)

// ErrNotOpen is returned for a URI the client has not opened.
var ErrNotOpen = errors.New("manager: document not open")

type document struct {
	text    string
	version int32
}

// DocumentManager holds the buffers of the documents open in the client.
type DocumentManager struct {
	mu   sync.RWMutex
	docs map[string]*document
}

// NewDocumentManager creates an initialized DocumentManager.
func NewDocumentManager() *DocumentManager {
	return &DocumentManager{docs: make(map[string]*document)}
}

// Open stores the initial content of a document.
func (dm *DocumentManager) Open(uri, text string, version int32) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.docs[uri] = &document{text: text, version: version}
}

// Get returns the current content of a document.
func (dm *DocumentManager) Get(uri string) (string, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	doc, ok := dm.docs[uri]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	return doc.text, nil
}

// Version returns the version of the last applied change.
func (dm *DocumentManager) Version(uri string) (int32, error) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	doc, ok := dm.docs[uri]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	return doc.version, nil
}

// Apply applies content changes, full or incremental, in order and returns
// the new content.
func (dm *DocumentManager) Apply(uri string, version int32, changes []any) (string, error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	doc, ok := dm.docs[uri]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotOpen, uri)
	}
	for _, change := range changes {
		doc.text = textpos.Apply(doc.text, change)
	}
	doc.version = version
	return doc.text, nil
}

// Release forgets a document.
func (dm *DocumentManager) Release(uri string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	delete(dm.docs, uri)
}

// URIs returns the open documents, sorted.
func (dm *DocumentManager) URIs() []string {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	uris := make([]string, 0, len(dm.docs))
	for uri := range dm.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}

// CloseAll forgets every document.
func (dm *DocumentManager) CloseAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.docs = make(map[string]*document)
}
