// Package index keeps a searchable index of the diagram fragments of a
// workspace: every block of every diagram file, with its metadata.
package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tliron/commonlog"

	"github.com/veschin/d2-web-extension-sub000/internal/analyzer"
	"github.com/veschin/d2-web-extension-sub000/internal/blocks"
	"github.com/veschin/d2-web-extension-sub000/internal/cache"
	"github.com/veschin/d2-web-extension-sub000/internal/grammar"
	"github.com/veschin/d2-web-extension-sub000/internal/scanner"
)

var log = commonlog.GetLogger("d2frag.index")

// Fragment is an indexed block with its metadata.
type Fragment struct {
	cache.Fragment
	Metadata analyzer.Metadata `json:"metadata"`
}

// Stats summarizes one IndexRoot run.
type Stats struct {
	Indexed int
	Skipped int
	Removed int
}

// Indexer extracts, analyzes and stores the fragments of diagram files.
type Indexer struct {
	store   *cache.Store
	backend grammar.Backend
	exts    []string
	workers int
}

// New returns an Indexer writing to store. A nil backend selects the text
// strategies.
func New(store *cache.Store, backend grammar.Backend, exts []string) *Indexer {
	if len(exts) == 0 {
		exts = []string{".d2"}
	}
	return &Indexer{store: store, backend: backend, exts: exts, workers: scanner.DefaultWorkers}
}

// Store returns the underlying store.
func (ix *Indexer) Store() *cache.Store { return ix.store }

// Metadata returns the metadata of code, from the store when known.
// fresh reports whether it was computed by this call.
func (ix *Indexer) Metadata(code string) (hash string, md analyzer.Metadata, fresh bool) {
	hash = cache.Key(code)
	if ix.store != nil {
		if md, err := ix.store.Metadata(hash); err == nil {
			return hash, md, false
		} else if !errors.Is(err, cache.ErrNotFound) {
			log.Warningf("metadata lookup %s: %v", hash, err)
		}
	}
	return hash, analyzer.Analyze(code, ix.backend), true
}

// IndexFile replaces the fragments of path with those of source.
func (ix *Indexer) IndexFile(path, source string, modTime int64) ([]Fragment, error) {
	var fragments []Fragment
	var records []cache.Fragment
	metas := make(map[string]analyzer.Metadata)

	blocks.Walk(blocks.Extract(source, ix.backend), func(b blocks.Block, depth int) {
		hash, md, fresh := ix.Metadata(b.Code)
		if fresh {
			metas[hash] = md
		}
		record := cache.Fragment{
			Path:      path,
			Name:      b.Name,
			Label:     b.Label,
			StartLine: b.StartLine,
			EndLine:   b.EndLine,
			Depth:     depth,
			Hash:      hash,
		}
		records = append(records, record)
		fragments = append(fragments, Fragment{Fragment: record, Metadata: md})
	})

	file := cache.FileRecord{Path: path, LastModified: modTime}
	if err := ix.store.ReplaceFile(file, records, metas); err != nil {
		return nil, fmt.Errorf("index %s: %w", path, err)
	}
	return fragments, nil
}

// Remove drops a file from the index. Unknown files are not an error.
func (ix *Indexer) Remove(path string) error {
	if err := ix.store.DeleteFile(path); err != nil && !errors.Is(err, cache.ErrNotFound) {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// IndexRoot indexes every diagram file under root whose modification time
// changed since it was last indexed, and drops files that no longer exist.
func (ix *Indexer) IndexRoot(ctx context.Context, root string) (Stats, error) {
	var stats Stats

	known := make(map[string]int64)
	files, err := ix.store.Files()
	if err != nil {
		return stats, err
	}
	for _, f := range files {
		known[f.Path] = f.LastModified
	}

	var mu sync.Mutex
	seen := make(map[string]struct{})
	skip := func(path string, info fs.FileInfo) bool {
		mu.Lock()
		defer mu.Unlock()
		seen[path] = struct{}{}
		if mod, ok := known[path]; ok && mod == info.ModTime().UnixNano() {
			stats.Skipped++
			return true
		}
		return false
	}

	err = scanner.Scan(ctx, root, ix.exts, ix.workers, skip, func(f scanner.File) error {
		if _, err := ix.IndexFile(f.Path, string(f.Content), f.ModTime); err != nil {
			return err
		}
		mu.Lock()
		stats.Indexed++
		mu.Unlock()
		return nil
	})
	if err != nil {
		return stats, err
	}

	for path := range known {
		if _, ok := seen[path]; ok || !within(root, path) {
			continue
		}
		if err := ix.Remove(path); err != nil {
			return stats, err
		}
		stats.Removed++
	}

	log.Infof("indexed %s: %d updated, %d unchanged, %d removed", root, stats.Indexed, stats.Skipped, stats.Removed)
	return stats, nil
}

// Search returns fragments whose name or label contains query.
func (ix *Indexer) Search(query string, limit int) ([]Fragment, error) {
	records, err := ix.store.Search(query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Fragment, 0, len(records))
	for _, r := range records {
		md, err := ix.store.Metadata(r.Hash)
		if err != nil && !errors.Is(err, cache.ErrNotFound) {
			return nil, err
		}
		out = append(out, Fragment{Fragment: r, Metadata: md})
	}
	return out, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
