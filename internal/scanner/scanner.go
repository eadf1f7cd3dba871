// scanner is used to scan a workspace for diagram files.
package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"
)

var log = commonlog.GetLogger("d2frag.scanner")

// DefaultWorkers bounds the number of files read concurrently.
const DefaultWorkers = 4

// File is a diagram file found by Scan.
type File struct {
	Path    string
	ModTime int64
	Content []byte
}

// IgnoreDir reports whether a directory is skipped: hidden directories and
// vendored dependencies.
func IgnoreDir(path string) bool {
	name := filepath.Base(path)
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".") || name == "node_modules"
}

// Matches reports whether path has one of the extensions.
func Matches(path string, exts []string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Scan walks the subtree under root. Hidden directories are skipped. Every
// file with one of exts for which skip returns false is read and handed to
// fn. Reads and callbacks run on up to workers goroutines; fn must be safe
// for concurrent use. Scan returns once every callback has completed, with
// the first error returned by fn or ctx.
func Scan(
	ctx context.Context,
	root string,
	exts []string,
	workers int,
	skip func(path string, info fs.FileInfo) bool,
	fn func(File) error,
) error {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	log.Debugf("starting WalkDir at %q", root)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warningf("walk error: %v", err)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if d.IsDir() {
			if path != root && IgnoreDir(path) {
				return fs.SkipDir
			}
			return nil
		}
		if !Matches(path, exts) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}
		if skip != nil && skip(path, info) {
			return nil
		}

		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err != nil {
				log.Warningf("read error: %s: %v", path, err)
				return nil
			}
			return fn(File{Path: path, ModTime: info.ModTime().UnixNano(), Content: data})
		})
		return nil
	})

	if werr := g.Wait(); werr != nil {
		return werr
	}
	return err
}
