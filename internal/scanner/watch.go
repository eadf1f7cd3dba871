package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Op is the kind of change reported by Watch.
type Op int

const (
	Changed Op = iota
	Removed
)

// Event is a change to a diagram file.
type Event struct {
	Path string
	Op   Op
}

// Watch reports changes to files with one of exts anywhere under root until
// ctx is done. Directories created later are watched as they appear.
func Watch(ctx context.Context, root string, exts []string, fn func(Event)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("scanner: create watcher: %w", err)
	}
	defer w.Close()

	if err := addTree(w, root); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warningf("watch error: %v", err)
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if !IgnoreDir(ev.Name) {
						if err := addTree(w, ev.Name); err != nil {
							log.Warningf("%v", err)
						}
					}
					continue
				}
			}
			if !Matches(ev.Name, exts) {
				continue
			}
			switch {
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				fn(Event{Path: ev.Name, Op: Removed})
			case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
				fn(Event{Path: ev.Name, Op: Changed})
			}
		}
	}
}

func addTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if path != root && IgnoreDir(path) {
			return fs.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("scanner: watch %s: %w", path, err)
		}
		return nil
	})
}
