package scanner_test

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veschin/d2-web-extension-sub000/internal/scanner"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func workspace(t *testing.T) string {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.d2"), "a -> b")
	writeFile(t, filepath.Join(root, "nested", "b.D2"), "b")
	writeFile(t, filepath.Join(root, "notes.md"), "# not a diagram")
	writeFile(t, filepath.Join(root, ".git", "c.d2"), "hidden")
	writeFile(t, filepath.Join(root, "node_modules", "d.d2"), "vendored")
	return root
}

func TestScan(t *testing.T) {
	root := workspace(t)

	var mu sync.Mutex
	found := map[string]string{}
	err := scanner.Scan(context.Background(), root, []string{".d2"}, 2, nil, func(f scanner.File) error {
		rel, err := filepath.Rel(root, f.Path)
		require.NoError(t, err)
		mu.Lock()
		defer mu.Unlock()
		found[filepath.ToSlash(rel)] = string(f.Content)
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{"a.d2": "a -> b", "nested/b.D2": "b"}, found)
}

func TestScanSkip(t *testing.T) {
	root := workspace(t)

	var mu sync.Mutex
	var paths []string
	skip := func(path string, _ fs.FileInfo) bool { return filepath.Base(path) == "a.d2" }
	err := scanner.Scan(context.Background(), root, []string{".d2"}, 0, skip, func(f scanner.File) error {
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, filepath.Base(f.Path))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(paths)
	assert.Equal(t, []string{"b.D2"}, paths)
}

func TestScanCallbackError(t *testing.T) {
	root := workspace(t)
	boom := errors.New("boom")
	err := scanner.Scan(context.Background(), root, []string{".d2"}, 1, nil, func(scanner.File) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestIgnoreDir(t *testing.T) {
	assert.True(t, scanner.IgnoreDir("/w/.git"))
	assert.True(t, scanner.IgnoreDir("/w/node_modules"))
	assert.False(t, scanner.IgnoreDir("/w/docs"))
	assert.False(t, scanner.IgnoreDir("."))
}

func TestWatch(t *testing.T) {
	root := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan scanner.Event, 16)
	done := make(chan error, 1)
	go func() {
		done <- scanner.Watch(ctx, root, []string{".d2"}, func(ev scanner.Event) { events <- ev })
	}()

	// give the watcher time to register the root
	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(root, "ignored.txt"), "x")
	writeFile(t, filepath.Join(root, "new.d2"), "x")

	select {
	case ev := <-events:
		assert.Equal(t, filepath.Join(root, "new.d2"), ev.Path)
		assert.Equal(t, scanner.Changed, ev.Op)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for new.d2")
	}

	cancel()
	require.NoError(t, <-done)
}
