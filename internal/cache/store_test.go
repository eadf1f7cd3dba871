package cache_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veschin/d2-web-extension-sub000/internal/analyzer"
	"github.com/veschin/d2-web-extension-sub000/internal/cache"
)

func openStore(t *testing.T) *cache.Store {
	t.Helper()
	store, err := cache.Open(filepath.Join(t.TempDir(), "fragments.db"), 8)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var serverMeta = analyzer.Metadata{
	ShapeCount:     1,
	NestingDepth:   1,
	Category:       analyzer.CategoryComponent,
	TopIdentifiers: []string{"server"},
}

func TestKey(t *testing.T) {
	assert.Equal(t, cache.Key("a -> b"), cache.Key("a -> b"))
	assert.NotEqual(t, cache.Key("a -> b"), cache.Key("a -> c"))
	assert.Len(t, cache.Key(""), 64)
}

func TestMetadataRoundTrip(t *testing.T) {
	store := openStore(t)
	hash := cache.Key("server {\n  shape: rectangle\n}")

	_, err := store.Metadata(hash)
	assert.ErrorIs(t, err, cache.ErrNotFound)

	require.NoError(t, store.PutMetadata(hash, serverMeta))
	got, err := store.Metadata(hash)
	require.NoError(t, err)
	assert.Equal(t, serverMeta, got)
}

func TestMetadataSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fragments.db")
	hash := cache.Key("server")

	store, err := cache.Open(path, 0)
	require.NoError(t, err)
	require.NoError(t, store.PutMetadata(hash, serverMeta))
	require.NoError(t, store.Close())

	store, err = cache.Open(path, 0)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.Metadata(hash)
	require.NoError(t, err)
	assert.Equal(t, serverMeta, got)
}

func TestReplaceFile(t *testing.T) {
	store := openStore(t)
	file := cache.FileRecord{Path: "/w/a.d2", LastModified: 100}

	first := []cache.Fragment{
		{Name: "cloud", Label: "AWS Region", StartLine: 0, EndLine: 9, Hash: "h1"},
		{Name: "vpc", StartLine: 1, EndLine: 8, Depth: 1, Hash: "h2"},
	}
	metas := map[string]analyzer.Metadata{"h1": serverMeta}
	require.NoError(t, store.ReplaceFile(file, first, metas))

	got, err := store.Fragments(file.Path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "cloud", got[0].Name)
	assert.Equal(t, file.Path, got[0].Path)
	assert.Equal(t, 1, got[1].Depth)

	md, err := store.Metadata("h1")
	require.NoError(t, err)
	assert.Equal(t, serverMeta, md)

	file.LastModified = 200
	require.NoError(t, store.ReplaceFile(file, first[:1], nil))
	got, err = store.Fragments(file.Path)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	rec, err := store.File(file.Path)
	require.NoError(t, err)
	assert.Equal(t, int64(200), rec.LastModified)
}

func TestSearch(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.ReplaceFile(cache.FileRecord{Path: "a.d2"}, []cache.Fragment{
		{Name: "WebServer", Hash: "x"},
		{Name: "db", Label: "Primary Database", Hash: "y"},
		{Name: "cache", Hash: "z"},
	}, nil))
	require.NoError(t, store.ReplaceFile(cache.FileRecord{Path: "b.d2"}, []cache.Fragment{
		{Name: "web -> db", Hash: "w"},
	}, nil))

	tests := []struct {
		query string
		limit int
		want  []string
	}{
		{"web", 0, []string{"WebServer", "web -> db"}},
		{"DATABASE", 0, []string{"db"}},
		{"db", 1, []string{"db"}},
		{"nothing", 0, nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := store.Search(tt.query, tt.limit)
			require.NoError(t, err)
			var names []string
			for _, f := range got {
				names = append(names, f.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestDeleteFile(t *testing.T) {
	store := openStore(t)
	require.NoError(t, store.ReplaceFile(cache.FileRecord{Path: "a.d2"}, []cache.Fragment{{Name: "a", Hash: "h"}}, nil))

	require.NoError(t, store.DeleteFile("a.d2"))
	frags, err := store.Fragments("a.d2")
	require.NoError(t, err)
	assert.Empty(t, frags)

	assert.ErrorIs(t, store.DeleteFile("a.d2"), cache.ErrNotFound)
	_, err = store.File("a.d2")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestWithTxRollsBack(t *testing.T) {
	store := openStore(t)
	boom := errors.New("boom")

	err := store.WithTx(func(tx *cache.Tx) error {
		require.NoError(t, tx.UpsertFile(cache.FileRecord{Path: "a.d2"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	files, err := store.Files()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestClosed(t *testing.T) {
	store, err := cache.Open("", 0)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Files()
	assert.ErrorIs(t, err, cache.ErrClosed)
	assert.ErrorIs(t, store.Close(), cache.ErrClosed)
}
