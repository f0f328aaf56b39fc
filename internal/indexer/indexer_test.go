package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/mission-control/internal/model"
	"github.com/rcliao/mission-control/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func docPaths(t *testing.T, s *store.SQLiteStore) []string {
	t.Helper()
	docs, err := s.AllDocuments(context.Background())
	require.NoError(t, err)
	var out []string
	for _, d := range docs {
		out = append(out, d.Path)
	}
	return out
}

func TestIndexRoot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	root := t.TempDir()

	readme := writeFile(t, root, "README.md", "# Notes\n\nhello")
	code := writeFile(t, root, "src/main.go", "package main\n")
	writeFile(t, root, "node_modules/dep/index.md", "# vendored")
	writeFile(t, root, "image.png", "binary")
	big := writeFile(t, root, "big.md", string(make([]byte, 2048)))

	ix := New(s, Options{
		Include:      []string{"**/*.md", "**/*.go"},
		Ignore:       []string{"**/node_modules/**"},
		MaxFileBytes: 1024,
	}, nil)

	res, err := ix.IndexRoot(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Indexed)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, res.Errors)

	paths := docPaths(t, s)
	assert.ElementsMatch(t, []string{readme, code}, paths)
	assert.NotContains(t, paths, big)

	doc, err := s.GetDocumentByPath(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, model.DocumentType("code"), doc.Type)
	assert.Equal(t, "main.go", doc.Name)
	require.NotNil(t, doc.Size)
	assert.EqualValues(t, len("package main\n"), *doc.Size)
}

func TestIndexRootPrunesDeletedFiles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	root := t.TempDir()
	keep := writeFile(t, root, "keep.md", "keep")
	gone := writeFile(t, root, "gone.md", "gone")

	ix := New(s, Options{Include: []string{"**/*.md"}}, nil)
	_, err := ix.IndexRoot(ctx, root)
	require.NoError(t, err)
	require.Len(t, docPaths(t, s), 2)

	require.NoError(t, os.Remove(gone))
	res, err := ix.IndexRoot(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)
	assert.Equal(t, []string{keep}, docPaths(t, s))
}

func TestIndexRootRejectsFile(t *testing.T) {
	root := t.TempDir()
	f := writeFile(t, root, "a.md", "x")
	_, err := New(newTestStore(t), Options{}, nil).IndexRoot(context.Background(), f)
	assert.Error(t, err)
}

func TestMatches(t *testing.T) {
	ix := New(nil, Options{
		Include: []string{"**/*.md"},
		Ignore:  []string{"**/.git/**", "drafts/**"},
	}, nil)

	assert.True(t, ix.Matches("a.md"))
	assert.True(t, ix.Matches("docs/deep/b.md"))
	assert.False(t, ix.Matches("main.go"))
	assert.False(t, ix.Matches(".git/HEAD.md"))
	assert.False(t, ix.Matches("drafts/c.md"))
	assert.True(t, ix.dirIgnored("drafts"))
	assert.False(t, ix.dirIgnored("docs"))

	all := New(nil, Options{}, nil)
	assert.True(t, all.Matches("anything.bin"))
}

func TestWatchIndexesAndRemoves(t *testing.T) {
	s := newTestStore(t)
	root := t.TempDir()
	ix := New(s, Options{Include: []string{"**/*.md"}, Debounce: 30 * time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ix.Watch(ctx, root) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	// Give the watcher a moment to register the root.
	time.Sleep(100 * time.Millisecond)

	p := writeFile(t, root, "live.md", "# live")
	require.Eventually(t, func() bool {
		_, err := s.GetDocumentByPath(context.Background(), p)
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(p))
	require.Eventually(t, func() bool {
		return len(docPaths(t, s)) == 0
	}, 3*time.Second, 20*time.Millisecond)
}
