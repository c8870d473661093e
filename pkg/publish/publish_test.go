package publish

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sambeau/thyme/pkg/build"
)

func newPublisher(t *testing.T) (*Publisher, string, string) {
	t.Helper()
	root := t.TempDir()
	out := filepath.Join(root, "public")
	static := filepath.Join(root, "static")
	p, err := Open(out, static, filepath.Join(root, ManifestPath), nil)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p, out, static
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestPublish(t *testing.T) {
	p, out, _ := newPublisher(t)
	ctx := context.Background()

	stats, err := p.Publish(ctx, &build.Result{Rendered: map[string][]byte{
		"index.html":       []byte("home"),
		"posts/first.html": []byte("first"),
	}})
	require.NoError(t, err)
	require.Equal(t, Stats{Written: 2}, stats)
	require.Equal(t, "home", readFile(t, filepath.Join(out, "index.html")))
	require.Equal(t, "first", readFile(t, filepath.Join(out, "posts", "first.html")))

	seq, modified := p.LastModified()
	require.Equal(t, uint64(1), seq)
	require.False(t, modified.IsZero())

	// unchanged pages are not rewritten and do not bump the sequence
	stats, err = p.Publish(ctx, &build.Result{Rendered: map[string][]byte{
		"index.html":       []byte("home"),
		"posts/first.html": []byte("first!"),
	}})
	require.NoError(t, err)
	require.Equal(t, Stats{Written: 1, Unchanged: 1}, stats)

	stats, err = p.Publish(ctx, &build.Result{Rendered: map[string][]byte{"index.html": []byte("home")}})
	require.NoError(t, err)
	require.Equal(t, Stats{Unchanged: 1}, stats)
	seq, _ = p.LastModified()
	require.Equal(t, uint64(2), seq)

	stats, err = p.Publish(ctx, &build.Result{Removed: []string{"posts/first.html"}})
	require.NoError(t, err)
	require.Equal(t, Stats{Removed: 1}, stats)
	require.NoFileExists(t, filepath.Join(out, "posts", "first.html"))
	require.NoDirExists(t, filepath.Join(out, "posts"))
}

func TestPublishRewritesDeletedFile(t *testing.T) {
	p, out, _ := newPublisher(t)
	ctx := context.Background()
	res := &build.Result{Rendered: map[string][]byte{"a.html": []byte("a")}}

	_, err := p.Publish(ctx, res)
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(out, "a.html")))

	stats, err := p.Publish(ctx, res)
	require.NoError(t, err)
	require.Equal(t, Stats{Written: 1}, stats)
	require.FileExists(t, filepath.Join(out, "a.html"))
}

func TestPublishRejectsEscapingPaths(t *testing.T) {
	p, _, _ := newPublisher(t)
	stats, err := p.Publish(context.Background(), &build.Result{Rendered: map[string][]byte{
		"../evil.html": []byte("x"),
		"ok.html":      []byte("ok"),
	}})
	require.ErrorContains(t, err, "escapes")
	require.Equal(t, 1, stats.Written)
}

func TestCopyStatic(t *testing.T) {
	p, out, static := newPublisher(t)
	ctx := context.Background()

	require.NoError(t, os.MkdirAll(filepath.Join(static, "css"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(static, "css", "site.css"), []byte("body{}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(static, "robots.txt"), []byte("ok"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(static, ".hidden"), []byte("no"), 0o644))

	stats, err := p.CopyStatic(ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{Written: 2}, stats)
	require.Equal(t, "body{}", readFile(t, filepath.Join(out, "css", "site.css")))
	require.NoFileExists(t, filepath.Join(out, ".hidden"))

	require.NoError(t, os.Remove(filepath.Join(static, "robots.txt")))
	stats, err = p.CopyStatic(ctx)
	require.NoError(t, err)
	require.Equal(t, Stats{Unchanged: 1, Removed: 1}, stats)
	require.NoFileExists(t, filepath.Join(out, "robots.txt"))
}

func TestCopyStaticMissingDir(t *testing.T) {
	p, _, _ := newPublisher(t)
	stats, err := p.CopyStatic(context.Background())
	require.NoError(t, err)
	require.Equal(t, Stats{}, stats)
}

func TestSweep(t *testing.T) {
	p, out, _ := newPublisher(t)
	ctx := context.Background()

	_, err := p.Publish(ctx, &build.Result{Rendered: map[string][]byte{
		"a.html": []byte("a"),
		"b.html": []byte("b"),
	}})
	require.NoError(t, err)

	stats, err := p.Sweep(ctx, map[string]bool{"a.html": true})
	require.NoError(t, err)
	require.Equal(t, Stats{Removed: 1}, stats)
	require.FileExists(t, filepath.Join(out, "a.html"))
	require.NoFileExists(t, filepath.Join(out, "b.html"))
}

func TestManifestPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	ctx := context.Background()

	m, err := OpenManifest(path)
	require.NoError(t, err)
	require.NoError(t, m.Put(ctx, "a.html", KindPage, []byte("a")))
	require.NoError(t, m.Close())

	m, err = OpenManifest(path)
	require.NoError(t, err)
	defer m.Close()

	e, ok, err := m.Get(ctx, "a.html")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, KindPage, e.Kind)
	require.Equal(t, Hash([]byte("a")), e.Hash)
	require.Equal(t, int64(1), e.Size)

	same, err := m.Unchanged(ctx, "a.html", []byte("b"))
	require.NoError(t, err)
	require.False(t, same)

	require.NoError(t, m.Delete(ctx, "a.html"))
	_, ok, err = m.Get(ctx, "a.html")
	require.NoError(t, err)
	require.False(t, ok)
}
