package build

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	perrors "github.com/sambeau/thyme/pkg/thyme/errors"
)

func TestCacheResolve(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "nav.html"), "nav")
	writeFile(t, filepath.Join(root, "exact"), "exact")

	c := NewSourceCache(root)

	resolved, tried, found := c.Resolve("nav")
	require.True(t, found)
	require.Equal(t, filepath.Join(root, "nav.html"), resolved)
	require.Equal(t, []string{filepath.Join(root, "nav"), filepath.Join(root, "nav.html")}, tried)

	resolved, tried, found = c.Resolve("exact")
	require.True(t, found)
	require.Equal(t, filepath.Join(root, "exact"), resolved)
	require.Len(t, tried, 1)

	_, tried, found = c.Resolve("footer")
	require.False(t, found)
	require.Equal(t, []string{
		filepath.Join(root, "footer"),
		filepath.Join(root, "footer.html"),
		filepath.Join(root, "footer.md"),
	}, tried)

	_, tried, found = c.Resolve("../secret")
	require.False(t, found)
	require.Empty(t, tried)
}

func TestCacheLoad(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.html")
	writeFile(t, path, "{: 1 :}")

	c := NewSourceCache(root)
	ctx := context.Background()

	first, err := c.Load(ctx, path)
	require.NoError(t, err)
	second, err := c.Load(ctx, path)
	require.NoError(t, err)
	require.Same(t, first, second)

	hits, misses := c.Stats()
	require.Equal(t, int64(1), hits)
	require.Equal(t, int64(1), misses)

	writeFile(t, path, "{: 22 :}")
	c.Forget(path)
	third, err := c.Load(ctx, path)
	require.NoError(t, err)
	require.NotSame(t, first, third)
}

func TestCacheParseErrorKeepsFileLines(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "page.md")
	writeFile(t, path, "---\ntitle: x\n---\n{: 1 +  :}")

	c := NewSourceCache(root)
	_, err := c.Load(context.Background(), path)
	require.True(t, perrors.IsSyntax(err), "got %v", err)

	var te *perrors.ThymeError
	require.ErrorAs(t, err, &te)
	require.Equal(t, 4, te.Line)
	require.Equal(t, path, te.File)

	// the failure is cached with the source
	_, err2 := c.Load(context.Background(), path)
	require.Equal(t, err, err2)
}

func TestCacheMissingFile(t *testing.T) {
	c := NewSourceCache(t.TempDir())
	_, err := c.Read(context.Background(), filepath.Join(c.Root(), "gone.html"))
	require.Error(t, err)
	require.ErrorIs(t, err, fs.ErrNotExist)

	var te *perrors.ThymeError
	require.ErrorAs(t, err, &te)
	require.Equal(t, "IO-0001", te.Code)
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}
