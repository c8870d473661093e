package build

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sambeau/thyme/pkg/content"
	"github.com/sambeau/thyme/pkg/thyme/ast"
	perrors "github.com/sambeau/thyme/pkg/thyme/errors"
	"github.com/sambeau/thyme/pkg/thyme/parser"
)

// templateExts are tried in order after the bare reference.
var templateExts = []string{".html", ".md"}

// SourceCache holds file contents and parsed templates keyed by path. An
// entry is reused while the file's modification time and size are unchanged;
// concurrent misses on the same path share one read.
type SourceCache struct {
	root string

	mu      sync.RWMutex
	entries map[string]*sourceEntry
	group   singleflight.Group

	hits   atomic.Int64
	misses atomic.Int64
}

type sourceEntry struct {
	modTime time.Time
	size    int64
	src     string

	once sync.Once
	tmpl *ast.Template
	err  error // parse error, cached with the source
}

// NewSourceCache returns a cache resolving include references under root.
func NewSourceCache(root string) *SourceCache {
	return &SourceCache{
		root:    filepath.Clean(root),
		entries: make(map[string]*sourceEntry),
	}
}

// Root is the directory include references resolve under.
func (c *SourceCache) Root() string { return c.root }

// Resolve maps an include reference to a template path. It trys the
// reference as given and then with each template extension.
func (c *SourceCache) Resolve(ref string) (string, []string, bool) {
	base := filepath.Join(c.root, filepath.FromSlash(ref))
	if rel, err := filepath.Rel(c.root, base); err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", nil, false
	}

	tried := make([]string, 0, len(templateExts)+1)
	for _, cand := range append([]string{base}, withExts(base)...) {
		tried = append(tried, cand)
		if info, err := os.Stat(cand); err == nil && info.Mode().IsRegular() {
			return cand, tried, true
		}
	}
	return "", tried, false
}

func withExts(base string) []string {
	out := make([]string, len(templateExts))
	for i, ext := range templateExts {
		out[i] = base + ext
	}
	return out
}

// Read returns the contents of path.
func (c *SourceCache) Read(ctx context.Context, path string) (string, error) {
	e, err := c.entry(ctx, path)
	if err != nil {
		return "", err
	}
	return e.src, nil
}

// Load returns the parsed template at path. Front matter is not part of the
// template; line numbers still count from the top of the file.
func (c *SourceCache) Load(ctx context.Context, path string) (*ast.Template, error) {
	e, err := c.entry(ctx, path)
	if err != nil {
		return nil, err
	}
	e.once.Do(func() {
		doc, err := content.Split(e.src)
		if err != nil {
			e.err = perrors.NewIO(path, err)
			return
		}
		e.tmpl, e.err = parser.ParseFileAt(path, doc.Body, doc.BodyLine)
	})
	return e.tmpl, e.err
}

// entry returns a current entry for path, reading the file when it changed.
func (c *SourceCache) entry(ctx context.Context, path string) (*sourceEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		c.Forget(path)
		return nil, perrors.NewIO(path, err)
	}

	c.mu.RLock()
	e, ok := c.entries[path]
	c.mu.RUnlock()
	if ok && e.modTime.Equal(info.ModTime()) && e.size == info.Size() {
		c.hits.Add(1)
		return e, nil
	}
	c.misses.Add(1)

	v, err, _ := c.group.Do("read:"+path, func() (any, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, perrors.NewIO(path, err)
		}
		e := &sourceEntry{modTime: info.ModTime(), size: info.Size(), src: string(data)}
		c.mu.Lock()
		c.entries[path] = e
		c.mu.Unlock()
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sourceEntry), nil
}

// Forget drops the entries for paths so the next access rereads them.
func (c *SourceCache) Forget(paths ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range paths {
		delete(c.entries, p)
	}
}

// Stats returns cache hits and misses.
func (c *SourceCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
