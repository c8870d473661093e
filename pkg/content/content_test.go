package content

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sambeau/thyme/pkg/thyme/evaluator"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		meta     map[string]any
		body     string
		bodyLine int
	}{
		{
			name:     "yaml",
			src:      "---\ntitle: Hello\ntags: [a, b]\n---\nBody\n",
			meta:     map[string]any{"title": "Hello", "tags": []any{"a", "b"}},
			body:     "Body\n",
			bodyLine: 4,
		},
		{
			name:     "toml",
			src:      "+++\ntitle = \"Hello\"\ncount = 3\n+++\nBody",
			meta:     map[string]any{"title": "Hello", "count": int64(3)},
			body:     "Body",
			bodyLine: 5,
		},
		{
			name:     "crlf",
			src:      "---\r\ntitle: Hi\r\n---\r\nBody",
			meta:     map[string]any{"title": "Hi"},
			body:     "Body",
			bodyLine: 4,
		},
		{
			name:     "none",
			src:      "# Just text\n",
			meta:     map[string]any{},
			body:     "# Just text\n",
			bodyLine: 1,
		},
		{
			name:     "unclosed",
			src:      "---\ntitle: x\n",
			meta:     map[string]any{},
			body:     "---\ntitle: x\n",
			bodyLine: 1,
		},
		{
			name:     "empty block",
			src:      "---\n---\nBody",
			meta:     map[string]any{},
			body:     "Body",
			bodyLine: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Split(tt.src)
			require.NoError(t, err)
			require.Equal(t, tt.meta, doc.Meta)
			require.Equal(t, tt.body, doc.Body)
			require.Equal(t, tt.bodyLine, doc.BodyLine)
		})
	}
}

func TestSplitInvalid(t *testing.T) {
	_, err := Split("---\ntitle: [\n---\n")
	require.ErrorContains(t, err, "invalid front matter")
}

func TestNewPage(t *testing.T) {
	doc, err := Split("---\ndate: 2024-03-01\n---\nHi")
	require.NoError(t, err)

	p, err := NewPage("/site/content/posts/first-post.md", "posts/first-post.md", doc, "page.html")
	require.NoError(t, err)

	require.Equal(t, "/posts/first-post.html", p.URL)
	require.Equal(t, "posts/first-post.html", p.Output)
	require.Equal(t, "page.html", p.Template)
	require.Equal(t, "First Post", p.Meta[KeyTitle])
	require.True(t, p.Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)), "date %v", p.Date)
	require.Equal(t, 4, p.BodyLine)

	m := p.Map("<p>Hi</p>")
	require.Equal(t, "<p>Hi</p>", m[KeyContent])
	require.Equal(t, "/posts/first-post.html", m[KeyURL])
}

func TestNewPageReservedKeys(t *testing.T) {
	doc := &Document{Meta: map[string]any{
		"url":      "about/",
		"template": "wide.html",
		"raw":      true,
		"title":    "About us",
		"content":  "ignored",
	}}

	p, err := NewPage("about.md", "about.md", doc, "page.html")
	require.NoError(t, err)
	require.Equal(t, "/about/", p.URL)
	require.Equal(t, "about/index.html", p.Output)
	require.Equal(t, "wide.html", p.Template)
	require.True(t, p.Raw)
	require.Equal(t, "About us", p.Meta[KeyTitle])
	require.NotContains(t, p.Meta, KeyContent)
}

func TestNewPageErrors(t *testing.T) {
	tests := []struct {
		name string
		meta map[string]any
		want string
	}{
		{"url not string", map[string]any{"url": 3}, "url must be a string"},
		{"draft not bool", map[string]any{"draft": "yes"}, "draft must be true or false"},
		{"bad date", map[string]any{"date": "not a date"}, "invalid date"},
		{"escaping url", map[string]any{"url": "/../x.html"}, "outside the site"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPage("a.md", "a.md", &Document{Meta: tt.meta}, "page.html")
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestTitleFromPath(t *testing.T) {
	require.Equal(t, "Getting Started", TitleFromPath("docs/getting-started.md"))
	require.Equal(t, "Snake Case", TitleFromPath("snake_case.md"))
}

func TestMarkdown(t *testing.T) {
	html, err := NewMarkdown().Convert("# Hi\n\n<b>raw</b>\n")
	require.NoError(t, err)
	require.Contains(t, html, `<h1 id="hi">Hi</h1>`)
	require.Contains(t, html, "<b>raw</b>")
}

func writeFile(t *testing.T, path, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.md"), "# Home")
	writeFile(t, filepath.Join(dir, "posts", "old.md"), "---\ndate: 2023-01-01\n---\nold")
	writeFile(t, filepath.Join(dir, "posts", "new.md"), "---\ndate: 2024-01-01\n---\nnew")
	writeFile(t, filepath.Join(dir, "posts", "draft.md"), "---\ndraft: true\n---\nwip")
	writeFile(t, filepath.Join(dir, ".hidden", "x.md"), "x")
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a page")

	site, err := Load(context.Background(), Options{Dir: dir, Layout: "page.html"})
	require.NoError(t, err)

	var urls []string
	for _, p := range site.Pages {
		urls = append(urls, p.URL)
	}
	require.Equal(t, []string{"/posts/new.html", "/posts/old.html", "/index.html"}, urls)

	require.Equal(t, filepath.Join(dir, "posts", "new.md"), site.Pages[0].Source)
	require.Equal(t, "new", site.Pages[0].Body)

	site, err = Load(context.Background(), Options{Dir: dir, Drafts: true})
	require.NoError(t, err)
	require.Len(t, site.Pages, 4)
}

func TestLoadMissingDir(t *testing.T) {
	site, err := Load(context.Background(), Options{Dir: filepath.Join(t.TempDir(), "nope")})
	require.NoError(t, err)
	require.Empty(t, site.Pages)
}

func TestLoadReportsEveryBadPage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "---\nurl: /same.html\n---\n")
	writeFile(t, filepath.Join(dir, "b.md"), "---\nurl: /same.html\n---\n")
	writeFile(t, filepath.Join(dir, "c.md"), "---\ndraft: maybe\n---\n")

	writeFile(t, filepath.Join(dir, "d.md"), "fine\n")

	site, err := Load(context.Background(), Options{Dir: dir})
	require.Error(t, err)
	require.ErrorContains(t, err, "draft must be true or false")

	// both pages claiming /same.html are rejected
	a, b := filepath.Join(dir, "a.md"), filepath.Join(dir, "b.md")
	require.ErrorContains(t, err, a+": output same.html is claimed by "+a+", "+b)
	require.ErrorContains(t, err, b+": output same.html is claimed by "+a+", "+b)
	require.Len(t, site.Pages, 1)
	require.Equal(t, "/d.html", site.Pages[0].URL)
}

func TestGlobal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"), "---\ntitle: A\n---\n*hi* {: .title :}")

	site, err := Load(context.Background(), Options{
		Dir:    dir,
		Config: map[string]any{"title": "Site"},
	})
	require.NoError(t, err)

	global, err := site.Global(NewMarkdown())
	require.NoError(t, err)

	m := global.(*evaluator.Map)
	cfg := m.Get("CONFIG").(*evaluator.Map)
	require.Equal(t, "Site", cfg.Get("title").Inspect())

	pages := m.Get("PAGES").(*evaluator.Array)
	require.Len(t, pages.Elements, 1)
	page := pages.Elements[0].(*evaluator.Map)
	require.Equal(t, "/a.html", page.Get("url").Inspect())
	// PAGES bodies are markdown only
	require.Equal(t, "<p><em>hi</em> {: .title :}</p>\n", page.Get("content").Inspect())
}
