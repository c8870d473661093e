package content

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Front matter keys the loader gives meaning to.
const (
	KeyContent  = "content"
	KeyURL      = "url"
	KeyTemplate = "template"
	KeyRaw      = "raw"
	KeyDraft    = "draft"
	KeyTitle    = "title"
	KeyDate     = "date"
)

// Page is one markdown file under the content directory.
type Page struct {
	Source   string // path of the markdown file, as read
	Rel      string // slash-separated path relative to the content directory
	URL      string
	Output   string // path of the rendered file relative to the output directory
	Template string // layout, relative to the templates directory
	Raw      bool   // body is markdown only, never interpreted as a template
	Draft    bool
	Date     time.Time
	Meta     map[string]any // front matter with url, title and template filled in
	Body     string
	BodyLine int
}

// NewPage builds a page from a split document. rel is the path relative to
// the content directory; layout is the template used when none is named.
func NewPage(source, rel string, doc *Document, layout string) (*Page, error) {
	p := &Page{
		Source:   source,
		Rel:      filepath.ToSlash(rel),
		Body:     doc.Body,
		BodyLine: doc.BodyLine,
		Meta:     make(map[string]any, len(doc.Meta)+3),
	}
	for k, v := range doc.Meta {
		p.Meta[k] = v
	}
	delete(p.Meta, KeyContent)

	var err error
	if p.URL, err = stringKey(p.Meta, KeyURL, defaultURL(p.Rel)); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(p.URL, "/") {
		p.URL = "/" + p.URL
	}
	if p.Output, err = OutputPath(p.URL); err != nil {
		return nil, err
	}
	if p.Template, err = stringKey(p.Meta, KeyTemplate, layout); err != nil {
		return nil, err
	}
	if p.Raw, err = boolKey(p.Meta, KeyRaw); err != nil {
		return nil, err
	}
	if p.Draft, err = boolKey(p.Meta, KeyDraft); err != nil {
		return nil, err
	}
	if _, ok := p.Meta[KeyTitle]; !ok {
		p.Meta[KeyTitle] = TitleFromPath(p.Rel)
	}
	if p.Date, err = parseDate(p.Meta[KeyDate]); err != nil {
		return nil, err
	}

	p.Meta[KeyURL] = p.URL
	p.Meta[KeyTemplate] = p.Template
	return p, nil
}

// Map returns the page as seen by templates, with content bound to body.
func (p *Page) Map(body string) map[string]any {
	m := make(map[string]any, len(p.Meta)+1)
	for k, v := range p.Meta {
		m[k] = v
	}
	m[KeyContent] = body
	return m
}

// OutputPath maps a page URL to the file it is written to: the leading slash
// is dropped and directory URLs get index.html.
func OutputPath(url string) (string, error) {
	out := strings.TrimPrefix(url, "/")
	if out == "" || strings.HasSuffix(out, "/") {
		out += "index.html"
	}
	clean := path.Clean(out)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("url %s is outside the site", url)
	}
	return clean, nil
}

func defaultURL(rel string) string {
	return "/" + strings.TrimSuffix(rel, path.Ext(rel)) + ".html"
}

// TitleFromPath derives a title from a file name: "getting-started.md"
// becomes "Getting Started".
func TitleFromPath(rel string) string {
	base := path.Base(rel)
	title := strings.TrimSuffix(base, path.Ext(base))
	title = strings.ReplaceAll(title, "-", " ")
	title = strings.ReplaceAll(title, "_", " ")
	return cases.Title(language.English).String(title)
}

func stringKey(meta map[string]any, key, def string) (string, error) {
	v, ok := meta[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("front matter %s must be a string, got %T", key, v)
	}
	return s, nil
}

func boolKey(meta map[string]any, key string) (bool, error) {
	v, ok := meta[key]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("front matter %s must be true or false, got %T", key, v)
	}
	return b, nil
}

func parseDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return d, nil
	case string:
		t, err := dateparse.ParseAny(d)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q: %w", d, err)
		}
		return t, nil
	case fmt.Stringer:
		return parseDate(d.String())
	}
	return time.Time{}, fmt.Errorf("invalid date %v", v)
}
