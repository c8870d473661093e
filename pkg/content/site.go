// Package content loads the markdown pages of a site and builds the GLOBAL
// snapshot templates see.
package content

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sambeau/thyme/pkg/thyme/evaluator"
)

// ReadFunc returns the contents of a file.
type ReadFunc func(ctx context.Context, path string) (string, error)

// Options configures Load.
type Options struct {
	Dir    string         // content directory
	Layout string         // template for pages that do not name one
	Drafts bool           // include pages marked draft
	Config map[string]any // exposed as GLOBAL.CONFIG
	Read   ReadFunc       // defaults to os.ReadFile
}

// Site is an immutable snapshot of every page.
type Site struct {
	Config map[string]any
	Pages  []*Page // newest first, then by url
}

// Load walks opts.Dir for markdown files. A missing directory is an empty
// site. Every bad page is reported, joined into one error.
func Load(ctx context.Context, opts Options) (*Site, error) {
	read := opts.Read
	if read == nil {
		read = func(_ context.Context, path string) (string, error) {
			data, err := os.ReadFile(path)
			return string(data), err
		}
	}

	site := &Site{Config: opts.Config}
	if site.Config == nil {
		site.Config = map[string]any{}
	}

	var files []string
	err := filepath.WalkDir(opts.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == opts.Dir && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != opts.Dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && IsPage(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", opts.Dir, err)
	}

	var errs []error
	var pages []*Page
	claims := map[string][]string{}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := loadPage(ctx, read, opts, path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		if page.Draft && !opts.Drafts {
			continue
		}
		pages = append(pages, page)
		claims[page.Output] = append(claims[page.Output], path)
	}

	// no page wins a contested output
	for _, page := range pages {
		if owners := claims[page.Output]; len(owners) > 1 {
			errs = append(errs, fmt.Errorf("%s: output %s is claimed by %s", page.Source, page.Output, strings.Join(owners, ", ")))
			continue
		}
		site.Pages = append(site.Pages, page)
	}

	sort.SliceStable(site.Pages, func(i, j int) bool {
		a, b := site.Pages[i], site.Pages[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.URL < b.URL
	})

	return site, errors.Join(errs...)
}

func loadPage(ctx context.Context, read ReadFunc, opts Options, path string) (*Page, error) {
	src, err := read(ctx, path)
	if err != nil {
		return nil, err
	}
	doc, err := Split(src)
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(opts.Dir, path)
	if err != nil {
		return nil, err
	}
	return NewPage(path, rel, doc, opts.Layout)
}

// IsPage reports whether path names a content page.
func IsPage(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".md") && !strings.HasPrefix(filepath.Base(path), ".")
}

// Outputs returns the set of output paths claimed by pages.
func (s *Site) Outputs() map[string]*Page {
	out := make(map[string]*Page, len(s.Pages))
	for _, p := range s.Pages {
		out[p.Output] = p
	}
	return out
}

// Global builds the GLOBAL object: CONFIG, and PAGES with each page's body
// converted from markdown without template interpretation.
func (s *Site) Global(md *Markdown) (evaluator.Object, error) {
	pages := make([]evaluator.Object, len(s.Pages))
	for i, p := range s.Pages {
		html, err := md.Convert(p.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.Source, err)
		}
		pages[i] = evaluator.FromGo(p.Map(html))
	}
	return evaluator.NewMap(map[string]evaluator.Object{
		"CONFIG": evaluator.FromGo(s.Config),
		"PAGES":  &evaluator.Array{Elements: pages},
	}), nil
}
