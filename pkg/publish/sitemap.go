package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sambeau/thyme/pkg/content"
)

// SitemapFile is written at the root of the output directory.
const SitemapFile = "sitemap.json"

// Sitemap lists every published content page, keyed by its path relative
// to the content directory.
type Sitemap struct {
	URLSet map[string]SitemapEntry `json:"urlset"`
}

// SitemapEntry describes one page.
type SitemapEntry struct {
	URL     string         `json:"url"`
	LastMod int64          `json:"lastmod"` // unix seconds of the source file
	Meta    map[string]any `json:"meta"`
}

// NewSitemap builds the sitemap of site.
func NewSitemap(site *content.Site) (*Sitemap, error) {
	sm := &Sitemap{URLSet: make(map[string]SitemapEntry, len(site.Pages))}
	for _, p := range site.Pages {
		info, err := os.Stat(p.Source)
		if err != nil {
			return nil, fmt.Errorf("sitemap: %w", err)
		}
		sm.URLSet[p.Rel] = SitemapEntry{
			URL:     p.URL,
			LastMod: info.ModTime().Unix(),
			Meta:    p.Meta,
		}
	}
	return sm, nil
}

// writeSitemap publishes the sitemap of site.
func (p *Publisher) writeSitemap(ctx context.Context, site *content.Site) (bool, error) {
	sm, err := NewSitemap(site)
	if err != nil {
		return false, err
	}
	data, err := json.MarshalIndent(sm, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encoding %s: %w", SitemapFile, err)
	}
	return p.write(ctx, SitemapFile, KindPage, append(data, '\n'))
}
