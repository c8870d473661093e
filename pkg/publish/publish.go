// Package publish writes rendered pages and theme assets to the output
// directory.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/natefinch/atomic"

	"github.com/sambeau/thyme/config"
	"github.com/sambeau/thyme/internal/logging"
	"github.com/sambeau/thyme/pkg/build"
	"github.com/sambeau/thyme/pkg/content"
)

// ManifestPath is where the manifest lives, relative to the project root.
const ManifestPath = ".thyme/manifest.db"

// Stats counts what a publish did.
type Stats struct {
	Written   int
	Unchanged int
	Removed   int
}

func (s Stats) changed() bool { return s.Written > 0 || s.Removed > 0 }

func (s *Stats) count(wrote bool, err error, errs *[]error) {
	switch {
	case err != nil:
		*errs = append(*errs, err)
	case wrote:
		s.Written++
	default:
		s.Unchanged++
	}
}

// Publisher is the only writer to the output directory.
type Publisher struct {
	outDir    string
	staticDir string
	manifest  *Manifest
	logger    *slog.Logger

	mu       sync.Mutex
	baseURL  string
	seq      uint64
	modified time.Time
}

// New opens the publisher for cfg, keeping the manifest under the project root.
func New(cfg *config.Config, logger *slog.Logger) (*Publisher, error) {
	p, err := Open(cfg.OutputDir, cfg.StaticPath(), filepath.Join(cfg.BaseDir, filepath.FromSlash(ManifestPath)), logger)
	if err != nil {
		return nil, err
	}
	p.SetBaseURL(cfg.Site.BaseURL)
	return p, nil
}

// Open returns a publisher writing to outDir. manifestPath may be empty for
// an in-memory manifest.
func Open(outDir, staticDir, manifestPath string, logger *slog.Logger) (*Publisher, error) {
	m, err := OpenManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	return &Publisher{
		outDir:    filepath.Clean(outDir),
		staticDir: staticDir,
		manifest:  m,
		logger:    logging.OrDiscard(logger),
	}, nil
}

// Close closes the manifest.
func (p *Publisher) Close() error {
	return p.manifest.Close()
}

// SetBaseURL sets the prefix given to root-relative links in published
// pages. Empty leaves links alone.
func (p *Publisher) SetBaseURL(base string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.baseURL = base
}

// LastModified returns the change sequence and the time of the last publish
// that touched the output directory.
func (p *Publisher) LastModified() (uint64, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.seq, p.modified
}

func (p *Publisher) touch(s Stats) {
	if !s.changed() {
		return
	}
	p.mu.Lock()
	p.seq++
	p.modified = time.Now()
	p.mu.Unlock()
}

// Publish writes the rendered pages of res and removes the outputs it no
// longer produces. Every failure is reported; the remaining files are still
// written.
func (p *Publisher) Publish(ctx context.Context, res *build.Result) (Stats, error) {
	return p.publish(ctx, res, nil)
}

// publish is Publish, also writing the sitemap of site when it is not nil.
func (p *Publisher) publish(ctx context.Context, res *build.Result, site *content.Site) (Stats, error) {
	var stats Stats
	var errs []error

	p.mu.Lock()
	base := p.baseURL
	p.mu.Unlock()

	paths := make([]string, 0, len(res.Rendered))
	for rel := range res.Rendered {
		paths = append(paths, rel)
	}
	sort.Strings(paths)

	for _, rel := range paths {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		data := res.Rendered[rel]
		if base != "" && isHTML(rel) {
			rewritten, err := RewriteLinks(data, base)
			if err != nil {
				p.logger.Warn("links left unrewritten", "path", rel, "error", err)
			} else {
				data = rewritten
			}
		}
		wrote, err := p.write(ctx, rel, KindPage, data)
		stats.count(wrote, err, &errs)
	}

	if site != nil {
		wrote, err := p.writeSitemap(ctx, site)
		stats.count(wrote, err, &errs)
	}

	for _, rel := range res.Removed {
		if _, ok := res.Rendered[rel]; ok {
			continue
		}
		if err := p.remove(ctx, rel); err != nil {
			errs = append(errs, err)
			continue
		}
		stats.Removed++
	}

	p.touch(stats)
	p.logger.Debug("published", "written", stats.Written, "unchanged", stats.Unchanged, "removed", stats.Removed)
	return stats, errors.Join(errs...)
}

// Sweep removes published pages that are not in keep, such as the outputs of
// pages deleted while nothing was watching.
func (p *Publisher) Sweep(ctx context.Context, keep map[string]bool) (Stats, error) {
	var stats Stats
	known, err := p.manifest.Paths(ctx, KindPage)
	if err != nil {
		return stats, err
	}

	var errs []error
	for _, rel := range known {
		if keep[rel] {
			continue
		}
		if err := p.remove(ctx, rel); err != nil {
			errs = append(errs, err)
			continue
		}
		stats.Removed++
	}
	p.touch(stats)
	return stats, errors.Join(errs...)
}

// CopyStatic mirrors the theme's static directory into the output directory.
// Files deleted from the static directory since the last copy are removed.
func (p *Publisher) CopyStatic(ctx context.Context) (Stats, error) {
	var stats Stats
	var errs []error
	seen := map[string]bool{}

	err := filepath.WalkDir(p.staticDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == p.staticDir && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != p.staticDir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(p.staticDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		seen[rel] = true

		data, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("reading %s: %w", path, err))
			return nil
		}
		wrote, err := p.write(ctx, rel, KindStatic, data)
		stats.count(wrote, err, &errs)
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("copying %s: %w", p.staticDir, err)
	}

	known, err := p.manifest.Paths(ctx, KindStatic)
	if err != nil {
		return stats, err
	}
	for _, rel := range known {
		if seen[rel] {
			continue
		}
		if err := p.remove(ctx, rel); err != nil {
			errs = append(errs, err)
			continue
		}
		stats.Removed++
	}

	p.touch(stats)
	return stats, errors.Join(errs...)
}

func isHTML(rel string) bool {
	ext := strings.ToLower(filepath.Ext(rel))
	return ext == ".html" || ext == ".htm"
}

// target maps an output path to a file inside the output directory.
func (p *Publisher) target(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if rel == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("output path %q escapes %s", rel, p.outDir)
	}
	return filepath.Join(p.outDir, clean), nil
}

// write stores data at rel unless the manifest shows it is already there.
func (p *Publisher) write(ctx context.Context, rel string, kind Kind, data []byte) (bool, error) {
	path, err := p.target(rel)
	if err != nil {
		return false, err
	}

	same, err := p.manifest.Unchanged(ctx, rel, data)
	if err != nil {
		return false, err
	}
	if same {
		if info, err := os.Stat(path); err == nil && info.Size() == int64(len(data)) {
			return false, nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("creating directory for %s: %w", rel, err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return false, fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := p.manifest.Put(ctx, rel, kind, data); err != nil {
		return false, err
	}
	return true, nil
}

// remove deletes rel and any directories it leaves empty.
func (p *Publisher) remove(ctx context.Context, rel string) error {
	path, err := p.target(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", rel, err)
	}
	for dir := filepath.Dir(path); dir != p.outDir && strings.HasPrefix(dir, p.outDir); dir = filepath.Dir(dir) {
		if os.Remove(dir) != nil {
			break
		}
	}
	return p.manifest.Delete(ctx, rel)
}
