package publish

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/sambeau/thyme/pkg/build"
)

// Build renders the whole site with c and publishes it, along with the
// static assets and the sitemap. Pages left over from earlier builds are
// swept. Render failures are returned in the result; the error reports
// publishing problems.
func (p *Publisher) Build(ctx context.Context, c *build.Compiler) (*build.Result, error) {
	res, err := c.FullRender(ctx)
	if err != nil {
		return nil, err
	}
	p.SetBaseURL(c.Config().Site.BaseURL)

	var errs []error
	if _, err := p.publish(ctx, res, c.Site()); err != nil {
		errs = append(errs, err)
	}
	if _, err := p.CopyStatic(ctx); err != nil {
		errs = append(errs, err)
	}

	keep := map[string]bool{SitemapFile: true}
	for _, output := range c.Outputs() {
		keep[output] = true
	}
	if _, err := p.Sweep(ctx, keep); err != nil {
		errs = append(errs, err)
	}
	return res, errors.Join(errs...)
}

// Update re-renders what depends on the changed paths and publishes the
// result with a refreshed sitemap. Static assets are recopied when one of
// them changed.
func (p *Publisher) Update(ctx context.Context, c *build.Compiler, paths []string) (*build.Result, error) {
	res, err := c.Invalidate(ctx, paths...)
	if err != nil {
		return nil, err
	}
	p.SetBaseURL(c.Config().Site.BaseURL)

	var errs []error
	if _, err := p.publish(ctx, res, c.Site()); err != nil {
		errs = append(errs, err)
	}
	if p.touchesStatic(paths) {
		if _, err := p.CopyStatic(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return res, errors.Join(errs...)
}

func (p *Publisher) touchesStatic(paths []string) bool {
	root := filepath.Clean(p.staticDir)
	for _, path := range paths {
		path = filepath.Clean(path)
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
