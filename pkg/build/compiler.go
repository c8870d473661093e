// Package build renders a site and keeps it up to date as its sources change.
//
// Every page render records the templates it pulled in. When files change,
// Invalidate re-renders exactly the pages that reached one of them, so an
// incremental build produces the same outputs as a full one.
package build

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sambeau/thyme/config"
	"github.com/sambeau/thyme/internal/logging"
	"github.com/sambeau/thyme/pkg/content"
	"github.com/sambeau/thyme/pkg/thyme/evaluator"
)

// Result is the outcome of a render batch.
type Result struct {
	Rendered map[string][]byte // output path -> page
	Removed  []string          // output paths no longer produced
	Errors   error             // *BatchError, or nil
}

// Reloader rereads the configuration when the config file changes.
type Reloader func() (*config.Config, error)

// Compiler renders pages and tracks their dependencies. Batches are
// serialized; the pages within a batch render in parallel.
type Compiler struct {
	logger *slog.Logger
	reload Reloader
	md     *content.Markdown
	graph  *Graph

	batch sync.Mutex // held for the duration of FullRender and Invalidate

	cfg     *config.Config
	cache   *SourceCache
	site    *content.Site
	engine  *evaluator.Engine
	outputs map[string]string   // owner -> output path
	dirty   map[string]struct{} // owners left unrendered by a cancelled batch
	stale   bool                // site snapshot must be reloaded
}

// job is one output to render.
type job struct {
	owner  string
	output string
	page   *content.Page // nil for standalone templates
	ref    string        // template reference of a standalone page
}

type outcome struct {
	job   job
	html  string
	edges []Edge
	err   error
}

// New returns a compiler for cfg. reload may be nil when the configuration
// never changes.
func New(cfg *config.Config, reload Reloader, logger *slog.Logger) *Compiler {
	return &Compiler{
		logger:  logging.OrDiscard(logger),
		reload:  reload,
		md:      content.NewMarkdown(),
		graph:   NewGraph(),
		cfg:     cfg,
		cache:   NewSourceCache(cfg.TemplatesPath()),
		outputs: map[string]string{},
		dirty:   map[string]struct{}{},
		stale:   true,
	}
}

// Config returns the configuration of the last batch.
func (c *Compiler) Config() *config.Config {
	c.batch.Lock()
	defer c.batch.Unlock()
	return c.cfg
}

// Engine returns the engine of the last loaded snapshot, loading one if needed.
func (c *Compiler) Engine(ctx context.Context) (*evaluator.Engine, error) {
	c.batch.Lock()
	defer c.batch.Unlock()
	if c.engine == nil || c.stale {
		site, engine, err := c.loadSite(ctx)
		if site == nil {
			return nil, err
		}
		c.site, c.engine, c.stale = site, engine, false
	}
	return c.engine, nil
}

// Site returns the content snapshot of the last committed batch.
func (c *Compiler) Site() *content.Site {
	c.batch.Lock()
	defer c.batch.Unlock()
	return c.site
}

// Outputs returns the output path of every owner rendered so far.
func (c *Compiler) Outputs() map[string]string {
	c.batch.Lock()
	defer c.batch.Unlock()
	out := make(map[string]string, len(c.outputs))
	for k, v := range c.outputs {
		out[k] = v
	}
	return out
}

// FullRender renders every page, replacing the whole dependency graph.
func (c *Compiler) FullRender(ctx context.Context) (*Result, error) {
	c.batch.Lock()
	defer c.batch.Unlock()
	return c.fullRender(ctx)
}

func (c *Compiler) fullRender(ctx context.Context) (*Result, error) {
	start := time.Now()

	site, engine, loadErr := c.loadSite(ctx)
	if site == nil {
		return nil, loadErr
	}
	jobs := c.plan(site)

	outcomes, err := c.run(ctx, engine, jobs)
	if err != nil {
		for _, j := range jobs {
			c.dirty[j.owner] = struct{}{}
		}
		c.stale = true
		return nil, err
	}

	c.site, c.engine, c.stale = site, engine, false
	res := c.commit(jobs, outcomes, loadErr)
	c.prune(jobs, res)
	c.logBatch("full render", start, res)
	return res, nil
}

// Invalidate re-renders whatever depends on paths. A changed config file
// triggers a full render; a changed content file reloads the site snapshot
// and re-renders the page itself and everything that reads GLOBAL.
func (c *Compiler) Invalidate(ctx context.Context, paths ...string) (*Result, error) {
	c.batch.Lock()
	defer c.batch.Unlock()
	start := time.Now()

	changed := make([]string, len(paths))
	for i, p := range paths {
		changed[i] = filepath.Clean(p)
	}
	c.cache.Forget(changed...)

	for _, p := range changed {
		if c.cfg.Path != "" && p == c.cfg.Path {
			return c.reconfigure(ctx)
		}
		if c.isContent(p) {
			c.stale = true
		}
	}

	affected := map[string]struct{}{}
	for _, owner := range c.graph.Affected(changed...) {
		affected[owner] = struct{}{}
	}
	for owner := range c.dirty {
		affected[owner] = struct{}{}
	}

	site, engine := c.site, c.engine
	var loadErr error
	if c.stale || site == nil {
		site, engine, loadErr = c.loadSite(ctx)
		if site == nil {
			for owner := range affected {
				c.dirty[owner] = struct{}{}
			}
			return nil, loadErr
		}
		for _, owner := range c.graph.Dependents(evaluator.GlobalNode) {
			affected[owner] = struct{}{}
		}
	}
	jobs := c.plan(site)

	// new owners, and owners whose output moved, render whatever changed
	todo := map[string]job{}
	for owner, j := range jobs {
		prev, seen := c.outputs[owner]
		_, hit := affected[owner]
		if hit || !seen || prev != j.output {
			todo[owner] = j
		}
	}

	outcomes, err := c.run(ctx, engine, todo)
	if err != nil {
		for owner := range todo {
			c.dirty[owner] = struct{}{}
		}
		c.stale = c.stale || site != c.site
		return nil, err
	}

	c.site, c.engine, c.stale = site, engine, false
	res := c.commit(jobs, outcomes, loadErr)
	c.prune(jobs, res)
	c.logBatch("incremental render", start, res, "changed", len(changed))
	return res, nil
}

// reconfigure rereads the config file and renders everything again.
func (c *Compiler) reconfigure(ctx context.Context) (*Result, error) {
	if c.reload == nil {
		return c.fullRender(ctx)
	}
	cfg, err := c.reload()
	if err != nil {
		return nil, err
	}
	c.logger.Info("configuration reloaded", "path", cfg.Path)

	previous := c.outputs
	c.cfg = cfg
	c.cache = NewSourceCache(cfg.TemplatesPath())
	c.graph.Reset()
	c.outputs = map[string]string{}
	c.dirty = map[string]struct{}{}
	c.stale = true

	res, err := c.fullRender(ctx)
	if err != nil {
		return nil, err
	}
	current := map[string]struct{}{}
	for _, output := range c.outputs {
		current[output] = struct{}{}
	}
	for _, output := range previous {
		if _, ok := current[output]; !ok {
			res.Removed = append(res.Removed, output)
		}
	}
	sort.Strings(res.Removed)
	return res, nil
}

func (c *Compiler) isContent(path string) bool {
	rel, err := filepath.Rel(c.cfg.ContentDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return content.IsPage(path) || filepath.Ext(path) == ""
}

// loadSite reads the content directory through the cache. Pages that fail to
// load are reported in err while the rest of the site is still returned.
func (c *Compiler) loadSite(ctx context.Context) (*content.Site, *evaluator.Engine, error) {
	site, err := content.Load(ctx, content.Options{
		Dir:    c.cfg.ContentDir,
		Layout: c.cfg.Theme.Page,
		Drafts: c.cfg.Build.Drafts,
		Config: c.cfg.SiteMap(),
		Read:   c.cache.Read,
	})
	if site == nil {
		return nil, nil, err
	}
	global, gerr := site.Global(c.md)
	if gerr != nil {
		return nil, nil, gerr
	}
	engine := &evaluator.Engine{
		Loader:        c.cache,
		ShortcodeRoot: c.cfg.Theme.Shortcodes,
		Global:        global,
	}
	return site, engine, err
}

// plan lists every output of site: one per page, plus the standalone index
// and not-found pages when their templates exist and no page claims them.
func (c *Compiler) plan(site *content.Site) map[string]job {
	jobs := make(map[string]job, len(site.Pages)+2)
	for _, p := range site.Pages {
		jobs[p.Source] = job{owner: p.Source, output: p.Output, page: p}
	}

	claimedOutputs := site.Outputs()
	for _, s := range []struct{ ref, output string }{
		{c.cfg.Theme.Index, "index.html"},
		{c.cfg.Theme.NotFound, "404.html"},
	} {
		if s.ref == "" {
			continue
		}
		if _, ok := claimedOutputs[s.output]; ok {
			continue
		}
		owner := filepath.Join(c.cache.Root(), filepath.FromSlash(s.ref))
		if info, err := os.Stat(owner); err != nil || !info.Mode().IsRegular() {
			continue
		}
		jobs[owner] = job{owner: owner, output: s.output, ref: s.ref}
	}
	return jobs
}

func claimed(jobs map[string]job, output string) bool {
	for _, j := range jobs {
		if j.output == output {
			return true
		}
	}
	return false
}

// run renders jobs in parallel. It fails only when ctx is done; render errors
// are returned in the outcomes.
func (c *Compiler) run(ctx context.Context, engine *evaluator.Engine, jobs map[string]job) ([]outcome, error) {
	workers := c.cfg.Build.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var mu sync.Mutex
	outcomes := make([]outcome, 0, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, j := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			o := c.render(gctx, engine, j)
			if errors.Is(o.err, context.Canceled) || errors.Is(o.err, context.DeadlineExceeded) {
				return o.err
			}
			mu.Lock()
			outcomes = append(outcomes, o)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// render produces one output. A page body is rendered as a template with the
// page as its current object, converted from markdown, and handed to the
// layout as .content.
func (c *Compiler) render(ctx context.Context, engine *evaluator.Engine, j job) outcome {
	rec := &recorder{}
	o := outcome{job: j}

	if j.page == nil {
		this := evaluator.FromGo(map[string]any{"url": "/" + j.output})
		o.html, o.err = engine.RenderFile(ctx, "", j.ref, this, rec)
		o.edges = rec.edges
		return o
	}

	p := j.page
	body := p.Body
	if !p.Raw {
		tmpl, err := c.cache.Load(ctx, p.Source)
		if err != nil {
			o.err = err
			return o
		}
		body, err = engine.Render(ctx, tmpl, p.Source, evaluator.FromGo(p.Meta), rec)
		if err != nil {
			o.err = err
			o.edges = rec.edges
			return o
		}
	}

	html, err := c.md.Convert(body)
	if err != nil {
		o.err = err
		return o
	}
	o.html, o.err = engine.RenderFile(ctx, p.Source, p.Template, evaluator.FromGo(p.Map(html)), rec)
	o.edges = rec.edges
	return o
}

// prune forgets owners that are no longer planned and reports their outputs
// as removed unless another owner now writes them.
func (c *Compiler) prune(jobs map[string]job, res *Result) {
	for owner, output := range c.outputs {
		if _, ok := jobs[owner]; ok {
			continue
		}
		c.graph.Remove(owner)
		delete(c.outputs, owner)
		delete(c.dirty, owner)
		if !claimed(jobs, output) {
			res.Removed = append(res.Removed, output)
		}
	}
	sort.Strings(res.Removed)
}

// commit records the outcomes of a finished batch against the full plan.
// Failed pages keep their edges so that fixing what broke them re-renders them.
func (c *Compiler) commit(jobs map[string]job, outcomes []outcome, loadErr error) *Result {
	res := &Result{Rendered: make(map[string][]byte, len(outcomes))}

	var errs []error
	if loadErr != nil {
		errs = append(errs, loadErr)
	}
	for _, o := range outcomes {
		c.graph.Replace(o.job.owner, o.edges)
		delete(c.dirty, o.job.owner)
		if prev, ok := c.outputs[o.job.owner]; ok && prev != o.job.output && !claimed(jobs, prev) {
			res.Removed = append(res.Removed, prev)
		}
		c.outputs[o.job.owner] = o.job.output

		if o.err != nil {
			errs = append(errs, &PageError{Owner: o.job.owner, Output: o.job.output, Err: o.err})
			continue
		}
		res.Rendered[o.job.output] = []byte(o.html)
		c.logger.Debug("page rendered", "page", o.job.owner, "output", o.job.output,
			"dependencies", len(c.graph.Dependencies(o.job.owner)))
	}
	res.Errors = newBatchError(errs)
	return res
}

func (c *Compiler) logBatch(msg string, start time.Time, res *Result, attrs ...any) {
	failed := 0
	var be *BatchError
	if errors.As(res.Errors, &be) {
		failed = len(be.Errors)
	}
	hits, misses := c.cache.Stats()
	attrs = append(attrs,
		"rendered", len(res.Rendered),
		"removed", len(res.Removed),
		"failed", failed,
		"tracked", len(c.graph.Owners()),
		"cache_hits", hits,
		"cache_misses", misses,
		"duration", time.Since(start),
	)
	c.logger.Info(msg, attrs...)
	if be != nil {
		for _, err := range be.Errors {
			c.logger.Warn("render failed", "error", err)
		}
	}
}
