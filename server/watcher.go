package server

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 100 * time.Millisecond

// ChangeFunc receives a batch of changed paths.
type ChangeFunc func(ctx context.Context, paths []string)

// Watcher monitors the site sources and reports settled batches of changes.
type Watcher struct {
	watcher    *fsnotify.Watcher
	roots      []string
	configPath string
	debounce   time.Duration
	onChange   ChangeFunc
	logger     *slog.Logger
}

// NewWatcher creates a watcher over roots (recursively) and the config file.
func NewWatcher(roots []string, configPath string, onChange ChangeFunc, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	clean := make([]string, 0, len(roots))
	for _, r := range roots {
		if r != "" {
			clean = append(clean, filepath.Clean(r))
		}
	}
	return &Watcher{
		watcher:    fsWatcher,
		roots:      clean,
		configPath: configPath,
		debounce:   DefaultDebounce,
		onChange:   onChange,
		logger:     logger,
	}, nil
}

// Start adds the watches and runs the event loop until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	if w.configPath != "" {
		dir := filepath.Dir(w.configPath)
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("failed to watch config dir", "dir", dir, "error", err)
		}
	}
	for _, root := range w.roots {
		if err := w.watchDirRecursive(root, nil); err != nil {
			w.logger.Warn("failed to watch directory", "dir", root, "error", err)
			continue
		}
		w.logger.Debug("watching", "dir", root)
	}

	go w.eventLoop(ctx)
	return nil
}

// watchDirRecursive adds a directory and its subdirectories to the watch
// list. Files found along the way are passed to found.
func (w *Watcher) watchDirRecursive(root string, found func(string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if isHidden(path) && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		if found != nil {
			found(path)
		}
		return nil
	})
}

func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~")
}

// relevant reports whether path is a source the watcher reports.
func (w *Watcher) relevant(path string) bool {
	if w.configPath != "" && path == w.configPath {
		return true
	}
	if isHidden(path) {
		return false
	}
	for _, root := range w.roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// batch is a call to onChange that may still be running.
type batch struct {
	paths  []string
	cancel context.CancelFunc
	done   chan struct{}
}

// supersede cancels b if it is still running and waits for it to return.
// It reports whether b was cut short.
func (b *batch) supersede() bool {
	select {
	case <-b.done:
		return false
	default:
	}
	b.cancel()
	<-b.done
	return true
}

func (w *Watcher) eventLoop(ctx context.Context) {
	pending := map[string]struct{}{}
	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	var running *batch
	defer func() {
		if running != nil {
			running.supersede()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			path := filepath.Clean(event.Name)
			if !w.relevant(path) {
				continue
			}
			pending[path] = struct{}{}

			// a new directory may already hold files
			if event.Has(fsnotify.Create) {
				w.watchDirRecursive(path, func(p string) { pending[p] = struct{}{} })
			}
			timer.Reset(w.debounce)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			// a newer change replaces a rebuild still in progress
			if running != nil && running.supersede() {
				w.logger.Debug("rebuild superseded", "count", len(running.paths))
				for _, p := range running.paths {
					pending[p] = struct{}{}
				}
			}

			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = map[string]struct{}{}

			w.logger.Info("files changed", "count", len(paths), "first", paths[0])
			running = w.start(ctx, paths)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// start runs onChange for paths in the background under its own context.
func (w *Watcher) start(ctx context.Context, paths []string) *batch {
	bctx, cancel := context.WithCancel(ctx)
	b := &batch{paths: paths, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(b.done)
		defer cancel()
		w.onChange(bctx, paths)
	}()
	return b
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
