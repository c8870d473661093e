package main

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/sambeau/thyme/config"
	"github.com/sambeau/thyme/pkg/content"
)

//go:embed scaffold
var scaffoldFS embed.FS

type newCmd struct {
	Path  string `arg:"" help:"Directory to create the site in" type:"path"`
	Force bool   `help:"Write into a directory that is not empty" short:"f"`
}

// Run writes a starter site.
func (n *newCmd) Run(_ context.Context, e *env) error {
	if entries, err := os.ReadDir(n.Path); err == nil && len(entries) > 0 && !n.Force {
		return fmt.Errorf("%s is not empty (use --force to write into it)", n.Path)
	}

	title := content.TitleFromPath(filepath.Base(n.Path))
	if err := scaffold(n.Path, title); err != nil {
		return err
	}
	fmt.Fprintf(e.stdout, "Created %q in %s\n", title, n.Path)
	fmt.Fprintf(e.stdout, "Run: thyme server --root %s\n", n.Path)
	return nil
}

// scaffold copies the starter site into dir.
func scaffold(dir, title string) error {
	root, err := fs.Sub(scaffoldFS, "scaffold")
	if err != nil {
		return err
	}
	return fs.WalkDir(root, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dir, filepath.FromSlash(path))
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		data, err := fs.ReadFile(root, path)
		if err != nil {
			return err
		}
		if path == config.FileName {
			data = bytes.ReplaceAll(data, []byte("SITE_TITLE"), []byte(title))
		}
		if err := atomic.WriteFile(target, bytes.NewReader(data)); err != nil {
			return fmt.Errorf("writing %s: %w", target, err)
		}
		return nil
	})
}
