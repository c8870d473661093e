package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func noenv(string) string { return "" }

func TestRunVersion(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := run(context.Background(), []string{"--version"}, stdout, stderr, noenv)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout.String(), "thyme version "+Version) {
		t.Errorf("expected version output, got %q", stdout.String())
	}
}

func TestRunHelp(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := run(context.Background(), []string{"--help"}, stdout, stderr, noenv)

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	output := stdout.String()
	for _, want := range []string{"thyme - a static site generator", "build", "server", "eval", "new"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in help, got %q", want, output)
		}
	}
}

func TestRunInvalidFlag(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := run(context.Background(), []string{"build", "--invalid-flag"}, stdout, stderr, noenv)

	if err == nil {
		t.Error("expected error for invalid flag")
	}
}

func TestRunMissingConfig(t *testing.T) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	err := run(context.Background(), []string{"build", "--config", "/nonexistent/config.yaml"}, stdout, stderr, noenv)

	if err == nil {
		t.Fatal("expected error for missing config")
	}
	if !strings.Contains(err.Error(), "config file not found") {
		t.Errorf("expected 'config file not found' error, got %q", err.Error())
	}
}

func TestNewThenBuild(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "my-blog")
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	if err := run(context.Background(), []string{"new", dir}, stdout, stderr, noenv); err != nil {
		t.Fatalf("new: %v\n%s", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), `"My Blog"`) {
		t.Errorf("expected title in output, got %q", stdout.String())
	}
	cfg, err := os.ReadFile(filepath.Join(dir, "thyme.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(cfg), `title: "My Blog"`) {
		t.Errorf("title not written to config:\n%s", cfg)
	}

	stdout.Reset()
	if err := run(context.Background(), []string{"build", "--root", dir}, stdout, stderr, noenv); err != nil {
		t.Fatalf("build: %v\n%s", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Built 3 page(s)") {
		t.Errorf("unexpected build output %q", stdout.String())
	}

	index, err := os.ReadFile(filepath.Join(dir, "public", "index.html"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"<title>Welcome | My Blog</title>",
		`<aside class="note">`,
		`<a href="/posts/hello.html">Hello, world</a>`,
	} {
		if !strings.Contains(string(index), want) {
			t.Errorf("index.html missing %q:\n%s", want, index)
		}
	}
	for _, name := range []string{"posts/hello.html", "404.html", "style.css"} {
		if _, err := os.Stat(filepath.Join(dir, "public", filepath.FromSlash(name))); err != nil {
			t.Errorf("missing output %s: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, ".thyme", "manifest.db")); err != nil {
		t.Errorf("missing manifest: %v", err)
	}
}

func TestNewRefusesNonEmptyDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := run(context.Background(), []string{"new", dir}, &bytes.Buffer{}, &bytes.Buffer{}, noenv)
	if err == nil || !strings.Contains(err.Error(), "not empty") {
		t.Fatalf("expected not empty error, got %v", err)
	}

	if err := run(context.Background(), []string{"new", "--force", dir}, &bytes.Buffer{}, &bytes.Buffer{}, noenv); err != nil {
		t.Fatalf("new --force: %v", err)
	}
}

func TestBuildReportsPageErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name, data string) {
		t.Helper()
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("theme/templates/page.html", `{: .content :}{- include "missing" -}`)
	write("content/a.md", "a\n")

	stderr := &bytes.Buffer{}
	err := run(context.Background(), []string{"build", "--root", dir}, &bytes.Buffer{}, stderr, noenv)
	if err == nil || !strings.Contains(err.Error(), "build failed: 1 error(s)") {
		t.Fatalf("expected build failure, got %v", err)
	}
	if !strings.Contains(stderr.String(), "a.html") {
		t.Errorf("expected failing page in stderr, got %q", stderr.String())
	}
}
