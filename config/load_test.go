package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}
	if !cfg.Server.LiveReload {
		t.Error("expected live reload to default on")
	}
	if cfg.ContentDir != "content" || cfg.OutputDir != "public" {
		t.Errorf("unexpected default dirs %q, %q", cfg.ContentDir, cfg.OutputDir)
	}
	if cfg.Theme.Page != "page.html" {
		t.Errorf("expected default page template 'page.html', got %q", cfg.Theme.Page)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected default log level 'info', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected default log format 'text', got %q", cfg.Logging.Format)
	}
}

func TestInterpolateEnv(t *testing.T) {
	getenv := func(key string) string {
		switch key {
		case "TEST_HOST":
			return "example.com"
		case "TEST_PORT":
			return "9000"
		default:
			return ""
		}
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple substitution",
			input:    "host: ${TEST_HOST}",
			expected: "host: example.com",
		},
		{
			name:     "with default (env set)",
			input:    "host: ${TEST_HOST:-localhost}",
			expected: "host: example.com",
		},
		{
			name:     "with default (env not set)",
			input:    "host: ${UNSET_VAR:-localhost}",
			expected: "host: localhost",
		},
		{
			name:     "multiple substitutions",
			input:    "addr: ${TEST_HOST}:${TEST_PORT}",
			expected: "addr: example.com:9000",
		},
		{
			name:     "no substitution needed",
			input:    "static: value",
			expected: "static: value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := string(interpolateEnv([]byte(tt.input), getenv))
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, FileName)

	configContent := `
site:
  title: Notes
  base_url: https://example.com
  params:
    github: sambeau

content_dir: posts
output_dir: ${OUT_DIR:-dist}

theme:
  dir: themes/plain
  page: post.html

build:
  workers: 4
  drafts: true

server:
  port: 8080

logging:
  level: debug
  format: json
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, path, err := LoadWithPath("", dir, func(string) string { return "" })
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if path != configPath || cfg.Path != configPath {
		t.Errorf("expected path %q, got %q / %q", configPath, path, cfg.Path)
	}
	if cfg.Site.Title != "Notes" {
		t.Errorf("expected title 'Notes', got %q", cfg.Site.Title)
	}
	if cfg.Site.Params["github"] != "sambeau" {
		t.Errorf("expected params.github, got %v", cfg.Site.Params)
	}

	// directories are resolved against the config file
	if cfg.ContentDir != filepath.Join(dir, "posts") {
		t.Errorf("unexpected content dir %q", cfg.ContentDir)
	}
	if cfg.OutputDir != filepath.Join(dir, "dist") {
		t.Errorf("unexpected output dir %q", cfg.OutputDir)
	}
	if got, want := cfg.TemplatesPath(), filepath.Join(dir, "themes", "plain", "templates"); got != want {
		t.Errorf("expected templates path %q, got %q", want, got)
	}
	if got, want := cfg.StaticPath(), filepath.Join(dir, "themes", "plain", "static"); got != want {
		t.Errorf("expected static path %q, got %q", want, got)
	}

	// unset keys keep their defaults
	if cfg.Theme.Page != "post.html" || cfg.Theme.Index != "index.html" {
		t.Errorf("unexpected theme %+v", cfg.Theme)
	}
	if cfg.Build.Workers != 4 || !cfg.Build.Drafts {
		t.Errorf("unexpected build %+v", cfg.Build)
	}
	if cfg.Server.Port != 8080 || cfg.Server.Host != "localhost" {
		t.Errorf("unexpected server %+v", cfg.Server)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging %+v", cfg.Logging)
	}
}

func TestLoadWithEnvInterpolation(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "custom.yaml")

	configContent := `
site:
  title: ${SITE_TITLE}
server:
  port: ${PORT:-3000}
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	getenv := func(key string) string {
		if key == "SITE_TITLE" {
			return "From Env"
		}
		return ""
	}

	cfg, err := Load(configPath, "", getenv)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Site.Title != "From Env" {
		t.Errorf("expected title from env, got %q", cfg.Site.Title)
	}
	if cfg.Server.Port != 3000 {
		t.Errorf("expected port 3000, got %d", cfg.Server.Port)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name      string
		config    string
		expectErr bool
		errSubstr string
	}{
		{
			name:      "valid minimal",
			config:    "site:\n  title: x\n",
			expectErr: false,
		},
		{
			name:      "invalid port",
			config:    "server:\n  port: 70000\n",
			expectErr: true,
			errSubstr: "invalid port",
		},
		{
			name:      "invalid log level",
			config:    "logging:\n  level: verbose\n",
			expectErr: true,
			errSubstr: "invalid log level",
		},
		{
			name:      "invalid log format",
			config:    "logging:\n  format: xml\n",
			expectErr: true,
			errSubstr: "invalid log format",
		},
		{
			name:      "content and output collide",
			config:    "content_dir: site\noutput_dir: site\n",
			expectErr: true,
			errSubstr: "must differ",
		},
		{
			name:      "page template escapes theme",
			config:    "theme:\n  page: ../page.html\n",
			expectErr: true,
			errSubstr: "theme.page must be a path inside",
		},
		{
			name:      "negative workers",
			config:    "build:\n  workers: -1\n",
			expectErr: true,
			errSubstr: "build.workers",
		},
		{
			name:      "bad yaml",
			config:    "site: [",
			expectErr: true,
			errSubstr: "failed to parse config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			configPath := filepath.Join(dir, FileName)
			if err := os.WriteFile(configPath, []byte(tt.config), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			_, err := Load(configPath, "", os.Getenv)

			if tt.expectErr {
				if err == nil {
					t.Error("expected error, got nil")
				} else if tt.errSubstr != "" && !strings.Contains(err.Error(), tt.errSubstr) {
					t.Errorf("expected error containing %q, got %q", tt.errSubstr, err.Error())
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidationReportsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 0
	cfg.Logging.Level = "loud"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"invalid port", "invalid log level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %q", want, err.Error())
		}
	}
}

func TestResolveConfigPath(t *testing.T) {
	noenv := func(string) string { return "" }

	if _, err := resolveConfigPath("/nonexistent/path/thyme.yaml", "", noenv); err == nil {
		t.Error("expected error for nonexistent path")
	}

	dir := t.TempDir()
	configPath := filepath.Join(dir, "custom.yaml")
	if err := os.WriteFile(configPath, []byte(""), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	resolved, err := resolveConfigPath(configPath, "", noenv)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if resolved != configPath {
		t.Errorf("expected %q, got %q", configPath, resolved)
	}

	// THYME_CONFIG wins over the project root
	resolved, err = resolveConfigPath("", t.TempDir(), func(key string) string {
		if key == "THYME_CONFIG" {
			return configPath
		}
		return ""
	})
	if err != nil || resolved != configPath {
		t.Errorf("expected %q from env, got %q (%v)", configPath, resolved, err)
	}

	if _, err := resolveConfigPath("", t.TempDir(), noenv); !errors.Is(err, ErrNoConfig) {
		t.Errorf("expected ErrNoConfig when root has no config, got %v", err)
	}
}

func TestForDir(t *testing.T) {
	dir := t.TempDir()
	cfg, err := ForDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ContentDir != filepath.Join(dir, "content") {
		t.Errorf("unexpected content dir %q", cfg.ContentDir)
	}
	if cfg.Path != "" {
		t.Errorf("expected no config path, got %q", cfg.Path)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestSiteMap(t *testing.T) {
	cfg := Defaults()
	cfg.Site.Author = "Sam"

	m := cfg.SiteMap()
	if m["title"] != "My Site" || m["author"] != "Sam" {
		t.Errorf("unexpected site map %v", m)
	}
	if _, ok := m["params"].(map[string]any); !ok {
		t.Errorf("params should be a map, got %T", m["params"])
	}
}

func TestWarnings(t *testing.T) {
	cfg, err := ForDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	warnings := Warnings(cfg)
	for _, want := range []string{"base_url", "content_dir", "templates directory"} {
		found := false
		for _, w := range warnings {
			if strings.Contains(w, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected warning containing %q, got %v", want, warnings)
		}
	}
}
