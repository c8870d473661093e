package config

import "path/filepath"

// Config represents the complete Thyme site configuration
type Config struct {
	BaseDir    string        `yaml:"-"` // Directory containing config file, for resolving relative paths
	Path       string        `yaml:"-"` // Absolute path of the config file, empty for defaults
	Site       SiteConfig    `yaml:"site"`
	ContentDir string        `yaml:"content_dir"` // Markdown pages (default: "content")
	OutputDir  string        `yaml:"output_dir"`  // Rendered site (default: "public")
	Theme      ThemeConfig   `yaml:"theme"`
	Build      BuildConfig   `yaml:"build"`
	Server     ServerConfig  `yaml:"server"`
	Logging    LoggingConfig `yaml:"logging"`
}

// SiteConfig is exposed to templates as GLOBAL.CONFIG
type SiteConfig struct {
	Title       string         `yaml:"title"`
	BaseURL     string         `yaml:"base_url"`
	Description string         `yaml:"description"`
	Author      string         `yaml:"author"`
	Params      map[string]any `yaml:"params"` // Free-form values for templates
}

// ThemeConfig locates templates and static assets.
// Templates, Static and the page names are relative to Dir.
type ThemeConfig struct {
	Dir        string `yaml:"dir"`
	Templates  string `yaml:"templates"`  // Include root
	Static     string `yaml:"static"`     // Copied verbatim to the output
	Shortcodes string `yaml:"shortcodes"` // Shortcode templates, relative to Templates
	Index      string `yaml:"index"`      // Standalone page rendered to index.html
	Page       string `yaml:"page"`       // Default layout for content pages
	NotFound   string `yaml:"not_found"`  // Standalone page rendered to 404.html
}

// BuildConfig holds rendering settings
type BuildConfig struct {
	Workers int  `yaml:"workers"` // Parallel page renders (0 = GOMAXPROCS)
	Drafts  bool `yaml:"drafts"`  // Render pages marked draft
}

// ServerConfig holds preview server settings
type ServerConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	LiveReload bool   `yaml:"live_reload"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or text
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Site: SiteConfig{
			Title: "My Site",
		},
		ContentDir: "content",
		OutputDir:  "public",
		Theme: ThemeConfig{
			Dir:        "theme",
			Templates:  "templates",
			Static:     "static",
			Shortcodes: "shortcodes",
			Index:      "index.html",
			Page:       "page.html",
			NotFound:   "404.html",
		},
		Server: ServerConfig{
			Host:       "localhost",
			Port:       8000,
			LiveReload: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// TemplatesPath is the directory include paths resolve under.
func (c *Config) TemplatesPath() string {
	return c.themePath(c.Theme.Templates)
}

// StaticPath is the directory of assets copied to the output as-is.
func (c *Config) StaticPath() string {
	return c.themePath(c.Theme.Static)
}

func (c *Config) themePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Theme.Dir, p)
}

// SiteMap returns the site settings as seen by templates.
func (c *Config) SiteMap() map[string]any {
	params := c.Site.Params
	if params == nil {
		params = map[string]any{}
	}
	return map[string]any{
		"title":       c.Site.Title,
		"base_url":    c.Site.BaseURL,
		"description": c.Site.Description,
		"author":      c.Site.Author,
		"params":      params,
	}
}
