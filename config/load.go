package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked for in the project root.
const FileName = "thyme.yaml"

// ErrNoConfig is returned when no config file was named and none was found.
var ErrNoConfig = errors.New("no config file found")

// Load reads configuration from a file with ENV interpolation.
// If configPath is empty, it searches root and THYME_CONFIG.
func Load(configPath, root string, getenv func(string) string) (*Config, error) {
	cfg, _, err := LoadWithPath(configPath, root, getenv)
	return cfg, err
}

// LoadWithPath reads configuration and returns both the config and the resolved path.
// Relative directories in the file are resolved against the file's directory.
func LoadWithPath(configPath, root string, getenv func(string) string) (*Config, string, error) {
	path, err := resolveConfigPath(configPath, root, getenv)
	if err != nil {
		return nil, "", err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data, getenv)
	if err != nil {
		return nil, "", err
	}
	cfg.Path = absPath
	cfg.resolvePaths(filepath.Dir(absPath))

	if err := Validate(cfg); err != nil {
		return nil, "", err
	}
	return cfg, absPath, nil
}

// Parse decodes config file contents over the defaults without resolving paths.
func Parse(data []byte, getenv func(string) string) (*Config, error) {
	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ForDir returns the default configuration rooted at dir, for projects
// without a config file.
func ForDir(dir string) (*Config, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	cfg := Defaults()
	cfg.resolvePaths(abs)
	return cfg, nil
}

// resolvePaths makes the content, output and theme directories absolute.
func (c *Config) resolvePaths(baseDir string) {
	c.BaseDir = baseDir
	for _, p := range []*string{&c.ContentDir, &c.OutputDir, &c.Theme.Dir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(baseDir, *p)
		}
	}
}

// Validate checks the configuration, reporting every problem at once.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port: %d (must be 1-65535)", cfg.Server.Port))
	}

	if cfg.ContentDir == "" {
		errs = append(errs, "content_dir is required")
	}
	if cfg.OutputDir == "" {
		errs = append(errs, "output_dir is required")
	}
	if cfg.ContentDir != "" && cfg.ContentDir == cfg.OutputDir {
		errs = append(errs, "content_dir and output_dir must differ")
	}

	if cfg.Theme.Page == "" {
		errs = append(errs, "theme.page is required")
	}
	for _, f := range []struct{ name, path string }{
		{"theme.page", cfg.Theme.Page},
		{"theme.index", cfg.Theme.Index},
		{"theme.not_found", cfg.Theme.NotFound},
		{"theme.shortcodes", cfg.Theme.Shortcodes},
	} {
		if filepath.IsAbs(f.path) || strings.HasPrefix(filepath.ToSlash(filepath.Clean(f.path)), "../") {
			errs = append(errs, fmt.Sprintf("%s must be a path inside theme.templates: %s", f.name, f.path))
		}
	}

	if cfg.Build.Workers < 0 {
		errs = append(errs, fmt.Sprintf("invalid build.workers: %d (must be 0 or more)", cfg.Build.Workers))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Logging.Level))
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be json or text)", cfg.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// Warnings returns non-fatal configuration issues that should be reported to the user.
func Warnings(cfg *Config) []string {
	var warnings []string

	if cfg.Site.BaseURL == "" {
		warnings = append(warnings, "site.base_url is not set - absolute links in templates will be relative")
	}
	if _, err := os.Stat(cfg.ContentDir); err != nil {
		warnings = append(warnings, fmt.Sprintf("content_dir %s does not exist - only standalone pages will be built", cfg.ContentDir))
	}
	if _, err := os.Stat(cfg.TemplatesPath()); err != nil {
		warnings = append(warnings, fmt.Sprintf("templates directory %s does not exist", cfg.TemplatesPath()))
	}

	return warnings
}

// resolveConfigPath finds the config file to use.
// Search order: explicit path > THYME_CONFIG env > <root>/thyme.yaml
func resolveConfigPath(explicit, root string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	if envPath := getenv("THYME_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err != nil {
			return "", fmt.Errorf("THYME_CONFIG file not found: %s", envPath)
		}
		return envPath, nil
	}

	if root == "" {
		root = "."
	}
	path := filepath.Join(root, FileName)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%w (tried THYME_CONFIG, %s)", ErrNoConfig, path)
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// interpolateEnv replaces ${VAR} and ${VAR:-default} patterns with environment values.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := string(parts[1])
		value := getenv(varName)

		if value == "" && len(parts) >= 3 && len(parts[2]) > 0 {
			value = string(parts[2])
		}

		return []byte(value)
	})
}
