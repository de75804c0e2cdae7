package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration options for resprune.
type Config struct {
	// Project layout
	Project ProjectConfig `koanf:"project"`

	// Resource indexing and keep rules
	Resources ResourcesConfig `koanf:"resources"`

	// Usage scanning
	Scan ScanConfig `koanf:"scan"`

	// Directory and file exclusion during walks
	Exclude ExcludeConfig `koanf:"exclude"`

	// Backup of deleted files
	Backup BackupConfig `koanf:"backup"`

	// Output settings
	Output OutputConfig `koanf:"output"`

	// Logging settings
	Log LogConfig `koanf:"log"`
}

// ProjectConfig locates the project.
type ProjectConfig struct {
	Manifest   string   `koanf:"manifest"`
	ExtraRoots []string `koanf:"extra_roots"`
}

// ResourcesConfig controls which resources are indexed and which are never removed.
type ResourcesConfig struct {
	// ExcludeFiles are exact file names skipped for definitions and drawables/layouts.
	ExcludeFiles []string `koanf:"exclude_files"`
	// Keep holds glob patterns of resources that are never removed,
	// optionally prefixed with a category ("string:app_*").
	Keep []string `koanf:"keep"`
	// Only limits removal to resources whose declaring files all match one
	// of these doublestar globs, relative to the base ("app/src/main/**").
	Only            []string `koanf:"only"`
	ImageExtensions []string `koanf:"image_extensions"`
}

// ScanConfig controls usage scanning and the convergence loop.
type ScanConfig struct {
	MarkupExtensions []string `koanf:"markup_extensions"`
	CodeExtensions   []string `koanf:"code_extensions"`
	Workers          int      `koanf:"workers"`
	MaxRounds        int      `koanf:"max_rounds"` // 0 = until nothing is removed
}

// ExcludeConfig defines directory and pattern exclusions for walks.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns"`
	Dirs      []string `koanf:"dirs"`
	Gitignore bool     `koanf:"gitignore"`
}

// BackupConfig controls where whole-file deletions are archived.
type BackupConfig struct {
	Dir    string `koanf:"dir"`
	Verify bool   `koanf:"verify"`
}

// OutputConfig controls output formatting.
type OutputConfig struct {
	Format  string `koanf:"format"` // text, json, markdown, toon
	Color   bool   `koanf:"color"`
	Verbose bool   `koanf:"verbose"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string `koanf:"level"` // debug, info, warn, error
	File  string `koanf:"file"`
}

// BuildDir is the conventional build-output directory, always skipped.
const BuildDir = "build"

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			Manifest: "AndroidManifest.xml",
		},
		Resources: ResourcesConfig{
			ExcludeFiles:    []string{"analytics.xml"},
			ImageExtensions: []string{".png", ".jpg", ".jpeg", ".webp", ".gif"},
		},
		Scan: ScanConfig{
			MarkupExtensions: []string{".xml"},
			CodeExtensions:   []string{".java", ".kt"},
			Workers:          1,
		},
		Exclude: ExcludeConfig{
			Dirs: []string{
				BuildDir,
				".git",
				".gradle",
				".idea",
			},
			Gitignore: true,
		},
		Backup: BackupConfig{
			Dir:    filepath.Join(os.TempDir(), "resprune"),
			Verify: true,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a file.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		parser = toml.Parser()
	}

	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// configNames are the file names searched by LoadOrDefault.
var configNames = []string{
	"resprune.toml",
	"resprune.yaml",
	"resprune.yml",
	"resprune.json",
	".resprune.toml",
	".resprune.yaml",
	".resprune.yml",
	".resprune.json",
}

// Find returns the first config file found in dirs, or "".
func Find(dirs ...string) string {
	for _, dir := range dirs {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path
			}
		}
	}
	return ""
}

// LoadOrDefault loads the first config file found in dirs (the working
// directory when none are given) or returns defaults when there is none.
// A file that is found but does not load is an error, never defaults.
func LoadOrDefault(dirs ...string) (*Config, error) {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	path := Find(dirs...)
	if path == "" {
		return DefaultConfig(), nil
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// SkipDir reports whether a directory name is excluded from every walk.
func (c *Config) SkipDir(name string) bool {
	if strings.EqualFold(name, BuildDir) {
		return true
	}
	for _, dir := range c.Exclude.Dirs {
		if name == dir {
			return true
		}
	}
	return false
}

// IsExcludedFile reports whether a file name is on the exact-match exclusion list.
func (c *Config) IsExcludedFile(name string) bool {
	for _, f := range c.Resources.ExcludeFiles {
		if name == f {
			return true
		}
	}
	return false
}

// IsImage reports whether path has one of the configured image extensions.
func (c *Config) IsImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range c.Resources.ImageExtensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
