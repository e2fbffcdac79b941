// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/sourcetree/lib/codec"
)

// EnvironmentVariable names the variable consulted by Resolve when no
// --config flag is given.
const EnvironmentVariable = "SOURCETREE_CONFIG"

// Mode selects where a workspace session gets its snapshots from.
type Mode string

const (
	// ModeAuto uses the tool when its version gate passes and falls
	// back to the static sourcemap file otherwise.
	ModeAuto Mode = "auto"

	// ModeTool always runs the tool in watch mode.
	ModeTool Mode = "rojo"

	// ModeFile always watches the static sourcemap file.
	ModeFile Mode = "file"
)

// Config is the master configuration for sourcetree.
type Config struct {
	// Mode selects the snapshot source (auto, rojo, file).
	Mode Mode `yaml:"mode"`

	// Tool is the executable spawned for sourcemap generation and
	// the version check. Resolved through PATH when not absolute.
	Tool string `yaml:"tool"`

	// ProjectFile is the project descriptor, relative to the
	// workspace root.
	ProjectFile string `yaml:"project_file"`

	// SourcemapFile is the static snapshot watched in file mode,
	// relative to the workspace root.
	SourcemapFile string `yaml:"sourcemap_file"`

	// IncludeNonScripts passes --include-non-scripts to the tool.
	IncludeNonScripts bool `yaml:"include_non_scripts"`

	// IgnoreGlobs prunes matching nodes from every snapshot. Patterns
	// are matched against workspace-relative, slash-separated paths.
	IgnoreGlobs []string `yaml:"ignore_globs"`

	// ClassOrderFile optionally replaces the built-in class order
	// table (YAML or JSON mapping of class name to order).
	ClassOrderFile string `yaml:"class_order_file"`

	// Cache configures snapshot persistence between runs.
	Cache CacheConfig `yaml:"cache"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// CacheConfig configures the on-disk snapshot cache.
type CacheConfig struct {
	// Directory holds one cache file per workspace. Empty disables
	// the cache.
	Directory string `yaml:"directory"`

	// Compression is none, lz4, or zstd.
	Compression string `yaml:"compression"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Mode:          ModeAuto,
		Tool:          "rojo",
		ProjectFile:   "default.project.json",
		SourcemapFile: "sourcemap.json",
		Cache: CacheConfig{
			Compression: "zstd",
		},
		LogLevel: "info",
	}
}

// Resolve loads configuration from flagPath when set, otherwise from
// SOURCETREE_CONFIG when set, otherwise returns Default.
func Resolve(flagPath string) (*Config, error) {
	if flagPath != "" {
		return LoadFile(flagPath)
	}
	if environmentPath := os.Getenv(EnvironmentVariable); environmentPath != "" {
		return LoadFile(environmentPath)
	}
	return Default(), nil
}

// LoadFile overlays the YAML file at path onto Default, expands path
// variables, and validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse overlays YAML data onto Default, expands path variables, and
// validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.expandVariables()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Tool = expandVars(c.Tool, vars)
	c.ClassOrderFile = expandVars(c.ClassOrderFile, vars)
	c.Cache.Directory = expandVars(c.Cache.Directory, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}. The default may itself
// contain one level of ${VAR}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-((?:[^}$]|\$\{[^}]*\})*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		if len(parts) >= 3 && strings.Contains(parts[2], "${") {
			return expandVars(parts[2], vars)
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeAuto, ModeTool, ModeFile:
	default:
		errs = append(errs, fmt.Errorf("mode must be one of auto, rojo, file (got %q)", c.Mode))
	}

	if c.Tool == "" && c.Mode != ModeFile {
		errs = append(errs, errors.New("tool is required unless mode is file"))
	}
	if c.ProjectFile == "" {
		errs = append(errs, errors.New("project_file is required"))
	}
	if c.SourcemapFile == "" {
		errs = append(errs, errors.New("sourcemap_file is required"))
	}

	for _, pattern := range c.IgnoreGlobs {
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Errorf("ignore_globs: invalid pattern %q", pattern))
		}
	}

	if _, err := codec.ParseCompression(c.Cache.Compression); err != nil {
		errs = append(errs, fmt.Errorf("cache.compression: %w", err))
	}

	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Level returns the configured slog level.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// CacheCompression returns the parsed cache compression. Validate has
// already rejected unknown names.
func (c *Config) CacheCompression() codec.Compression {
	compression, err := codec.ParseCompression(c.Cache.Compression)
	if err != nil {
		return codec.CompressionZstd
	}
	return compression
}
