// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/sourcetree/lib/codec"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Mode != ModeAuto {
		t.Errorf("Mode = %q, want auto", cfg.Mode)
	}
	if cfg.ProjectFile != "default.project.json" {
		t.Errorf("ProjectFile = %q, want default.project.json", cfg.ProjectFile)
	}
	if cfg.SourcemapFile != "sourcemap.json" {
		t.Errorf("SourcemapFile = %q, want sourcemap.json", cfg.SourcemapFile)
	}
	if cfg.IncludeNonScripts {
		t.Error("IncludeNonScripts should default to false")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
mode: file
include_non_scripts: true
ignore_globs:
  - "**/node_modules/**"
  - "Packages/**"
cache:
  compression: lz4
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.Mode != ModeFile {
		t.Errorf("Mode = %q, want file", cfg.Mode)
	}
	if !cfg.IncludeNonScripts {
		t.Error("IncludeNonScripts = false, want true")
	}
	if len(cfg.IgnoreGlobs) != 2 || cfg.IgnoreGlobs[1] != "Packages/**" {
		t.Errorf("IgnoreGlobs = %v", cfg.IgnoreGlobs)
	}
	// Untouched keys keep their defaults.
	if cfg.ProjectFile != "default.project.json" {
		t.Errorf("ProjectFile = %q, want default", cfg.ProjectFile)
	}
	if cfg.CacheCompression() != codec.CompressionLZ4 {
		t.Errorf("CacheCompression = %s, want lz4", cfg.CacheCompression())
	}
}

func TestParseRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"mode", "mode: sometimes\n", "mode must be one of"},
		{"glob", "ignore_globs: [\"[unclosed\"]\n", "invalid pattern"},
		{"compression", "cache: {compression: brotli}\n", "cache.compression"},
		{"log level", "log_level: loud\n", "log_level"},
		{"empty project file", "project_file: \"\"\n", "project_file is required"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Parse([]byte(test.content))
			if err == nil {
				t.Fatal("Parse succeeded, want error")
			}
			if !strings.Contains(err.Error(), test.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err, test.wantErr)
			}
		})
	}
}

func TestExpandVariables(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("SOURCETREE_TEST_UNSET", "")

	cfg, err := Parse([]byte(`
cache:
  directory: ${SOURCETREE_TEST_UNSET:-${HOME}/.cache}/sourcetree
class_order_file: ${HOME}/order.yaml
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Cache.Directory != "/home/tester/.cache/sourcetree" {
		t.Errorf("Cache.Directory = %q", cfg.Cache.Directory)
	}
	if cfg.ClassOrderFile != "/home/tester/order.yaml" {
		t.Errorf("ClassOrderFile = %q", cfg.ClassOrderFile)
	}
}

func TestResolve(t *testing.T) {
	directory := t.TempDir()
	path := filepath.Join(directory, "sourcetree.yaml")
	if err := os.WriteFile(path, []byte("mode: rojo\n"), 0644); err != nil {
		t.Fatal(err)
	}

	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(EnvironmentVariable, filepath.Join(directory, "missing.yaml"))
		cfg, err := Resolve(path)
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if cfg.Mode != ModeTool {
			t.Errorf("Mode = %q, want rojo", cfg.Mode)
		}
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv(EnvironmentVariable, path)
		cfg, err := Resolve("")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if cfg.Mode != ModeTool {
			t.Errorf("Mode = %q, want rojo", cfg.Mode)
		}
	})

	t.Run("default", func(t *testing.T) {
		t.Setenv(EnvironmentVariable, "")
		cfg, err := Resolve("")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if cfg.Mode != ModeAuto {
			t.Errorf("Mode = %q, want auto", cfg.Mode)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := Resolve(filepath.Join(directory, "missing.yaml")); err == nil {
			t.Fatal("Resolve succeeded for a missing file")
		}
	})
}

func TestLevel(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "debug"
	level, err := cfg.Level()
	if err != nil {
		t.Fatalf("Level: %v", err)
	}
	if level != slog.LevelDebug {
		t.Errorf("Level = %v, want debug", level)
	}
}
