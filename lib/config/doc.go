// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for sourcetree.
//
// Configuration comes from exactly one place: the --config flag, or
// the SOURCETREE_CONFIG environment variable when the flag is absent
// (see [Resolve]). With neither set, [Default] is used unchanged.
// There is no directory search and no per-key environment override.
//
// A file is overlaid onto [Default], so it only needs the keys it
// changes:
//
//	mode: auto
//	project_file: default.project.json
//	include_non_scripts: true
//	ignore_globs:
//	  - "**/_Index/**"
//	  - "Packages/**"
//	cache:
//	  directory: ${XDG_CACHE_HOME:-${HOME}/.cache}/sourcetree
//	  compression: zstd
//
// ${VAR} and ${VAR:-default} are expanded in path fields after
// loading. Glob patterns and the class order table are read-only once
// loaded; sessions never mutate them.
package config
