// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Sourcetree keeps an explorer-ordered tree of a Rojo project's
// instances in sync with the filesystem. It drives "rojo sourcemap
// --watch" (or watches a static sourcemap.json), overlays the project
// file's paths, and presents the result as an interactive viewer, a
// printed tree, or fuzzy-find results.
//
// Usage:
//
//	sourcetree watch [--workspace DIR] [--config FILE] [--plain]
//	sourcetree print [--workspace DIR] [--config FILE]
//	sourcetree find QUERY [--limit N] [--paths]
//	sourcetree version
package main
