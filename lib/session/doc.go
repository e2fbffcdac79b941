// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session keeps one workspace's displayed tree in sync with
// its sourcemap.
//
// A [Session] runs one of two pipelines:
//
//   - Tool-driven ([ConnectUsingTool]): the project descriptor is
//     watched; each time its contents change the sourcemap tool is
//     (re)started in watch mode, and every document it emits is
//     merged with the descriptor, filtered, and applied.
//   - Static-file ([ConnectUsingFile]): the sourcemap file itself is
//     watched and re-read on every change.
//
// [Connect] chooses between them from configuration, falling back to
// the static file when the tool's version gate fails.
//
// Snapshots reach the [Display] one at a time, in the order they were
// produced. [Session.Destroy] is terminal: once it returns, the
// session makes no further calls on the Display.
package session
