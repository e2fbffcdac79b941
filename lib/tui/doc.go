// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui renders explorer trees in a terminal. [Model] is the
// interactive bubbletea viewer used by "sourcetree watch": it follows
// a live [explorer.Tree] through its notification channel, keeps a
// cursor over the flattened visible rows, and briefly highlights
// nodes that just changed. [RenderTree] produces the same rows as a
// static string for one-shot output.
//
// Colors come from a [Theme]; key bindings from a [KeyMap].
package tui
