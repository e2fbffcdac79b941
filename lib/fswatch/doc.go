// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package fswatch watches a single file for creation, modification,
// and deletion using Linux inotify.
//
// The watch is installed on the file's parent directory rather than
// the file itself. Editors and tools that save by writing a temporary
// file and renaming it over the target create a new inode, which a
// file-level watch would miss; a directory watch sees the rename as
// IN_MOVED_TO on the target name. The file does not need to exist
// when the watch starts.
//
// Bursts of events are coalesced: the first matching event opens a
// short debounce window on the injected clock, and a single Event is
// delivered when it closes.
package fswatch
