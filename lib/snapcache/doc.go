// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package snapcache persists the last snapshot applied for a workspace
// so a new session can display it before the sourcemap tool produces
// its first document.
//
// An [Entry] is encoded as deterministic CBOR (lib/codec) and sealed
// in a compression envelope. [Write] replaces the cache file
// atomically (temporary file, fsync, rename), so [Read] never observes
// a partial entry. [PathFor] maps a workspace to its file inside a
// cache directory.
package snapcache
