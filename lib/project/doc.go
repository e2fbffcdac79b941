// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package project reads tool project descriptors and overlays the
// filesystem knowledge they carry onto sourcemap snapshots.
//
// A descriptor maps instance names to nested nodes. Keys starting with
// "$" are directives; "$path" ties a node to a file or directory in
// the workspace. Snapshots produced by the tool omit the directory for
// nodes backed by a "$path" directory and omit the file for nodes
// backed by a "$path" file, so the overlay restores both:
//
//  1. ReadFile or Parse: JSONC bytes to a Descriptor
//  2. CacheFilesystemPaths: stat every "$path" once and record whether
//     it is a file or a directory
//  3. MergeInto: walk the descriptor and a snapshot in lock-step by
//     name, copying the cached paths onto matching snapshot nodes
//
// A Descriptor is owned by a single merge and is not retained across
// snapshots.
package project
