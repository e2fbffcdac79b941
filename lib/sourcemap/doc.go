// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sourcemap defines the snapshot tree produced by
// "rojo sourcemap" and the pure operations sourcetree performs on it
// before display:
//
//   - [Node] is one instance in the snapshot. A nil Children slice
//     marks a leaf; an empty non-nil slice is a node whose children
//     were all removed, and the two survive JSON and CBOR round trips
//     distinctly.
//   - [Equal] compares two nodes' identity fields, treating file
//     paths as a set.
//   - [Filter] prunes nodes matching ignore globs, inferring folder
//     paths for init scripts and plain folders first.
//   - [PrimaryPath] picks the one file that represents a node, and
//     [DisplayOrder] looks a node's class up in an [OrderTable].
//   - [Parse] and [ReadFile] decode snapshot documents, and [Digest]
//     fingerprints their raw bytes.
//
// Nothing here touches the filesystem except ReadFile and
// LoadOrderTable.
package sourcemap
