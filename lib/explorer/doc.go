// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package explorer maintains the displayed instance tree and
// reconciles it against each new sourcemap snapshot.
//
// A [Node] wraps one snapshot node together with its resolved display
// [Metadata], its explorer order, and its own children. Nodes start
// Empty (a "Loading" placeholder), become Populated on their first
// update, and return to Empty only when updated with a nil snapshot.
// They are updated in place: [Node.Update] diffs the new snapshot
// against the stored one, applies only the metadata fields whose
// resolved values differ, and reconciles children index by index so
// that unchanged positions keep their Node identity. Children of one
// node are updated concurrently and joined before the parent commits.
//
// Every node of a tree is registered in an arena owned by its root.
// Parent links are [NodeID] handles resolved through that arena, so a
// child never holds its parent alive.
//
// [Tree] owns one root per workspace and is the display collaborator
// that workspace sessions drive: loading and error state, snapshot
// updates, and deletion. Listeners and subscribers receive one
// notification per node whose display state changed.
package explorer
