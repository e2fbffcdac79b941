// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package rojo runs the external sourcemap tool and turns its output
// into snapshots.
//
// A Supervisor spawns "rojo sourcemap --watch" in a workspace. The
// tool prints a complete JSON document every time the workspace
// changes, but the pipe delivers it in arbitrary chunks; a Framer
// accumulates chunks until a whole document decodes and hands the
// resulting tree to the caller. A Gate checks, with a short-lived
// cache, whether the installed tool is recent enough to support watch
// mode at all.
//
// Killing a Process marks it killed before signalling it, and every
// later stdout chunk or exit status is dropped. A replacement process
// can be spawned immediately after Kill without the old one's output
// leaking into the new stream.
package rojo
