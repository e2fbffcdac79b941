// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the sourcetree command tree: watch, print,
// find, and version. Every workspace command resolves configuration,
// builds an explorer tree, and connects one session to it; the
// commands differ only in how they present the tree.
package commands
