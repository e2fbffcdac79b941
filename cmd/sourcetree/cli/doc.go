// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework for sourcetree.
//
// The central type is [Command], a named subcommand with optional
// nested [Command.Subcommands], a [pflag.FlagSet] factory, and a Run
// function. Commands are assembled into a tree by the commands package
// and dispatched via [Command.Execute], which handles flag parsing,
// subcommand routing, and help output with examples.
//
// When a user types an unknown subcommand or flag, the framework
// computes the Levenshtein edit distance against all known names and
// suggests the closest match (distance <= 3).
//
// [ExitError] lets a command choose its exit status without an extra
// error line; [UsageError] marks errors caused by bad invocation.
// [NewCommandLogger] builds the structured logger handed to commands.
package cli
