// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for sourcetree
// packages.
//
// [RequireReceive], [RequireClosed], and [RequireNoReceive] wrap the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls.
//
// [WriteFile] and [WriteExecutable] lay out workspace fixtures. A
// fake tool written with WriteExecutable is a POSIX shell script;
// tests that use one skip themselves where /bin/sh is missing.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil
