// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides entrypoint helpers for the sourcetree
// binary. These functions centralize the raw I/O that happens after
// the structured logger is gone: reporting the error returned from
// run() and choosing the exit status.
package process
