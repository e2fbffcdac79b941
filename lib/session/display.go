// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/sourcetree/lib/sourcemap"
)

// Display owns the displayed trees. A session calls it with its own
// workspace only. *explorer.Tree implements it.
type Display interface {
	SetLoading(workspace, path string)
	SetError(workspace, message string)
	ClearError(workspace string)
	Update(ctx context.Context, workspace string, snapshot *sourcemap.Node, forceRebuild bool)
	Delete(workspace string)
}

// Reporter surfaces messages to the user outside the tree itself.
type Reporter interface {
	Warn(message string)
	Error(message string)
}

// LogReporter reports through a logger.
type LogReporter struct {
	Logger *slog.Logger
}

func (reporter LogReporter) Warn(message string) {
	reporter.Logger.Warn(message)
}

func (reporter LogReporter) Error(message string) {
	reporter.Logger.Error(message)
}

// DescriptorError reports a project descriptor that could not be
// parsed. The session continues without the descriptor overlay.
type DescriptorError struct {
	Path string
	Err  error
}

func (e *DescriptorError) Error() string {
	return fmt.Sprintf("failed to read the project file at %s, some explorer functionality may not be available: %v", e.Path, e.Err)
}

func (e *DescriptorError) Unwrap() error { return e.Err }
