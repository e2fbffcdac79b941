// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates the structured logger for CLI commands at
// level. When stderr is a terminal the output is slog's text format;
// when it is piped or redirected it is JSON, one record per line.
func NewCommandLogger(level slog.Level) *slog.Logger {
	return newLogger(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level)
}

func newLogger(output io.Writer, terminal bool, level slog.Level) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if terminal {
		return slog.New(slog.NewTextHandler(output, options))
	}
	return slog.New(slog.NewJSONHandler(output, options))
}

// WithLevel returns a logger that drops records below level before
// they reach logger's handler. It can only raise the threshold the
// handler already applies.
func WithLevel(logger *slog.Logger, level slog.Level) *slog.Logger {
	return slog.New(&levelHandler{level: level, handler: logger.Handler()})
}

type levelHandler struct {
	level   slog.Level
	handler slog.Handler
}

func (handler *levelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= handler.level && handler.handler.Enabled(ctx, level)
}

func (handler *levelHandler) Handle(ctx context.Context, record slog.Record) error {
	return handler.handler.Handle(ctx, record)
}

func (handler *levelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelHandler{level: handler.level, handler: handler.handler.WithAttrs(attrs)}
}

func (handler *levelHandler) WithGroup(name string) slog.Handler {
	return &levelHandler{level: handler.level, handler: handler.handler.WithGroup(name)}
}
