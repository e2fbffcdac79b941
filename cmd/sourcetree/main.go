// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/sourcetree/cmd/sourcetree/cli"
	"github.com/bureau-foundation/sourcetree/cmd/sourcetree/commands"
	"github.com/bureau-foundation/sourcetree/lib/process"
)

func main() {
	process.Exit(run())
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Commands narrow this to the configured log level.
	logger := cli.NewCommandLogger(slog.LevelDebug)
	return commands.Root().Execute(ctx, os.Args[1:], logger)
}
