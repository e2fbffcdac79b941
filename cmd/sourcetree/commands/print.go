// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/bureau-foundation/sourcetree/cmd/sourcetree/cli"
	"github.com/bureau-foundation/sourcetree/lib/tui"
)

// defaultTimeout bounds how long one-shot commands wait for the first
// sourcemap.
const defaultTimeout = 30 * time.Second

func printCommand(stdout io.Writer) *cli.Command {
	var (
		flags   workspaceFlags
		timeout time.Duration
	)

	return &cli.Command{
		Name:    "print",
		Summary: "Print the workspace tree once",
		Description: `Connect to the workspace, wait for the first sourcemap, print the
fully expanded explorer tree, and exit.

The snapshot cache is bypassed so the output always reflects the
workspace as it is now.`,
		Usage: "sourcetree print [flags]",
		Examples: []cli.Example{
			{
				Description: "Print the tree of the current directory",
				Command:     "sourcetree print",
			},
			{
				Description: "Print a workspace that only has a sourcemap.json",
				Command:     "SOURCETREE_CONFIG=file-mode.yaml sourcetree print -w ./place",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("print", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.DurationVar(&timeout, "timeout", defaultTimeout, "how long to wait for the first sourcemap")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}

			opened, err := flags.open(ctx, logger, openOptions{oneShot: true})
			if err != nil {
				return err
			}
			defer opened.Close()

			if err := opened.waitForSnapshot(ctx, timeout); err != nil {
				return err
			}
			fmt.Fprintln(stdout, tui.RenderTree(tui.DefaultTheme, opened.tree, outputWidth(stdout)))
			return nil
		},
	}
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}

// outputWidth returns the terminal width of w, or zero (no
// truncation) when w is not a terminal.
func outputWidth(w io.Writer) int {
	if !isTerminal(w) {
		return 0
	}
	width, _, err := term.GetSize(int(w.(*os.File).Fd()))
	if err != nil {
		return 0
	}
	return width
}
