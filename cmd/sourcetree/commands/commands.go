// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/sourcetree/cmd/sourcetree/cli"
	"github.com/bureau-foundation/sourcetree/lib/version"
)

// Root builds and returns the complete sourcetree command tree.
func Root() *cli.Command {
	return newRoot(os.Stdout)
}

func newRoot(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name: "sourcetree",
		Description: `sourcetree: browse a Rojo project as an explorer tree.

Runs "rojo sourcemap --watch" (or watches a static sourcemap.json),
merges the project file's filesystem paths into every snapshot, and
keeps an explorer-ordered tree of instances in sync as files change.`,
		Subcommands: []*cli.Command{
			watchCommand(stdout),
			printCommand(stdout),
			findCommand(stdout),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Fprintf(stdout, "sourcetree %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Browse the project in the current directory",
				Command:     "sourcetree watch",
			},
			{
				Description: "Print the tree of another workspace once",
				Command:     "sourcetree print --workspace ~/games/obby",
			},
			{
				Description: "Find the file behind an instance",
				Command:     "sourcetree find ReplicatedStorage.Signal",
			},
		},
	}
}
