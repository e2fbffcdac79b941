// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sourcetree/cmd/sourcetree/cli"
	"github.com/bureau-foundation/sourcetree/lib/explorer"
	"github.com/bureau-foundation/sourcetree/lib/tui"
)

func findCommand(stdout io.Writer) *cli.Command {
	var (
		flags     workspaceFlags
		limit     int
		timeout   time.Duration
		pathsOnly bool
	)

	return &cli.Command{
		Name:    "find",
		Summary: "Fuzzy-find instances by path",
		Description: `Fuzzy-match QUERY against the dot-separated instance path of every
node in the workspace tree and print the best matches, best first,
each followed by its primary file when it has one.

Exits with status 1 when nothing matches.`,
		Usage: "sourcetree find QUERY [flags]",
		Examples: []cli.Example{
			{
				Description: "Find a module by name",
				Command:     "sourcetree find Signal",
			},
			{
				Description: "Open the best match in an editor",
				Command:     `$EDITOR "$(sourcetree find --paths --limit 1 ServerMain)"`,
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("find", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.IntVarP(&limit, "limit", "n", 10, "maximum number of matches to print")
			flagSet.BoolVar(&pathsOnly, "paths", false, "print only the file paths of matches that have one")
			flagSet.DurationVar(&timeout, "timeout", defaultTimeout, "how long to wait for the first sourcemap")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			query := strings.TrimSpace(strings.Join(args, " "))
			if query == "" {
				return cli.Validation("query argument required\n\nUsage: sourcetree find QUERY [flags]")
			}
			if limit < 1 {
				return cli.Validation("--limit must be positive, got %d", limit)
			}

			opened, err := flags.open(ctx, logger, openOptions{oneShot: true})
			if err != nil {
				return err
			}
			defer opened.Close()

			if err := opened.waitForSnapshot(ctx, timeout); err != nil {
				return err
			}

			matches := explorer.Find(opened.root(), query, limit)
			opened.logger.Debug("find complete", "query", query, "matches", len(matches))
			printed := writeMatches(stdout, opened.session.Workspace(), matches, pathsOnly)
			if printed == 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// writeMatches prints one line per match and returns the number of
// lines written.
func writeMatches(w io.Writer, workspaceRoot string, matches []explorer.Match, pathsOnly bool) int {
	printed := 0
	for _, match := range matches {
		path, hasPath := match.Node.FilePath()
		if pathsOnly {
			if hasPath {
				fmt.Fprintln(w, path)
				printed++
			}
			continue
		}
		line := tui.HighlightMatch(tui.DefaultTheme, match.InstancePath, match.Positions)
		if hasPath {
			line += "  " + relativePath(workspaceRoot, path)
		}
		fmt.Fprintln(w, line)
		printed++
	}
	return printed
}
