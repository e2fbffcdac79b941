// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sourcetree/cmd/sourcetree/cli"
	"github.com/bureau-foundation/sourcetree/lib/tui"
)

// plainQuietPeriod is how long plain output waits for notifications to
// stop before re-printing the tree. One snapshot produces a burst of
// node notifications.
const plainQuietPeriod = 100 * time.Millisecond

func watchCommand(stdout io.Writer) *cli.Command {
	var (
		flags   workspaceFlags
		plain   bool
		logFile string
	)

	return &cli.Command{
		Name:    "watch",
		Summary: "Follow a workspace live",
		Description: `Connect to the workspace and keep its explorer tree in sync until
interrupted.

On a terminal this opens an interactive viewer:

  up/down, j/k     Move the selection
  left/right       Collapse or expand
  enter, space     Toggle the selected node
  /                Fuzzy-find an instance
  r                Re-render from the last snapshot
  R                Restart the sourcemap tool
  q                Quit

With --plain, or when stdout is not a terminal, the fully expanded tree
is printed again after every change instead.

The interactive viewer owns the terminal, so logs are discarded unless
--log-file is given.`,
		Usage: "sourcetree watch [flags]",
		Examples: []cli.Example{
			{
				Description: "Browse the project in the current directory",
				Command:     "sourcetree watch",
			},
			{
				Description: "Stream tree changes to a file",
				Command:     "sourcetree watch --plain > tree.log",
			},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("watch", pflag.ContinueOnError)
			flags.register(flagSet)
			flagSet.BoolVar(&plain, "plain", false, "print the tree after every change instead of opening the viewer")
			flagSet.StringVar(&logFile, "log-file", "", "write viewer logs to this file as JSON")
			return flagSet
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			if plain || !isTerminal(stdout) {
				return watchPlain(ctx, &flags, stdout, logger)
			}
			return watchInteractive(ctx, &flags, logFile)
		},
	}
}

// watchPlain re-prints the tree once each burst of changes settles,
// until ctx is cancelled.
func watchPlain(ctx context.Context, flags *workspaceFlags, stdout io.Writer, logger *slog.Logger) error {
	opened, err := flags.open(ctx, logger, openOptions{})
	if err != nil {
		return err
	}
	defer opened.Close()

	opened.logger.Info("watching workspace",
		"workspace", opened.session.Workspace(),
		"source", describeSource(opened),
	)

	var last string
	render := func() {
		rendered := tui.RenderTree(tui.DefaultTheme, opened.tree, outputWidth(stdout))
		if rendered == last {
			return
		}
		last = rendered
		fmt.Fprintf(stdout, "%s\n\n", rendered)
		opened.logger.Debug("tree printed", "workspace", opened.session.Workspace())
	}
	render()

	quiet := time.NewTimer(plainQuietPeriod)
	quiet.Stop()
	defer quiet.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-opened.notifications:
			if !ok {
				return nil
			}
			quiet.Reset(plainQuietPeriod)
		case <-quiet.C:
			render()
		}
	}
}

// watchInteractive runs the bubbletea viewer until the user quits or
// ctx is cancelled.
func watchInteractive(ctx context.Context, flags *workspaceFlags, logFile string) error {
	viewerLogger := slog.New(slog.DiscardHandler)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return cli.Validation("opening log file: %w", err)
		}
		defer file.Close()
		viewerLogger = slog.New(slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	reporter := &viewerReporter{logger: viewerLogger}
	opened, err := flags.open(ctx, viewerLogger, openOptions{reporter: reporter})
	if err != nil {
		return err
	}
	defer opened.Close()

	model := tui.NewModel(opened.tree, opened.notifications, opened.session)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	reporter.attach(program)

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return cli.Internal("running viewer: %w", err)
	}
	return nil
}

// statusSender delivers a message to a running viewer.
type statusSender interface {
	Send(message tea.Msg)
}

// viewerReporter logs session warnings and errors and shows them on
// the viewer's status line. Messages reported before the viewer
// starts are held until attach.
type viewerReporter struct {
	logger *slog.Logger

	mutex   sync.Mutex
	sender  statusSender
	pending []string
}

func (reporter *viewerReporter) Warn(message string) {
	reporter.logger.Warn(message)
	reporter.show("warning: " + message)
}

func (reporter *viewerReporter) Error(message string) {
	reporter.logger.Error(message)
	reporter.show("error: " + message)
}

func (reporter *viewerReporter) show(text string) {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	if reporter.sender == nil {
		reporter.pending = append(reporter.pending, text)
		return
	}
	// Send blocks until the event loop receives the message, and the
	// session reports while holding its own locks.
	go reporter.sender.Send(tui.Status(text))
}

func (reporter *viewerReporter) attach(sender statusSender) {
	reporter.mutex.Lock()
	defer reporter.mutex.Unlock()
	reporter.sender = sender
	pending := reporter.pending
	reporter.pending = nil
	if len(pending) == 0 {
		return
	}
	go func() {
		for _, text := range pending {
			sender.Send(tui.Status(text))
		}
	}()
}
