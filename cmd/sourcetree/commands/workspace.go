// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/sourcetree/cmd/sourcetree/cli"
	"github.com/bureau-foundation/sourcetree/lib/config"
	"github.com/bureau-foundation/sourcetree/lib/explorer"
	"github.com/bureau-foundation/sourcetree/lib/session"
	"github.com/bureau-foundation/sourcetree/lib/sourcemap"
)

// notificationBuffer sizes the tree subscription of every command.
const notificationBuffer = 1024

// workspaceFlags are the flags shared by every workspace command.
type workspaceFlags struct {
	workspace  string
	configPath string
}

func (flags *workspaceFlags) register(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&flags.workspace, "workspace", "w", ".", "workspace root containing the project file")
	flagSet.StringVar(&flags.configPath, "config", "", "configuration file (default $"+config.EnvironmentVariable+")")
}

// openOptions adjust how a workspace is opened.
type openOptions struct {
	// reporter receives session warnings and errors. Nil logs them.
	reporter session.Reporter

	// oneShot disables the snapshot cache so the first tree shown is
	// always a fresh one.
	oneShot bool
}

// workspace is a connected session and the tree it feeds.
type workspace struct {
	config        *config.Config
	tree          *explorer.Tree
	session       *session.Session
	notifications <-chan explorer.Notification
	unsubscribe   func()
	logger        *slog.Logger
}

// open resolves configuration and connects a session for the flagged
// workspace. The returned logger honors the configured log level.
func (flags *workspaceFlags) open(ctx context.Context, logger *slog.Logger, options openOptions) (*workspace, error) {
	cfg, err := config.Resolve(flags.configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, cli.NotFound("%w", err)
		}
		return nil, cli.Validation("%w", err)
	}
	level, err := cfg.Level()
	if err != nil {
		return nil, cli.Validation("%w", err)
	}
	logger = cli.WithLevel(logger, level)

	root, err := filepath.Abs(flags.workspace)
	if err != nil {
		return nil, cli.Validation("resolving workspace %s: %w", flags.workspace, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, cli.Validation("workspace %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, cli.Validation("workspace %s is not a directory", root)
	}

	orders, err := loadOrders(root, cfg.ClassOrderFile)
	if err != nil {
		return nil, err
	}

	if options.oneShot {
		copied := *cfg
		copied.Cache.Directory = ""
		cfg = &copied
	}

	tree := explorer.NewTree(explorer.TreeOptions{Orders: orders, Logger: logger})
	notifications, unsubscribe := tree.Subscribe(notificationBuffer)

	connected, err := session.Connect(ctx, session.Options{
		Workspace: root,
		Config:    cfg,
		Display:   tree,
		Reporter:  options.reporter,
		Logger:    logger,
	})
	if err != nil {
		unsubscribe()
		return nil, cli.Internal("connecting to %s: %w", root, err)
	}
	logger.Debug("session connected", "workspace", root, "mode", connected.Mode())

	return &workspace{
		config:        cfg,
		tree:          tree,
		session:       connected,
		notifications: notifications,
		unsubscribe:   unsubscribe,
		logger:        logger,
	}, nil
}

// Close destroys the session and ends the subscription.
func (workspace *workspace) Close() {
	workspace.session.Destroy()
	workspace.unsubscribe()
}

// root returns the workspace's display root, nil while it has none.
func (workspace *workspace) root() *explorer.Node {
	return workspace.tree.Root(workspace.session.Workspace())
}

// waitForSnapshot blocks until the tree shows a settled snapshot,
// the workspace reports an error, or timeout elapses.
func (workspace *workspace) waitForSnapshot(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		ready, err := workspace.settled()
		if err != nil || ready {
			return err
		}
		select {
		case <-workspace.notifications:
		case <-timer.C:
			return cli.Transient("no sourcemap for %s within %s", workspace.session.Workspace(), timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// settled reports whether a snapshot is displayed and not loading.
func (workspace *workspace) settled() (bool, error) {
	status, ok := workspace.tree.Status(workspace.session.Workspace())
	if !ok {
		return false, nil
	}
	if status.Error != "" {
		return false, cli.Internal("%s", status.Error)
	}
	root := workspace.root()
	return root != nil && root.Snapshot() != nil && !status.Loading, nil
}

// loadOrders returns the built-in class order table, or the table in
// path when configured. Relative paths resolve against the workspace.
func loadOrders(workspaceRoot, path string) (sourcemap.OrderTable, error) {
	if path == "" {
		return sourcemap.DefaultOrderTable(), nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(workspaceRoot, path)
	}
	orders, err := sourcemap.LoadOrderTable(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, cli.NotFound("class order file: %w", err)
		}
		return nil, cli.Validation("class order file: %w", err)
	}
	return orders, nil
}

// relativePath shortens path to be relative to the workspace when it
// lies inside it.
func relativePath(workspaceRoot, path string) string {
	relative, err := filepath.Rel(workspaceRoot, path)
	if err != nil || relative == ".." || strings.HasPrefix(relative, ".."+string(filepath.Separator)) {
		return path
	}
	return relative
}

// describeSource names where the session's snapshots come from.
func describeSource(workspace *workspace) string {
	if workspace.session.Mode() == config.ModeFile {
		return "watching " + workspace.config.SourcemapFile
	}
	return fmt.Sprintf("running %s sourcemap --watch %s", workspace.config.Tool, workspace.config.ProjectFile)
}
