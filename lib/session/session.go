// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/bureau-foundation/sourcetree/lib/clock"
	"github.com/bureau-foundation/sourcetree/lib/codec"
	"github.com/bureau-foundation/sourcetree/lib/config"
	"github.com/bureau-foundation/sourcetree/lib/fswatch"
	"github.com/bureau-foundation/sourcetree/lib/project"
	"github.com/bureau-foundation/sourcetree/lib/rojo"
	"github.com/bureau-foundation/sourcetree/lib/snapcache"
	"github.com/bureau-foundation/sourcetree/lib/sourcemap"
)

// Options configure a session.
type Options struct {
	// Workspace is the workspace root. Required.
	Workspace string

	// Config supplies file names, ignore globs, and cache settings.
	// Nil uses config.Default.
	Config *config.Config

	// Display receives the workspace's tree. Required.
	Display Display

	// Reporter receives user-facing warnings and errors. Nil reports
	// through Logger.
	Reporter Reporter

	// Supervisor spawns the sourcemap tool. Nil uses a supervisor for
	// Config.Tool.
	Supervisor *rojo.Supervisor

	// Gate decides between the pipelines in auto mode. Nil uses a
	// gate for Config.Tool.
	Gate *rojo.Gate

	// Clock drives file watcher debouncing and cache timestamps. Nil
	// uses the real clock.
	Clock clock.Clock

	Logger *slog.Logger
}

func (options Options) withDefaults() (Options, error) {
	if options.Workspace == "" {
		return options, errors.New("session: workspace is required")
	}
	if options.Display == nil {
		return options, errors.New("session: display is required")
	}
	workspace, err := filepath.Abs(options.Workspace)
	if err != nil {
		return options, fmt.Errorf("resolving workspace %s: %w", options.Workspace, err)
	}
	options.Workspace = workspace
	if options.Config == nil {
		options.Config = config.Default()
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Reporter == nil {
		options.Reporter = LogReporter{Logger: options.Logger}
	}
	if options.Clock == nil {
		options.Clock = clock.Real()
	}
	if options.Supervisor == nil {
		options.Supervisor = rojo.NewSupervisor(options.Config.Tool, options.Logger)
	}
	if options.Gate == nil {
		options.Gate = rojo.NewGate(options.Config.Tool, options.Clock)
	}
	return options, nil
}

// Session synchronizes one workspace with its display. Create one
// with Connect, ConnectUsingTool, or ConnectUsingFile.
type Session struct {
	workspace     string
	mode          config.Mode
	config        *config.Config
	projectPath   string
	sourcemapPath string
	display       Display
	reporter      Reporter
	supervisor    *rojo.Supervisor
	clock         clock.Clock
	logger        *slog.Logger
	matcher       sourcemap.Matcher
	cachePath     string
	compression   codec.Compression

	ctx    context.Context
	cancel context.CancelFunc

	// lifecycle serializes descriptor handling, Reload, and Destroy.
	// When both are held, lifecycle is taken before applyMutex.
	lifecycle       sync.Mutex
	watcher         *fswatch.Watcher
	process         *rojo.Process
	projectContents []byte
	haveProject     bool
	descriptor      *project.Descriptor

	// applyMutex serializes every call on the display.
	applyMutex sync.Mutex
	destroyed  atomic.Bool
	generation uint64
	last       *sourcemap.Node
	lastDigest sourcemap.Hash
}

func newSession(ctx context.Context, options Options, mode config.Mode) (*Session, error) {
	options, err := options.withDefaults()
	if err != nil {
		return nil, err
	}
	matcher, err := sourcemap.NewMatcher(options.Config.IgnoreGlobs)
	if err != nil {
		return nil, err
	}

	session := &Session{
		workspace:     options.Workspace,
		mode:          mode,
		config:        options.Config,
		projectPath:   filepath.Join(options.Workspace, options.Config.ProjectFile),
		sourcemapPath: filepath.Join(options.Workspace, options.Config.SourcemapFile),
		display:       options.Display,
		reporter:      options.Reporter,
		supervisor:    options.Supervisor,
		clock:         options.Clock,
		logger:        options.Logger.With("workspace", options.Workspace, "mode", string(mode)),
		matcher:       matcher,
		compression:   options.Config.CacheCompression(),
	}
	if directory := options.Config.Cache.Directory; directory != "" {
		session.cachePath = snapcache.PathFor(directory, options.Workspace)
	}
	session.ctx, session.cancel = context.WithCancel(ctx)
	return session, nil
}

// Connect starts the pipeline selected by the configured mode. In
// auto mode the tool-driven pipeline is used when the tool passes its
// version gate; otherwise the failure is reported as a warning and
// the static sourcemap file is watched instead. ctx bounds the
// session's lifetime.
func Connect(ctx context.Context, options Options) (*Session, error) {
	options, err := options.withDefaults()
	if err != nil {
		return nil, err
	}

	switch options.Config.Mode {
	case config.ModeTool:
		return ConnectUsingTool(ctx, options)
	case config.ModeFile:
		return ConnectUsingFile(ctx, options)
	}

	supported, err := options.Gate.Supported(ctx, options.Workspace)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if supported {
		return ConnectUsingTool(ctx, options)
	}
	options.Reporter.Warn(fmt.Sprintf("%v; watching %s instead", err, options.Config.SourcemapFile))
	return ConnectUsingFile(ctx, options)
}

// ConnectUsingTool starts the tool-driven pipeline: the project file
// is read now and again on every create, change, or delete, and each
// change of its contents restarts the tool in watch mode.
func ConnectUsingTool(ctx context.Context, options Options) (*Session, error) {
	session, err := newSession(ctx, options, config.ModeTool)
	if err != nil {
		return nil, err
	}
	session.restoreCache()

	watcher, err := fswatch.Watch(session.projectPath, session.clock, session.logger, func(fswatch.Event) {
		session.lifecycle.Lock()
		defer session.lifecycle.Unlock()
		session.readProjectFileLocked()
	})
	if err != nil {
		session.cancel()
		return nil, fmt.Errorf("watching project file: %w", err)
	}

	session.lifecycle.Lock()
	defer session.lifecycle.Unlock()
	session.watcher = watcher
	session.readProjectFileLocked()
	return session, nil
}

// ConnectUsingFile starts the static-file pipeline: the sourcemap file
// is read now and again on every create, change, or delete.
func ConnectUsingFile(ctx context.Context, options Options) (*Session, error) {
	session, err := newSession(ctx, options, config.ModeFile)
	if err != nil {
		return nil, err
	}
	session.restoreCache()

	watcher, err := fswatch.Watch(session.sourcemapPath, session.clock, session.logger, func(fswatch.Event) {
		session.Reload()
	})
	if err != nil {
		session.cancel()
		return nil, fmt.Errorf("watching sourcemap file: %w", err)
	}

	session.lifecycle.Lock()
	defer session.lifecycle.Unlock()
	session.watcher = watcher
	session.readSourcemapLocked()
	return session, nil
}

// Workspace returns the absolute workspace root.
func (session *Session) Workspace() string { return session.workspace }

// Mode returns the pipeline in use: config.ModeTool or config.ModeFile.
func (session *Session) Mode() config.Mode { return session.mode }

// Refresh re-applies the last snapshot with a full rebuild, without
// involving the tool or the file. It returns false when no snapshot
// has been applied yet or the session is destroyed.
func (session *Session) Refresh() bool {
	session.applyMutex.Lock()
	defer session.applyMutex.Unlock()
	if session.destroyed.Load() || session.last == nil {
		return false
	}
	session.display.Update(session.ctx, session.workspace, session.last, true)
	return true
}

// Reload fetches a fresh snapshot from the source. In tool mode the
// running tool is killed and started again; when no project file has
// been read yet it is read first.
func (session *Session) Reload() {
	session.lifecycle.Lock()
	defer session.lifecycle.Unlock()
	if session.destroyed.Load() {
		return
	}

	switch session.mode {
	case config.ModeTool:
		if !session.haveProject {
			session.readProjectFileLocked()
			return
		}
		session.stopProcessLocked()
		session.spawnLocked()
	default:
		session.readSourcemapLocked()
	}
}

// Destroy stops the watcher and the tool and deletes the workspace
// from the display. No display call happens after Destroy returns.
// Safe to call more than once.
func (session *Session) Destroy() {
	session.cancel()

	session.lifecycle.Lock()
	defer session.lifecycle.Unlock()

	session.applyMutex.Lock()
	if session.destroyed.Load() {
		session.applyMutex.Unlock()
		return
	}
	session.destroyed.Store(true)
	session.applyMutex.Unlock()

	if session.watcher != nil {
		session.watcher.Close()
	}
	if session.process != nil {
		session.process.Kill()
		session.process = nil
	}
	session.display.Delete(session.workspace)
	session.logger.Debug("session destroyed")
}

// readProjectFileLocked handles one look at the project file. Caller
// holds lifecycle.
func (session *Session) readProjectFileLocked() {
	if session.destroyed.Load() {
		return
	}

	info, err := os.Stat(session.projectPath)
	if err != nil || !info.Mode().IsRegular() {
		session.logger.Debug("project file missing", "path", session.projectPath)
		session.updateProjectLocked(nil, false)
		session.withDisplay(func() { session.display.Delete(session.workspace) })
		return
	}

	session.withDisplay(func() { session.display.SetLoading(session.workspace, session.projectPath) })
	contents, err := os.ReadFile(session.projectPath)
	if err != nil {
		session.withDisplay(func() { session.display.Delete(session.workspace) })
		session.reporter.Error(fmt.Sprintf("failed to read the project file at %s: %v", session.projectPath, err))
		return
	}
	session.updateProjectLocked(contents, true)
}

// updateProjectLocked restarts the tool when the project file's
// contents changed. Caller holds lifecycle.
func (session *Session) updateProjectLocked(contents []byte, present bool) {
	if present == session.haveProject && bytes.Equal(contents, session.projectContents) {
		return
	}
	session.projectContents = contents
	session.haveProject = present
	session.descriptor = nil
	session.stopProcessLocked()
	if !present || session.destroyed.Load() {
		return
	}

	descriptor, err := project.Parse(contents)
	if err != nil {
		session.reporter.Warn((&DescriptorError{Path: session.projectPath, Err: err}).Error())
		descriptor = nil
	} else if err := project.CacheFilesystemPaths(session.ctx, session.workspace, descriptor); err != nil {
		return
	}
	if session.destroyed.Load() {
		return
	}
	session.descriptor = descriptor
	session.spawnLocked()
}

// stopProcessLocked kills the running tool and invalidates its
// callbacks. Caller holds lifecycle.
func (session *Session) stopProcessLocked() {
	session.applyMutex.Lock()
	session.generation++
	session.applyMutex.Unlock()

	if session.process != nil {
		session.process.Kill()
		session.process = nil
	}
}

// spawnLocked starts the tool in watch mode. Caller holds lifecycle.
func (session *Session) spawnLocked() {
	session.applyMutex.Lock()
	session.generation++
	generation := session.generation
	session.lastDigest = sourcemap.Hash{}
	session.applyMutex.Unlock()

	descriptor := session.descriptor
	callbacks := rojo.Callbacks{
		Loading: func() {
			session.whileCurrent(generation, func() {
				session.display.SetLoading(session.workspace, session.projectPath)
			})
		},
		Snapshot: func(document rojo.Document) {
			session.whileCurrent(generation, func() {
				session.applyLocked(document.Node, document.Digest, descriptor)
			})
		},
		Errored: func(err error) {
			session.whileCurrent(generation, func() {
				session.display.SetError(session.workspace, err.Error())
			})
		},
	}

	// Loading starts with the spawn, not with the tool's first output.
	session.whileCurrent(generation, func() {
		session.display.SetLoading(session.workspace, session.projectPath)
	})

	arguments := rojo.WatchArguments(session.config.ProjectFile, session.config.IncludeNonScripts)
	process, err := session.supervisor.Spawn(session.ctx, session.workspace, arguments, callbacks)
	if err != nil {
		if session.ctx.Err() != nil {
			return
		}
		unavailable := &rojo.UnavailableError{Tool: session.supervisor.Tool(), Err: err}
		session.reporter.Warn(unavailable.Error())
		session.whileCurrent(generation, func() {
			session.display.SetError(session.workspace, unavailable.Error())
		})
		return
	}
	session.process = process
}

// readSourcemapLocked loads the static sourcemap file. Caller holds
// lifecycle.
func (session *Session) readSourcemapLocked() {
	if session.destroyed.Load() {
		return
	}
	session.withDisplay(func() { session.display.SetLoading(session.workspace, session.sourcemapPath) })

	snapshot, digest, err := sourcemap.ReadFile(session.sourcemapPath)
	session.withDisplay(func() {
		if err != nil {
			session.display.SetError(session.workspace, err.Error())
			return
		}
		session.applyLocked(snapshot, digest, nil)
	})
}

// withDisplay runs function under applyMutex unless the session is
// destroyed.
func (session *Session) withDisplay(function func()) {
	session.applyMutex.Lock()
	defer session.applyMutex.Unlock()
	if session.destroyed.Load() {
		return
	}
	function()
}

// whileCurrent is withDisplay for tool callbacks: function is also
// skipped once the tool run that registered it has been superseded.
func (session *Session) whileCurrent(generation uint64, function func()) {
	session.applyMutex.Lock()
	defer session.applyMutex.Unlock()
	if session.destroyed.Load() || generation != session.generation {
		return
	}
	function()
}

// applyLocked merges, filters, and displays snapshot. Caller holds
// applyMutex.
func (session *Session) applyLocked(snapshot *sourcemap.Node, digest sourcemap.Hash, descriptor *project.Descriptor) {
	if !digest.IsZero() && digest == session.lastDigest && session.last != nil {
		// The reconciler finds nothing to change; the update only
		// ends the loading state.
		session.logger.Debug("skipping identical snapshot", "digest", digest.String())
		session.display.Update(session.ctx, session.workspace, session.last, false)
		return
	}

	project.MergeInto(descriptor, snapshot)
	sourcemap.Filter(snapshot, session.matcher)

	session.last = snapshot
	session.lastDigest = digest
	session.display.ClearError(session.workspace)
	session.display.Update(session.ctx, session.workspace, snapshot, false)
	session.persistLocked(snapshot, digest)
}

func (session *Session) persistLocked(snapshot *sourcemap.Node, digest sourcemap.Hash) {
	if session.cachePath == "" {
		return
	}
	entry := snapcache.Entry{
		Workspace: session.workspace,
		Digest:    digest,
		SavedAt:   session.clock.Now(),
		Node:      snapshot,
	}
	if err := snapcache.Write(session.cachePath, entry, session.compression); err != nil {
		session.logger.Warn("writing snapshot cache failed", "path", session.cachePath, "error", err)
	}
}

// restoreCache displays the cached snapshot for the workspace, if
// there is one.
func (session *Session) restoreCache() {
	if session.cachePath == "" {
		return
	}
	entry, err := snapcache.Read(session.cachePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			session.logger.Warn("reading snapshot cache failed", "path", session.cachePath, "error", err)
		}
		return
	}
	if entry.Workspace != session.workspace {
		return
	}

	session.logger.Debug("displaying cached snapshot", "saved_at", entry.SavedAt)
	session.withDisplay(func() {
		session.last = entry.Node
		session.display.Update(session.ctx, session.workspace, entry.Node, false)
	})
}
