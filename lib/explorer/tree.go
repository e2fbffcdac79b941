// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package explorer

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/bureau-foundation/sourcetree/lib/sourcemap"
)

// Notification reports a display change. Node is nil when the change
// concerns the workspace as a whole (loading, error, or deletion).
type Notification struct {
	Workspace string
	Node      *Node
}

// Status is the workspace-level display state.
type Status struct {
	// Loading is set between SetLoading and the next Update.
	Loading bool

	// LoadingPath is the file being loaded, if known.
	LoadingPath string

	// Error is the message of the last SetError, cleared by
	// ClearError.
	Error string
}

// TreeOptions configure a Tree.
type TreeOptions struct {
	// Orders maps class names to explorer orders.
	Orders sourcemap.OrderTable

	// Metadata resolves display metadata. Nil uses DefaultMetadata.
	Metadata MetadataProvider

	// Listener receives every notification synchronously. May be nil.
	Listener func(Notification)

	Logger *slog.Logger
}

// Tree owns one display root per workspace.
type Tree struct {
	options TreeOptions
	logger  *slog.Logger

	mutex       sync.Mutex
	workspaces  map[string]*workspaceState
	subscribers map[int]chan Notification
	nextID      int
}

type workspaceState struct {
	root   *Node
	status Status
}

// NewTree returns an empty Tree.
func NewTree(options TreeOptions) *Tree {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tree{
		options:     options,
		logger:      logger,
		workspaces:  make(map[string]*workspaceState),
		subscribers: make(map[int]chan Notification),
	}
}

// Subscribe returns a channel receiving every notification and a
// function that ends the subscription. Notifications are dropped
// rather than blocking when the channel's buffer is full.
func (tree *Tree) Subscribe(buffer int) (<-chan Notification, func()) {
	channel := make(chan Notification, buffer)

	tree.mutex.Lock()
	tree.nextID++
	id := tree.nextID
	tree.subscribers[id] = channel
	tree.mutex.Unlock()

	var once sync.Once
	return channel, func() {
		once.Do(func() {
			tree.mutex.Lock()
			delete(tree.subscribers, id)
			tree.mutex.Unlock()
		})
	}
}

func (tree *Tree) publish(notification Notification) {
	if tree.options.Listener != nil {
		tree.options.Listener(notification)
	}
	tree.mutex.Lock()
	defer tree.mutex.Unlock()
	for _, channel := range tree.subscribers {
		select {
		case channel <- notification:
		default:
		}
	}
}

// stateLocked returns the workspace state, creating it and its root when
// missing. Caller holds tree.mutex.
func (tree *Tree) stateLocked(workspace string) *workspaceState {
	state, ok := tree.workspaces[workspace]
	if !ok {
		state = &workspaceState{root: tree.newRootLocked(workspace)}
		tree.workspaces[workspace] = state
	}
	return state
}

func (tree *Tree) newRootLocked(workspace string) *Node {
	return NewRoot(Options{
		Workspace: workspace,
		Orders:    tree.options.Orders,
		Metadata:  tree.options.Metadata,
		Listener: ListenerFunc(func(node *Node) {
			tree.publish(Notification{Workspace: workspace, Node: node})
		}),
	})
}

// SetLoading marks workspace as loading path.
func (tree *Tree) SetLoading(workspace, path string) {
	tree.mutex.Lock()
	state := tree.stateLocked(workspace)
	state.status.Loading = true
	state.status.LoadingPath = path
	tree.mutex.Unlock()

	tree.logger.Debug("workspace loading", "workspace", workspace, "path", path)
	tree.publish(Notification{Workspace: workspace})
}

// SetError records a user-facing error for workspace.
func (tree *Tree) SetError(workspace, message string) {
	tree.mutex.Lock()
	state := tree.stateLocked(workspace)
	state.status.Loading = false
	state.status.Error = message
	tree.mutex.Unlock()

	tree.logger.Debug("workspace error", "workspace", workspace, "error", message)
	tree.publish(Notification{Workspace: workspace})
}

// ClearError removes the error recorded for workspace.
func (tree *Tree) ClearError(workspace string) {
	tree.mutex.Lock()
	state, ok := tree.workspaces[workspace]
	cleared := ok && state.status.Error != ""
	if cleared {
		state.status.Error = ""
	}
	tree.mutex.Unlock()

	if cleared {
		tree.publish(Notification{Workspace: workspace})
	}
}

// Update reconciles the workspace root with snapshot. With
// forceRebuild the existing root is discarded first and the tree is
// built from scratch. Callers serialize updates per workspace.
func (tree *Tree) Update(ctx context.Context, workspace string, snapshot *sourcemap.Node, forceRebuild bool) {
	tree.mutex.Lock()
	state := tree.stateLocked(workspace)
	var discarded *Node
	if forceRebuild {
		discarded = state.root
		state.root = tree.newRootLocked(workspace)
	}
	root := state.root
	wasLoading := state.status.Loading
	state.status.Loading = false
	state.status.LoadingPath = ""
	tree.mutex.Unlock()

	if discarded != nil {
		discarded.Release()
	}
	root.Update(ctx, snapshot)
	if wasLoading || forceRebuild {
		tree.publish(Notification{Workspace: workspace})
	}
}

// Delete discards the workspace's tree and state.
func (tree *Tree) Delete(workspace string) {
	tree.mutex.Lock()
	state, ok := tree.workspaces[workspace]
	delete(tree.workspaces, workspace)
	tree.mutex.Unlock()

	if !ok {
		return
	}
	state.root.Release()
	tree.logger.Debug("workspace deleted", "workspace", workspace)
	tree.publish(Notification{Workspace: workspace})
}

// Root returns the workspace's root node, or nil when the workspace
// has no tree.
func (tree *Tree) Root(workspace string) *Node {
	tree.mutex.Lock()
	defer tree.mutex.Unlock()
	if state, ok := tree.workspaces[workspace]; ok {
		return state.root
	}
	return nil
}

// Status returns the workspace-level state, and false when the
// workspace has no tree.
func (tree *Tree) Status(workspace string) (Status, bool) {
	tree.mutex.Lock()
	defer tree.mutex.Unlock()
	if state, ok := tree.workspaces[workspace]; ok {
		return state.status, true
	}
	return Status{}, false
}

// Workspaces returns the workspaces with a tree, sorted.
func (tree *Tree) Workspaces() []string {
	tree.mutex.Lock()
	defer tree.mutex.Unlock()
	workspaces := make([]string, 0, len(tree.workspaces))
	for workspace := range tree.workspaces {
		workspaces = append(workspaces, workspace)
	}
	slices.Sort(workspaces)
	return workspaces
}
