// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package explorer

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bureau-foundation/sourcetree/lib/sourcemap"
)

// NodeID identifies a node within its tree's arena. The zero NodeID
// refers to no node.
type NodeID uint64

// Listener receives a notification for every node whose display state
// changed. Calls may arrive concurrently from sibling updates.
type Listener interface {
	NodeUpdated(node *Node)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(node *Node)

// NodeUpdated calls the function.
func (function ListenerFunc) NodeUpdated(node *Node) { function(node) }

// Options configure a display tree.
type Options struct {
	// Workspace is the absolute workspace root that relative paths
	// resolve against.
	Workspace string

	// Orders maps class names to explorer orders.
	Orders sourcemap.OrderTable

	// Metadata resolves display metadata. Nil uses DefaultMetadata.
	Metadata MetadataProvider

	// Listener is notified of node updates. May be nil.
	Listener Listener
}

// scope is shared by every node of one tree.
type scope struct {
	options Options

	mutex  sync.RWMutex
	nodes  map[NodeID]*Node
	nextID NodeID
}

func (scope *scope) register(node *Node) NodeID {
	scope.mutex.Lock()
	defer scope.mutex.Unlock()
	scope.nextID++
	scope.nodes[scope.nextID] = node
	return scope.nextID
}

func (scope *scope) lookup(id NodeID) *Node {
	if id == 0 {
		return nil
	}
	scope.mutex.RLock()
	defer scope.mutex.RUnlock()
	return scope.nodes[id]
}

// release removes node and its whole subtree from the arena.
func (scope *scope) release(node *Node) {
	var ids []NodeID
	node.visit(func(visited *Node) { ids = append(ids, visited.id) })

	scope.mutex.Lock()
	defer scope.mutex.Unlock()
	for _, id := range ids {
		delete(scope.nodes, id)
	}
}

func (scope *scope) size() int {
	scope.mutex.RLock()
	defer scope.mutex.RUnlock()
	return len(scope.nodes)
}

// Node is one displayed instance. Update may only be called by the
// node's owner (its parent, or the Tree for a root) and never
// concurrently with itself; every other method is safe to call from
// any goroutine.
type Node struct {
	scope  *scope
	id     NodeID
	parent NodeID

	mutex    sync.RWMutex
	snapshot *sourcemap.Node
	metadata Metadata
	order    int
	hasOrder bool
	children []*Node
}

// NewRoot returns an Empty root node of a new tree.
func NewRoot(options Options) *Node {
	if options.Metadata == nil {
		options.Metadata = DefaultMetadata{}
	}
	treeScope := &scope{options: options, nodes: make(map[NodeID]*Node)}
	return newNode(treeScope, 0)
}

func newNode(treeScope *scope, parent NodeID) *Node {
	node := &Node{
		scope:    treeScope,
		parent:   parent,
		metadata: LoadingMetadata(),
	}
	node.id = treeScope.register(node)
	return node
}

// ID returns the node's arena handle.
func (node *Node) ID() NodeID { return node.id }

// Workspace returns the workspace root of the node's tree.
func (node *Node) Workspace() string { return node.scope.options.Workspace }

// Lookup resolves id within the node's tree. Returns nil for ids of
// released nodes.
func (node *Node) Lookup(id NodeID) *Node { return node.scope.lookup(id) }

// Parent returns the parent node, or nil for a root or a node that
// has been removed from its tree.
func (node *Node) Parent() *Node { return node.scope.lookup(node.parent) }

// Snapshot returns the current snapshot node, nil while Empty. The
// returned node must not be modified.
func (node *Node) Snapshot() *sourcemap.Node {
	node.mutex.RLock()
	defer node.mutex.RUnlock()
	return node.snapshot
}

// Metadata returns the current display metadata.
func (node *Node) Metadata() Metadata {
	node.mutex.RLock()
	defer node.mutex.RUnlock()
	return node.metadata
}

// Label returns the display label.
func (node *Node) Label() string {
	return node.Metadata().Label.Value
}

// Order returns the explorer order, if the node's class has one.
func (node *Node) Order() (int, bool) {
	node.mutex.RLock()
	defer node.mutex.RUnlock()
	return node.order, node.hasOrder
}

// ChildCount returns the number of children without copying them.
func (node *Node) ChildCount() int {
	node.mutex.RLock()
	defer node.mutex.RUnlock()
	return len(node.children)
}

// Children returns a sorted copy of the node's children. An Empty
// node has none.
func (node *Node) Children() []*Node {
	node.mutex.RLock()
	if node.snapshot == nil {
		node.mutex.RUnlock()
		return nil
	}
	children := append([]*Node(nil), node.children...)
	node.mutex.RUnlock()

	sortSiblings(children)
	return children
}

// FilePath returns the absolute path of the node's primary file.
// Binary files are not considered.
func (node *Node) FilePath() (string, bool) {
	primaryPath, ok := sourcemap.PrimaryPath(node.Snapshot(), false)
	if !ok {
		return "", false
	}
	return filepath.Join(node.Workspace(), filepath.FromSlash(primaryPath)), true
}

// FolderPath returns the absolute path of the node's folder.
func (node *Node) FolderPath() (string, bool) {
	snapshot := node.Snapshot()
	if snapshot == nil || snapshot.FolderPath == "" {
		return "", false
	}
	return filepath.Join(node.Workspace(), filepath.FromSlash(snapshot.FolderPath)), true
}

// InstancePath returns the dot-separated instance names from the root
// down to this node.
func (node *Node) InstancePath() string {
	var names []string
	for current := node; current != nil; current = current.Parent() {
		snapshot := current.Snapshot()
		if snapshot == nil {
			break
		}
		names = append(names, snapshot.Name)
	}
	return strings.Join(reversed(names), ".")
}

func reversed(names []string) []string {
	for left, right := 0, len(names)-1; left < right; left, right = left+1, right-1 {
		names[left], names[right] = names[right], names[left]
	}
	return names
}

// SetExpanded expands or collapses a node that has children and
// notifies the listener when the state changed. Leaves are unaffected.
func (node *Node) SetExpanded(expanded bool) bool {
	node.mutex.Lock()
	current := node.metadata.Collapsible
	target := CollapsibleCollapsed
	if expanded {
		target = CollapsibleExpanded
	}
	if current == CollapsibleNone || current == target {
		node.mutex.Unlock()
		return false
	}
	node.metadata.Collapsible = target
	node.mutex.Unlock()

	node.notify()
	return true
}

// Update reconciles the node with snapshot and reports whether the
// node's own child list changed shape (children added or removed).
// Changes below the direct children do not count.
//
// Only metadata fields whose resolved values differ are applied. The
// listener is notified at most once for this node, whenever the
// snapshot differs or the child list changed, even if every resolved
// field stayed the same. A nil snapshot
// returns the node to the Empty state.
func (node *Node) Update(ctx context.Context, snapshot *sourcemap.Node) bool {
	node.mutex.RLock()
	previous := node.snapshot
	metadata := node.metadata
	children := node.children
	node.mutex.RUnlock()

	changed := !sourcemap.Equal(previous, snapshot, false)
	itemChanged := false
	if changed {
		resolved := LoadingMetadata()
		if snapshot != nil {
			resolved = node.scope.options.Metadata.Resolve(ctx, MetadataRequest{
				Workspace: node.Workspace(),
				Snapshot:  snapshot,
				Parent:    node.Parent(),
			})
		}
		metadata, itemChanged = mergeMetadata(metadata, resolved)
	}

	var previousChildren, currentChildren []*sourcemap.Node
	if previous != nil {
		previousChildren = previous.Children
	}
	if snapshot != nil {
		currentChildren = snapshot.Children
	}

	childrenChanged := false
	var removed []*Node
	switch {
	case previousChildren != nil && currentChildren != nil:
		if len(children) > len(currentChildren) {
			removed = append(removed, children[len(currentChildren):]...)
			children = append([]*Node(nil), children[:len(currentChildren)]...)
			childrenChanged = true
		} else {
			children = append([]*Node(nil), children...)
		}
		for len(children) < len(currentChildren) {
			children = append(children, newNode(node.scope, node.id))
			childrenChanged = true
		}
		updateChildren(ctx, children, currentChildren)
	case previousChildren != nil:
		removed = children
		children = []*Node{}
		childrenChanged = true
	case currentChildren != nil:
		children = make([]*Node, len(currentChildren))
		for index := range children {
			children[index] = newNode(node.scope, node.id)
		}
		updateChildren(ctx, children, currentChildren)
		childrenChanged = true
	}

	order, hasOrder := node.order, node.hasOrder
	if changed {
		order, hasOrder = sourcemap.DisplayOrder(snapshot, node.scope.options.Orders)
	}

	if childrenChanged {
		collapsible := CollapsibleNone
		if len(children) > 0 {
			collapsible = CollapsibleCollapsed
			if metadata.Collapsible == CollapsibleExpanded {
				collapsible = CollapsibleExpanded
			}
		}
		if metadata.Collapsible != collapsible {
			metadata.Collapsible = collapsible
			itemChanged = true
		}
	}

	node.mutex.Lock()
	node.metadata = metadata
	node.order, node.hasOrder = order, hasOrder
	node.children = children
	node.snapshot = snapshot
	node.mutex.Unlock()

	for _, child := range removed {
		node.scope.release(child)
	}
	if changed || itemChanged || childrenChanged {
		node.notify()
	}
	return childrenChanged
}

// updateChildren updates each display child with the snapshot child
// at the same index, concurrently, and waits for all of them.
func updateChildren(ctx context.Context, children []*Node, snapshots []*sourcemap.Node) {
	if len(children) == 1 {
		children[0].Update(ctx, snapshots[0])
		return
	}
	var waitGroup sync.WaitGroup
	waitGroup.Add(len(children))
	for index, child := range children {
		go func(child *Node, snapshot *sourcemap.Node) {
			defer waitGroup.Done()
			child.Update(ctx, snapshot)
		}(child, snapshots[index])
	}
	waitGroup.Wait()
}

func (node *Node) notify() {
	if listener := node.scope.options.Listener; listener != nil {
		listener.NodeUpdated(node)
	}
}

// visit calls function for node and every descendant, in storage
// order.
func (node *Node) visit(function func(*Node)) {
	function(node)
	node.mutex.RLock()
	children := append([]*Node(nil), node.children...)
	node.mutex.RUnlock()
	for _, child := range children {
		child.visit(function)
	}
}

// Walk calls visit for node and every descendant in display order,
// depth first. Returning false skips the node's children.
func (node *Node) Walk(visit func(node *Node, depth int) bool) {
	node.walk(0, visit)
}

func (node *Node) walk(depth int, visit func(*Node, int) bool) {
	if !visit(node, depth) {
		return
	}
	for _, child := range node.Children() {
		child.walk(depth+1, visit)
	}
}

// Release removes the node's whole subtree from its tree's arena.
// Used by owners discarding a root.
func (node *Node) Release() {
	node.scope.release(node)
}

// ArenaSize returns the number of nodes registered in the node's tree.
func (node *Node) ArenaSize() int {
	return node.scope.size()
}
