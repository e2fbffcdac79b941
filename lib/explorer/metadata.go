// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package explorer

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/sourcetree/lib/sourcemap"
)

// LoadingLabel and LoadingIcon mark an Empty node.
const (
	LoadingLabel = "Loading"
	LoadingIcon  = "loading"
)

// CollapsibleState is the expand/collapse state of a displayed node.
type CollapsibleState int

const (
	// CollapsibleNone marks a leaf.
	CollapsibleNone CollapsibleState = iota

	// CollapsibleCollapsed marks a node with hidden children.
	CollapsibleCollapsed

	// CollapsibleExpanded marks a node with visible children.
	CollapsibleExpanded
)

func (state CollapsibleState) String() string {
	switch state {
	case CollapsibleCollapsed:
		return "collapsed"
	case CollapsibleExpanded:
		return "expanded"
	default:
		return "none"
	}
}

// Field is one optional metadata value. The zero Field is unset,
// which is distinct from a set empty string.
type Field struct {
	Value string
	Set   bool
}

// Value returns a set Field holding value.
func Value(value string) Field {
	return Field{Value: value, Set: true}
}

// Metadata is the display record of a node. Every field is compared
// individually when a node is updated.
type Metadata struct {
	// Label is the primary display text, normally the instance name.
	Label Field

	// Description is secondary text shown next to the label.
	Description Field

	// Tooltip is shown on hover or in detail views.
	Tooltip Field

	// Icon names the icon to draw, normally the class name.
	Icon Field

	// PrimaryPath is the workspace-relative primary file path.
	PrimaryPath Field

	// ResourcePath is the absolute path the node opens or reveals.
	ResourcePath Field

	// ContextValue is a semicolon-separated list of capabilities
	// ("file", "folder", "project") used to select actions.
	ContextValue Field

	// Collapsible is the collapsible state candidate. A Collapsed
	// candidate never collapses an Expanded node.
	Collapsible CollapsibleState
}

// MetadataRequest describes the node whose metadata is resolved.
type MetadataRequest struct {
	// Workspace is the absolute workspace root.
	Workspace string

	// Snapshot is the new snapshot node. Never nil.
	Snapshot *sourcemap.Node

	// Parent is the display parent, nil for a root.
	Parent *Node
}

// MetadataProvider resolves display metadata for a snapshot node.
// Implementations must be safe for concurrent use: sibling subtrees
// are resolved in parallel.
type MetadataProvider interface {
	Resolve(ctx context.Context, request MetadataRequest) Metadata
}

// MetadataProviderFunc adapts a function to MetadataProvider.
type MetadataProviderFunc func(ctx context.Context, request MetadataRequest) Metadata

// Resolve calls the function.
func (function MetadataProviderFunc) Resolve(ctx context.Context, request MetadataRequest) Metadata {
	return function(ctx, request)
}

// LoadingMetadata is the metadata of an Empty node.
func LoadingMetadata() Metadata {
	return Metadata{Label: Value(LoadingLabel), Icon: Value(LoadingIcon)}
}

// DefaultMetadata derives metadata from the snapshot alone: the name
// as label, the class as icon and (when it differs from the name)
// description, and paths from the primary file or folder.
type DefaultMetadata struct{}

// Resolve implements MetadataProvider.
func (DefaultMetadata) Resolve(_ context.Context, request MetadataRequest) Metadata {
	snapshot := request.Snapshot
	metadata := Metadata{
		Label: Value(snapshot.Name),
		Icon:  Value(snapshot.ClassName),
	}
	if snapshot.ClassName != snapshot.Name {
		metadata.Description = Value(snapshot.ClassName)
	}

	var capabilities []string
	primaryPath, hasPrimary := sourcemap.PrimaryPath(snapshot, false)
	if hasPrimary {
		metadata.PrimaryPath = Value(primaryPath)
		metadata.ResourcePath = Value(filepath.Join(request.Workspace, filepath.FromSlash(primaryPath)))
		metadata.Tooltip = Value(primaryPath)
		capabilities = append(capabilities, "file")
		if sourcemap.IsProjectFilePath(primaryPath) {
			capabilities = append(capabilities, "project")
		}
	}
	if snapshot.FolderPath != "" {
		if !hasPrimary {
			metadata.ResourcePath = Value(filepath.Join(request.Workspace, filepath.FromSlash(snapshot.FolderPath)))
			metadata.Tooltip = Value(snapshot.FolderPath)
		}
		capabilities = append(capabilities, "folder")
	}
	if len(capabilities) > 0 {
		metadata.ContextValue = Value(strings.Join(capabilities, ";"))
	}

	if len(snapshot.Children) > 0 {
		metadata.Collapsible = CollapsibleCollapsed
	}
	return metadata
}

// mergeMetadata applies resolved onto current field by field and
// reports whether any field changed.
func mergeMetadata(current, resolved Metadata) (Metadata, bool) {
	changed := false
	apply := func(target *Field, value Field) {
		if *target != value {
			*target = value
			changed = true
		}
	}
	apply(&current.Label, resolved.Label)
	apply(&current.Description, resolved.Description)
	apply(&current.Tooltip, resolved.Tooltip)
	apply(&current.Icon, resolved.Icon)
	apply(&current.PrimaryPath, resolved.PrimaryPath)
	apply(&current.ResourcePath, resolved.ResourcePath)
	apply(&current.ContextValue, resolved.ContextValue)

	collapsible := resolved.Collapsible
	if collapsible == CollapsibleCollapsed && current.Collapsible == CollapsibleExpanded {
		collapsible = CollapsibleExpanded
	}
	if current.Collapsible != collapsible {
		current.Collapsible = collapsible
		changed = true
	}
	return current, changed
}
