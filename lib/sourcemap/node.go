// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sourcemap

import (
	"encoding/json"

	"github.com/bureau-foundation/sourcetree/lib/codec"
)

// FolderClassName is the class of plain container instances. Folders
// without an explicit folder path inherit one from their parent.
const FolderClassName = "Folder"

// Node is one instance in a sourcemap snapshot.
type Node struct {
	// Name is the instance name.
	Name string `json:"name"`

	// ClassName is the instance class, used as an opaque key into
	// the class order table.
	ClassName string `json:"className"`

	// FolderPath is the workspace-relative directory backing the
	// instance. Empty when unknown.
	FolderPath string `json:"folderPath,omitempty"`

	// FilePaths lists the workspace-relative files that produce the
	// instance. Nil when absent.
	FilePaths []string `json:"filePaths,omitempty"`

	// Children are the child instances in tool order. Nil for a leaf.
	Children []*Node `json:"children,omitempty"`
}

// wireNode is the encoded shape of a Node. The pointer slices keep an
// absent list (nil pointer, omitted) apart from an empty one.
type wireNode struct {
	Name       string    `json:"name" cbor:"name"`
	ClassName  string    `json:"className" cbor:"className"`
	FolderPath string    `json:"folderPath,omitempty" cbor:"folderPath,omitempty"`
	FilePaths  *[]string `json:"filePaths,omitempty" cbor:"filePaths,omitempty"`
	Children   *[]*Node  `json:"children,omitempty" cbor:"children,omitempty"`
}

func (node *Node) toWire() wireNode {
	wire := wireNode{
		Name:       node.Name,
		ClassName:  node.ClassName,
		FolderPath: node.FolderPath,
	}
	if node.FilePaths != nil {
		wire.FilePaths = &node.FilePaths
	}
	if node.Children != nil {
		wire.Children = &node.Children
	}
	return wire
}

func (node *Node) fromWire(wire wireNode) {
	node.Name = wire.Name
	node.ClassName = wire.ClassName
	node.FolderPath = wire.FolderPath
	node.FilePaths = nil
	node.Children = nil
	if wire.FilePaths != nil {
		node.FilePaths = *wire.FilePaths
		if node.FilePaths == nil {
			node.FilePaths = []string{}
		}
	}
	if wire.Children != nil {
		node.Children = *wire.Children
		if node.Children == nil {
			node.Children = []*Node{}
		}
	}
}

// MarshalJSON encodes the node, emitting empty file path and child
// lists as [] and omitting absent ones.
func (node *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(node.toWire())
}

// MarshalCBOR encodes the node with the same absent/empty distinction
// as MarshalJSON.
func (node *Node) MarshalCBOR() ([]byte, error) {
	return codec.Marshal(node.toWire())
}

// UnmarshalCBOR decodes a node written by MarshalCBOR.
func (node *Node) UnmarshalCBOR(data []byte) error {
	var wire wireNode
	if err := codec.Unmarshal(data, &wire); err != nil {
		return err
	}
	node.fromWire(wire)
	return nil
}

// Clone returns a copy of the node with its own FilePaths and Children
// slices. With deep set, every descendant is copied too; otherwise the
// children slice holds the same child pointers.
func (node *Node) Clone(deep bool) *Node {
	clone := &Node{
		Name:       node.Name,
		ClassName:  node.ClassName,
		FolderPath: node.FolderPath,
	}
	if node.FilePaths != nil {
		clone.FilePaths = append([]string{}, node.FilePaths...)
	}
	if node.Children != nil {
		clone.Children = make([]*Node, len(node.Children))
		for index, child := range node.Children {
			if deep {
				clone.Children[index] = child.Clone(true)
			} else {
				clone.Children[index] = child
			}
		}
	}
	return clone
}

// HasFilePath reports whether path is one of the node's file paths.
func (node *Node) HasFilePath(path string) bool {
	for _, existing := range node.FilePaths {
		if existing == path {
			return true
		}
	}
	return false
}

// Walk calls visit for node and every descendant in depth-first
// pre-order, passing the chain of names from the root. Returning false
// from visit skips the node's subtree.
func (node *Node) Walk(visit func(node *Node, names []string) bool) {
	node.walk(nil, visit)
}

func (node *Node) walk(names []string, visit func(*Node, []string) bool) {
	names = append(names[:len(names):len(names)], node.Name)
	if !visit(node, names) {
		return
	}
	for _, child := range node.Children {
		child.walk(names, visit)
	}
}
