// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package project

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Descriptor is a parsed project file. Top-level keys other than
// "name" and "tree" (servePort, globIgnorePaths, ...) are ignored.
type Descriptor struct {
	// Name is the name given to the root instance.
	Name string `json:"name"`

	// Tree is the root node.
	Tree *Node `json:"tree"`
}

// Child is a named entry of a Node, in document order.
type Child struct {
	Name string
	Node *Node
}

// Node is one entry of a project tree.
type Node struct {
	// Path is the "$path" directive when it is a string. Other forms
	// of "$path" are kept in Directives only.
	Path string

	// ClassName is the "$className" directive.
	ClassName string

	// Directives holds every "$" key of the node, undecoded.
	Directives map[string]json.RawMessage

	// Children are the non-directive entries in document order.
	Children []Child

	// FilePath is set by CacheFilesystemPaths when Path names an
	// existing file.
	FilePath string

	// FolderPath is set by CacheFilesystemPaths when Path names an
	// existing directory.
	FolderPath string
}

// Child returns the first child named name, or nil.
func (node *Node) Child(name string) *Node {
	for _, child := range node.Children {
		if child.Name == name {
			return child.Node
		}
	}
	return nil
}

// UnmarshalJSON decodes a project node object. Entries whose key
// starts with "$" become directives; every other entry must itself be
// a node object.
func (node *Node) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	token, err := decoder.Token()
	if err != nil {
		return err
	}
	if delimiter, ok := token.(json.Delim); !ok || delimiter != '{' {
		return errors.New("project node must be an object")
	}

	*node = Node{}
	for decoder.More() {
		token, err := decoder.Token()
		if err != nil {
			return err
		}
		key := token.(string)

		if strings.HasPrefix(key, "$") {
			var raw json.RawMessage
			if err := decoder.Decode(&raw); err != nil {
				return fmt.Errorf("directive %s: %w", key, err)
			}
			if node.Directives == nil {
				node.Directives = make(map[string]json.RawMessage)
			}
			node.Directives[key] = raw
			switch key {
			case "$path":
				// Non-string forms are left for the tool to interpret.
				_ = json.Unmarshal(raw, &node.Path)
			case "$className":
				if err := json.Unmarshal(raw, &node.ClassName); err != nil {
					return fmt.Errorf("directive $className: %w", err)
				}
			}
			continue
		}

		var child Node
		if err := decoder.Decode(&child); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		node.Children = append(node.Children, Child{Name: key, Node: &child})
	}

	// Consume the closing brace.
	if _, err := decoder.Token(); err != nil {
		return err
	}
	return nil
}
