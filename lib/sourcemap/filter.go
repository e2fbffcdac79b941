// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sourcemap

import (
	"fmt"
	"path"

	"github.com/bmatcuk/doublestar/v4"
)

// Matcher reports whether a workspace-relative path is ignored. A nil
// Matcher ignores nothing.
type Matcher func(filePath string) bool

// NewMatcher compiles ignore globs into a Matcher. Patterns use
// doublestar syntax ("**" crosses directories) and are matched against
// slash-separated paths. An empty pattern list returns a nil Matcher.
func NewMatcher(patterns []string) (Matcher, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	compiled := make([]string, 0, len(patterns))
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid ignore glob %q", pattern)
		}
		compiled = append(compiled, pattern)
	}
	return func(filePath string) bool {
		filePath = toSlash(filePath)
		for _, pattern := range compiled {
			// Patterns were validated above, so Match cannot fail.
			if matched, _ := doublestar.Match(pattern, filePath); matched {
				return true
			}
		}
		return false
	}, nil
}

// Filter prunes ignored nodes from root in place, in a single
// depth-first pass:
//
//   - A node without a folder path takes the directory of its init
//     script, if it has one.
//   - A Folder still without a folder path takes its parent's folder
//     path joined with its own name, when the parent has one.
//   - A node other than root is dropped when its folder path or any
//     of its file paths matches. Its subtree is not visited.
//
// Inferred folder paths are stored on the nodes. Surviving siblings
// keep their relative order. With a nil matcher only the folder path
// inference runs.
func Filter(root *Node, matcher Matcher) {
	if root == nil {
		return
	}
	filterNode(matcher, root, nil)
}

// filterNode returns false when node should be removed from parent.
func filterNode(matcher Matcher, node, parent *Node) bool {
	if node.FolderPath == "" {
		for _, filePath := range node.FilePaths {
			if IsInitFilePath(filePath) {
				node.FolderPath = path.Dir(toSlash(filePath))
				break
			}
		}
	}
	if node.FolderPath == "" && node.ClassName == FolderClassName &&
		parent != nil && parent.FolderPath != "" {
		node.FolderPath = path.Join(parent.FolderPath, node.Name)
	}

	if parent != nil && matcher != nil {
		if node.FolderPath != "" && matcher(node.FolderPath) {
			return false
		}
		for _, filePath := range node.FilePaths {
			if matcher(filePath) {
				return false
			}
		}
	}

	if node.Children != nil {
		kept := node.Children[:0]
		for _, child := range node.Children {
			if filterNode(matcher, child, node) {
				kept = append(kept, child)
			}
		}
		clear(node.Children[len(kept):])
		node.Children = kept
	}
	return true
}
