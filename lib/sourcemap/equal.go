// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sourcemap

// Equal reports whether previous and current describe the same
// instance: same name, class, and folder path, and the same set of
// file paths regardless of order (an absent list equals an empty
// one). A nil node behaves like a node whose fields are all empty.
//
// With deep set, children are compared index by index, recursively.
// Without it, children are ignored.
func Equal(previous, current *Node, deep bool) bool {
	var previousFields, currentFields Node
	if previous != nil {
		previousFields = *previous
	}
	if current != nil {
		currentFields = *current
	}

	if previousFields.Name != currentFields.Name ||
		previousFields.ClassName != currentFields.ClassName ||
		previousFields.FolderPath != currentFields.FolderPath {
		return false
	}
	if !sameFilePaths(previousFields.FilePaths, currentFields.FilePaths) {
		return false
	}

	if !deep {
		return true
	}
	if len(previousFields.Children) != len(currentFields.Children) {
		return false
	}
	for index := range previousFields.Children {
		if !Equal(previousFields.Children[index], currentFields.Children[index], true) {
			return false
		}
	}
	return true
}

// sameFilePaths compares two file path lists as sets. Lists of
// different length are never equal, so duplicate entries count.
func sameFilePaths(previous, current []string) bool {
	if len(previous) != len(current) {
		return false
	}
	switch len(previous) {
	case 0:
		return true
	case 1:
		return previous[0] == current[0]
	}

	previousSet := make(map[string]struct{}, len(previous))
	for _, path := range previous {
		previousSet[path] = struct{}{}
	}
	currentSet := make(map[string]struct{}, len(current))
	for _, path := range current {
		if _, ok := previousSet[path]; !ok {
			return false
		}
		currentSet[path] = struct{}{}
	}
	for path := range previousSet {
		if _, ok := currentSet[path]; !ok {
			return false
		}
	}
	return true
}
