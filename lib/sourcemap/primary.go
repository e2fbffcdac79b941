// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sourcemap

import (
	"math"
	"sort"
	"strings"
)

// primaryPriorities ranks file suffixes for primary path selection.
// Lower ranks win. Suffixes are checked in order, so the init entries
// must precede the generic ones they end with.
var primaryPriorities = []struct {
	suffix string
	rank   int
}{
	{"init.luau", 0},
	{"init.lua", 0},
	{"init.model.json", 1},
	{"init.meta.json", 2},
	{".luau", 3},
	{".lua", 3},
	{".model.json", 4},
	{".meta.json", 5},
}

// primarySortKey orders candidates by suffix rank, then by length so
// the shortest path in a tier wins. Unranked paths sort last.
func primarySortKey(filePath string) int {
	for _, priority := range primaryPriorities {
		if strings.HasSuffix(filePath, priority.suffix) {
			return priority.rank*1000 + len(filePath)
		}
	}
	return math.MaxInt
}

// PrimaryPath returns the file that best represents node: init scripts
// first, then scripts, model files, and meta files. Binary files are
// skipped unless allowBinary is set. Ties keep the original order.
// Returns false when the node has no eligible file path.
func PrimaryPath(node *Node, allowBinary bool) (string, bool) {
	if node == nil || len(node.FilePaths) == 0 {
		return "", false
	}

	candidates := make([]string, 0, len(node.FilePaths))
	for _, filePath := range node.FilePaths {
		if allowBinary || !IsBinaryFilePath(filePath) {
			candidates = append(candidates, filePath)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return primarySortKey(candidates[i]) < primarySortKey(candidates[j])
	})
	return candidates[0], true
}
