// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package explorer

import (
	"cmp"
	"slices"
	"strings"
	"sync"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

var fuzzyInit sync.Once

// Match is one result of Find.
type Match struct {
	Node *Node

	// InstancePath is the dot-separated path that was matched.
	InstancePath string

	// Score is the fuzzy match score; higher is better.
	Score int

	// Positions are the matched rune offsets into InstancePath.
	Positions []int
}

// Find fuzzy-matches query against the instance path of every
// populated node under root and returns up to limit matches, best
// first. Matching is case-insensitive. Equal scores prefer shorter
// paths, then display order. A limit of zero or less returns every
// match.
func Find(root *Node, query string, limit int) []Match {
	pattern := []rune(strings.ToLower(strings.TrimSpace(query)))
	if root == nil || len(pattern) == 0 {
		return nil
	}
	fuzzyInit.Do(func() { algo.Init("default") })

	slab := util.MakeSlab(100*1024, 2048)
	var matches []Match
	var names []string
	root.Walk(func(node *Node, depth int) bool {
		snapshot := node.Snapshot()
		if snapshot == nil {
			return false
		}
		names = append(names[:depth], snapshot.Name)
		instancePath := strings.Join(names, ".")

		chars := util.ToChars([]byte(instancePath))
		result, positions := algo.FuzzyMatchV2(false, true, true, &chars, pattern, true, slab)
		if result.Start >= 0 && result.Score > 0 {
			match := Match{Node: node, InstancePath: instancePath, Score: result.Score}
			if positions != nil {
				match.Positions = slices.Clone(*positions)
				slices.Sort(match.Positions)
			}
			matches = append(matches, match)
		}
		return true
	})

	slices.SortStableFunc(matches, func(left, right Match) int {
		if left.Score != right.Score {
			return cmp.Compare(right.Score, left.Score)
		}
		return cmp.Compare(len(left.InstancePath), len(right.InstancePath))
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
