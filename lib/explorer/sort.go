// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package explorer

import (
	"cmp"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// sortSiblings orders nodes for presentation: by explorer order when
// both nodes have one and the orders differ, then by label under the
// root locale's collation. Anything else keeps its storage order.
func sortSiblings(nodes []*Node) {
	if len(nodes) < 2 {
		return
	}

	type sortKey struct {
		node     *Node
		order    int
		hasOrder bool
		label    string
	}
	keys := make([]sortKey, len(nodes))
	for index, node := range nodes {
		node.mutex.RLock()
		keys[index] = sortKey{
			node:     node,
			order:    node.order,
			hasOrder: node.hasOrder,
			label:    node.metadata.Label.Value,
		}
		node.mutex.RUnlock()
	}

	// A Collator keeps internal buffers and is not safe for concurrent
	// use, so each sort gets its own.
	collator := collate.New(language.Und)
	slices.SortStableFunc(keys, func(left, right sortKey) int {
		if left.hasOrder && right.hasOrder && left.order != right.order {
			return cmp.Compare(left.order, right.order)
		}
		if left.label != "" && right.label != "" {
			return collator.CompareString(left.label, right.label)
		}
		return 0
	})

	for index, key := range keys {
		nodes[index] = key.node
	}
}
