// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sourcemap

import (
	"fmt"
	"maps"
	"os"

	"gopkg.in/yaml.v3"
)

// OrderTable maps a class name to its explorer order. Lower orders are
// displayed first. The table is read-only once built.
type OrderTable map[string]int

// DisplayOrder returns the explorer order for node's class. A class
// missing from the table, or listed with order 0, has no explicit
// order and its siblings fall back to name comparison.
func DisplayOrder(node *Node, table OrderTable) (int, bool) {
	if node == nil {
		return 0, false
	}
	order, ok := table[node.ClassName]
	if !ok || order == 0 {
		return 0, false
	}
	return order, true
}

// defaultOrders follows the service layout of a fresh place: world
// first, then players and lighting, replicated containers, server
// containers, and starter containers.
var defaultOrders = OrderTable{
	"Workspace":           10,
	"Players":             20,
	"Lighting":            30,
	"MaterialService":     35,
	"ReplicatedFirst":     40,
	"ReplicatedStorage":   50,
	"ServerScriptService": 60,
	"ServerStorage":       70,
	"StarterGui":          80,
	"StarterPack":         90,
	"StarterPlayer":       100,
	"Teams":               110,
	"SoundService":        120,
	"Chat":                130,
	"TextChatService":     140,
	"LocalizationService": 150,
	"TestService":         160,
	"Camera":              200,
	"Terrain":             210,

	"StarterPlayerScripts":    300,
	"StarterCharacterScripts": 310,
}

// DefaultOrderTable returns a copy of the built-in class order table.
func DefaultOrderTable() OrderTable {
	return maps.Clone(defaultOrders)
}

// LoadOrderTable reads a class order table from a YAML or JSON file
// mapping class names to orders. JSON is accepted because it is a
// subset of YAML.
func LoadOrderTable(path string) (OrderTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading class order table: %w", err)
	}
	var table OrderTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing class order table %s: %w", path, err)
	}
	if table == nil {
		table = OrderTable{}
	}
	return table, nil
}
