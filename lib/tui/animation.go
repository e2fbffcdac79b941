// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"time"

	"github.com/bureau-foundation/sourcetree/lib/explorer"
)

// HeatDecayDuration is how long a node glows after it changed. Heat
// starts at 1.0 and decays linearly to 0.0 over this duration.
const HeatDecayDuration = 3 * time.Second

// HeatTickInterval is the re-render interval while any node is hot.
const HeatTickInterval = 100 * time.Millisecond

// HeatTracker maps nodes to the time they last changed.
type HeatTracker struct {
	ignitions map[explorer.NodeID]time.Time
}

// NewHeatTracker creates an empty heat tracker.
func NewHeatTracker() *HeatTracker {
	return &HeatTracker{ignitions: make(map[explorer.NodeID]time.Time)}
}

// Ignite records a change of node. Resets the decay if the node was
// already hot.
func (tracker *HeatTracker) Ignite(node explorer.NodeID, now time.Time) {
	tracker.ignitions[node] = now
}

// Heat returns the node's current intensity: 1.0 at ignition, 0.0
// once HeatDecayDuration has passed or when it never changed.
func (tracker *HeatTracker) Heat(node explorer.NodeID, now time.Time) float64 {
	ignition, ok := tracker.ignitions[node]
	if !ok {
		return 0
	}
	elapsed := now.Sub(ignition)
	if elapsed >= HeatDecayDuration {
		return 0
	}
	return 1 - float64(elapsed)/float64(HeatDecayDuration)
}

// HasHot reports whether any node still has heat, dropping the ones
// that have fully decayed.
func (tracker *HeatTracker) HasHot(now time.Time) bool {
	hot := false
	for node, ignition := range tracker.ignitions {
		if now.Sub(ignition) < HeatDecayDuration {
			hot = true
			continue
		}
		delete(tracker.ignitions, node)
	}
	return hot
}
