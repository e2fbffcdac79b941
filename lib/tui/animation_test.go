// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"testing"
	"time"
)

func TestHeatTracker(t *testing.T) {
	tracker := NewHeatTracker()
	start := time.Unix(1000, 0)

	if heat := tracker.Heat(1, start); heat != 0 {
		t.Errorf("heat of an unknown node = %v", heat)
	}
	if tracker.HasHot(start) {
		t.Error("empty tracker reports hot nodes")
	}

	tracker.Ignite(1, start)
	if heat := tracker.Heat(1, start); heat != 1 {
		t.Errorf("heat at ignition = %v, want 1", heat)
	}
	if heat := tracker.Heat(1, start.Add(HeatDecayDuration/2)); heat != 0.5 {
		t.Errorf("heat halfway = %v, want 0.5", heat)
	}
	if !tracker.HasHot(start.Add(HeatDecayDuration / 2)) {
		t.Error("tracker lost a hot node")
	}

	later := start.Add(HeatDecayDuration)
	if heat := tracker.Heat(1, later); heat != 0 {
		t.Errorf("heat after decay = %v, want 0", heat)
	}
	if tracker.HasHot(later) {
		t.Error("fully decayed node still hot")
	}
	if len(tracker.ignitions) != 0 {
		t.Errorf("decayed entries kept: %d", len(tracker.ignitions))
	}

	tracker.Ignite(2, start)
	tracker.Ignite(2, later)
	if heat := tracker.Heat(2, later); heat != 1 {
		t.Errorf("re-ignited heat = %v, want 1", heat)
	}
}
