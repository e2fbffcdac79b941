// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rojo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/sourcetree/lib/clock"
	"github.com/bureau-foundation/sourcetree/lib/testutil"
)

type fakeVersionRunner struct {
	output string
	err    error
	calls  map[string]int
}

func (runner *fakeVersionRunner) run(ctx context.Context, tool, workingDirectory string) (string, error) {
	if runner.calls == nil {
		runner.calls = make(map[string]int)
	}
	runner.calls[workingDirectory]++
	return runner.output, runner.err
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		output string
		want   string
		ok     bool
	}{
		{"Rojo 7.4.1\n", "v7.4.1", true},
		{"7.3.0", "v7.3.0", true},
		{"rojo v7.5.0-rc.1", "v7.5.0-rc.1", true},
		{"Rojo 7.4", "v7.4.0", true},
		{"Rojo 7.4.1\nsome trailing banner", "v7.4.1", true},
		{"", "", false},
		{"Rojo unknown", "", false},
	}
	for _, test := range tests {
		got, ok := ParseVersion(test.output)
		if got != test.want || ok != test.ok {
			t.Errorf("ParseVersion(%q) = %q, %v; want %q, %v", test.output, got, ok, test.want, test.ok)
		}
	}
}

func TestGateVersionRange(t *testing.T) {
	tests := []struct {
		output    string
		supported bool
	}{
		{"Rojo 7.3.0", true},
		{"Rojo 7.4.1", true},
		{"Rojo 7.2.9", false},
		{"Rojo 6.2.0", false},
		{"Rojo 8.0.0", false},
		{"garbage", false},
	}
	for _, test := range tests {
		t.Run(test.output, func(t *testing.T) {
			runner := &fakeVersionRunner{output: test.output}
			gate := NewGateWithRunner("rojo", clock.Fake(time.Unix(0, 0)), runner.run)

			supported, err := gate.Supported(context.Background(), "/workspace")
			if supported != test.supported {
				t.Errorf("Supported = %v, want %v (err %v)", supported, test.supported, err)
			}
			if supported {
				if err != nil {
					t.Errorf("supported with error %v", err)
				}
				return
			}
			var unavailable *UnavailableError
			if !errors.As(err, &unavailable) {
				t.Fatalf("error = %T %v, want *UnavailableError", err, err)
			}
		})
	}
}

func TestGateTooOldMessage(t *testing.T) {
	runner := &fakeVersionRunner{output: "Rojo 7.1.0"}
	gate := NewGateWithRunner("rojo", clock.Fake(time.Unix(0, 0)), runner.run)

	_, err := gate.Supported(context.Background(), "/workspace")
	if err == nil || !strings.Contains(err.Error(), "7.1.0 is not supported") {
		t.Errorf("error = %v", err)
	}
}

func TestGateRunFailure(t *testing.T) {
	notFound := errors.New("executable file not found in $PATH")
	runner := &fakeVersionRunner{err: notFound}
	gate := NewGateWithRunner("rojo", clock.Fake(time.Unix(0, 0)), runner.run)

	supported, err := gate.Supported(context.Background(), "/workspace")
	if supported {
		t.Fatal("Supported = true for a failing tool")
	}
	if !errors.Is(err, notFound) {
		t.Errorf("error %v does not wrap the run failure", err)
	}
}

func TestGateCachesPerDirectoryForTTL(t *testing.T) {
	fakeClock := clock.Fake(time.Unix(1000, 0))
	runner := &fakeVersionRunner{output: "Rojo 7.4.1"}
	gate := NewGateWithRunner("rojo", fakeClock, runner.run)
	ctx := context.Background()

	gate.Supported(ctx, "/a")
	gate.Supported(ctx, "/a")
	gate.Supported(ctx, "/b")
	if runner.calls["/a"] != 1 || runner.calls["/b"] != 1 {
		t.Fatalf("calls = %v, want one per directory", runner.calls)
	}

	fakeClock.Advance(GateTTL - time.Second)
	runner.output = "Rojo 7.0.0"
	if supported, _ := gate.Supported(ctx, "/a"); !supported {
		t.Error("cached result not reused within TTL")
	}

	fakeClock.Advance(time.Second)
	if supported, _ := gate.Supported(ctx, "/a"); supported {
		t.Error("expired result reused")
	}
	if runner.calls["/a"] != 2 {
		t.Errorf("calls[/a] = %d, want 2", runner.calls["/a"])
	}
}

func TestGateDoesNotCacheCancellation(t *testing.T) {
	runner := &fakeVersionRunner{output: "Rojo 7.4.1"}
	gate := NewGateWithRunner("rojo", clock.Fake(time.Unix(0, 0)), runner.run)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := gate.Supported(ctx, "/a"); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if supported, err := gate.Supported(context.Background(), "/a"); !supported || err != nil {
		t.Errorf("Supported after cancellation = %v, %v", supported, err)
	}
	if runner.calls["/a"] != 2 {
		t.Errorf("calls = %d, want 2", runner.calls["/a"])
	}
}

func TestGateRunsRealExecutable(t *testing.T) {
	tool := testutil.WriteExecutable(t, t.TempDir(), "rojo", "echo 'Rojo 7.4.1'\n")
	gate := NewGate(tool, clock.Real())

	supported, err := gate.Supported(context.Background(), t.TempDir())
	if !supported || err != nil {
		t.Errorf("Supported = %v, %v", supported, err)
	}
}
