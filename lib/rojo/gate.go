// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package rojo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	"github.com/bureau-foundation/sourcetree/lib/clock"
)

const (
	// minimumVersion is the first release with "sourcemap --watch".
	minimumVersion = "v7.3.0"

	// supportedMajor bounds the range from above: the next major
	// release may change the output format.
	supportedMajor = "v7"

	// GateTTL is how long a version check result is reused for a
	// working directory.
	GateTTL = 30 * time.Second
)

// UnavailableError reports that watch mode cannot be used: the tool
// is missing, failed to report a version, or is outside the supported
// range.
type UnavailableError struct {
	Tool string

	// Version is the reported version, empty if none was obtained.
	Version string

	// Err is the underlying failure when the tool could not be run.
	Err error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s is unavailable: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s version %s is not supported (need >=%s <%s)",
		e.Tool, e.Version, strings.TrimPrefix(minimumVersion, "v"), "8.0.0")
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// VersionRunner runs "<tool> --version" in workingDirectory and
// returns its stdout.
type VersionRunner func(ctx context.Context, tool, workingDirectory string) (string, error)

// Gate decides whether the tool supports watch mode, caching each
// working directory's answer for GateTTL. Expired entries are
// replaced on the next check; nothing runs in the background.
type Gate struct {
	tool  string
	clock clock.Clock
	run   VersionRunner

	mutex   sync.Mutex
	entries map[string]gateEntry
}

type gateEntry struct {
	err     error
	expires time.Time
}

// NewGate returns a Gate for tool that runs the real executable.
func NewGate(tool string, clk clock.Clock) *Gate {
	return NewGateWithRunner(tool, clk, runVersion)
}

// NewGateWithRunner returns a Gate that obtains version output from
// run instead of executing the tool.
func NewGateWithRunner(tool string, clk clock.Clock, run VersionRunner) *Gate {
	if tool == "" {
		tool = DefaultTool
	}
	return &Gate{
		tool:    tool,
		clock:   clk,
		run:     run,
		entries: make(map[string]gateEntry),
	}
}

// Supported reports whether the tool in workingDirectory supports
// watch mode. When it does not, the error is an *UnavailableError
// describing why. A cancelled ctx returns the context error, which is
// not cached.
func (gate *Gate) Supported(ctx context.Context, workingDirectory string) (bool, error) {
	now := gate.clock.Now()

	gate.mutex.Lock()
	entry, ok := gate.entries[workingDirectory]
	gate.mutex.Unlock()
	if ok && now.Before(entry.expires) {
		return entry.err == nil, entry.err
	}

	output, runErr := gate.run(ctx, gate.tool, workingDirectory)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}

	var err error
	if runErr != nil {
		err = &UnavailableError{Tool: gate.tool, Err: runErr}
	} else {
		err = checkVersion(gate.tool, output)
	}

	gate.mutex.Lock()
	gate.entries[workingDirectory] = gateEntry{err: err, expires: now.Add(GateTTL)}
	gate.mutex.Unlock()
	return err == nil, err
}

// checkVersion validates "--version" output such as "Rojo 7.4.1".
func checkVersion(tool, output string) error {
	version, ok := ParseVersion(output)
	if !ok {
		return &UnavailableError{
			Tool: tool,
			Err:  fmt.Errorf("unrecognized version output %q", strings.TrimSpace(output)),
		}
	}
	if semver.Major(version) != supportedMajor || semver.Compare(version, minimumVersion) < 0 {
		return &UnavailableError{Tool: tool, Version: strings.TrimPrefix(version, "v")}
	}
	return nil
}

// ParseVersion extracts a semantic version from "--version" output,
// returned in canonical "vMAJOR.MINOR.PATCH" form. The version is the
// last whitespace-separated word of the first line, so both
// "Rojo 7.4.1" and "7.4.1" are accepted.
func ParseVersion(output string) (string, bool) {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", false
	}
	version := "v" + strings.TrimPrefix(fields[len(fields)-1], "v")
	if !semver.IsValid(version) {
		return "", false
	}
	return semver.Canonical(version), true
}

func runVersion(ctx context.Context, tool, workingDirectory string) (string, error) {
	var stdout, stderr bytes.Buffer
	command := exec.CommandContext(ctx, tool, "--version")
	command.Dir = workingDirectory
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("%s --version: %w (stderr: %s)", tool, err, strings.TrimSpace(stderr.String()))
		}
		return "", err
	}
	return stdout.String(), nil
}
