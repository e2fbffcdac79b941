// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Version information is injected at build time via -ldflags, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/sourcetree/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version

import (
	"fmt"
	"runtime"

	"golang.org/x/mod/semver"
)

// These variables are set via -ldflags at build time.
var (
	// GitCommit is the short git SHA of the build.
	GitCommit = "unknown"

	// GitDirty indicates whether there were uncommitted changes.
	GitDirty = "false"

	// BuildTime is the UTC timestamp of the build.
	BuildTime = "unknown"

	// Version is the semantic version. This is set manually for releases.
	Version = "v0.1.0-dev"
)

// Info returns a formatted version string suitable for the version
// command.
func Info() string {
	dirty := ""
	if GitDirty == "true" {
		dirty = "-dirty"
	}
	return fmt.Sprintf("%s (%s%s, %s)", Short(), GitCommit, dirty, BuildTime)
}

// Full returns detailed version information including Go version.
func Full() string {
	return fmt.Sprintf("%s\n  Go: %s\n  Platform: %s/%s",
		Info(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Short returns the version number in canonical semver form. Values
// injected without the leading "v" are accepted; values that are not
// semantic versions at all are returned unchanged.
func Short() string {
	candidate := Version
	if len(candidate) > 0 && candidate[0] != 'v' {
		candidate = "v" + candidate
	}
	if !semver.IsValid(candidate) {
		return Version
	}
	// Canonical drops build metadata, which ldflags never carries.
	if canonical := semver.Canonical(candidate); canonical != "" && semver.Build(candidate) == "" {
		return canonical
	}
	return candidate
}
