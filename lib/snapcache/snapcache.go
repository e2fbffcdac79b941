// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package snapcache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/sourcetree/lib/codec"
	"github.com/bureau-foundation/sourcetree/lib/sourcemap"
)

// formatVersion is bumped whenever Entry changes incompatibly. Read
// rejects entries written with any other version.
const formatVersion = 1

// Entry is one cached snapshot.
type Entry struct {
	// Workspace is the absolute workspace root the snapshot was
	// produced for.
	Workspace string `cbor:"workspace"`

	// Digest identifies the raw document the snapshot was decoded
	// from. Zero when the snapshot did not come from a single
	// document.
	Digest sourcemap.Hash `cbor:"digest"`

	// SavedAt is when the entry was written, at second precision.
	SavedAt time.Time `cbor:"saved_at"`

	// Node is the filtered, merged snapshot as it was displayed.
	Node *sourcemap.Node `cbor:"node"`
}

type fileEntry struct {
	Version int `cbor:"version"`
	Entry
}

// ErrVersionMismatch is returned by Read for entries written in a
// different format version.
var ErrVersionMismatch = errors.New("snapcache: unsupported entry version")

// PathFor returns the cache file for workspace inside directory. The
// name is derived from a BLAKE3 hash of the cleaned workspace path.
func PathFor(directory, workspace string) string {
	sum := blake3.Sum256([]byte(filepath.Clean(workspace)))
	return filepath.Join(directory, hex.EncodeToString(sum[:16])+".snapshot")
}

// Write atomically replaces the cache file at path with entry. The
// parent directory is created when missing; the file is created with
// mode 0600.
func Write(path string, entry Entry, compression codec.Compression) error {
	if entry.Node == nil {
		return fmt.Errorf("snapcache: refusing to write an entry without a snapshot")
	}

	payload, err := codec.Marshal(fileEntry{Version: formatVersion, Entry: entry})
	if err != nil {
		return fmt.Errorf("encoding snapshot cache entry: %w", err)
	}
	sealed, err := codec.Seal(payload, compression)
	if err != nil {
		return fmt.Errorf("sealing snapshot cache entry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating snapshot cache directory: %w", err)
	}

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating temporary cache file: %w", err)
	}
	if _, err := file.Write(sealed); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary cache file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary cache file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary cache file: %w", err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming cache file into place: %w", err)
	}
	return nil
}

// Read loads the entry at path. When the file does not exist the
// returned error wraps os.ErrNotExist.
func Read(path string) (Entry, error) {
	sealed, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	payload, err := codec.Open(sealed)
	if err != nil {
		return Entry{}, fmt.Errorf("opening snapshot cache %s: %w", path, err)
	}

	var stored fileEntry
	if err := codec.Unmarshal(payload, &stored); err != nil {
		return Entry{}, fmt.Errorf("decoding snapshot cache %s: %w", path, err)
	}
	if stored.Version != formatVersion {
		return Entry{}, fmt.Errorf("%s: version %d: %w", path, stored.Version, ErrVersionMismatch)
	}
	if stored.Node == nil {
		return Entry{}, fmt.Errorf("snapshot cache %s has no snapshot", path)
	}
	return stored.Entry, nil
}
