// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sourcemap

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
	"github.com/zeebo/blake3"
)

// Parse decodes one snapshot document. Comments and trailing commas
// are tolerated, so hand-edited sourcemap files load too.
func Parse(data []byte) (*Node, error) {
	var node *Node
	if err := json.Unmarshal(jsonc.ToJSON(data), &node); err != nil {
		return nil, fmt.Errorf("parsing sourcemap: %w", err)
	}
	if node == nil {
		return nil, errors.New("parsing sourcemap: document is null")
	}
	return node, nil
}

// ReadFile reads and parses the snapshot document at path, returning
// its digest alongside the tree.
func ReadFile(path string) (*Node, Hash, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Hash{}, fmt.Errorf("reading sourcemap %s: %w", path, err)
	}
	node, err := Parse(data)
	if err != nil {
		return nil, Hash{}, fmt.Errorf("%s: %w", path, err)
	}
	return node, Digest(data), nil
}

// Hash is a BLAKE3 digest of a raw snapshot document.
type Hash [32]byte

// String returns the hex encoding of the digest.
func (hash Hash) String() string {
	return hex.EncodeToString(hash[:])
}

// IsZero reports whether the hash is unset.
func (hash Hash) IsZero() bool {
	return hash == Hash{}
}

// digestKey separates snapshot digests from any other BLAKE3 use: the
// ASCII domain name, zero-padded to 32 bytes.
var digestKey = [32]byte{
	's', 'o', 'u', 'r', 'c', 'e', 't', 'r', 'e', 'e', '.',
	's', 'n', 'a', 'p', 's', 'h', 'o', 't',
}

// Digest returns the keyed BLAKE3 hash of a raw snapshot document.
// Sessions compare digests to skip documents identical to the last
// one applied.
func Digest(document []byte) Hash {
	hasher, err := blake3.NewKeyed(digestKey[:])
	if err != nil {
		panic("sourcemap: blake3 keyed hasher: " + err.Error())
	}
	hasher.Write(document)
	var hash Hash
	copy(hash[:], hasher.Sum(nil))
	return hash
}
