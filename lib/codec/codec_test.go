// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{"zeta": 1, "alpha": "a", "mid": []string{"x", "y"}}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("Marshal produced different bytes for the same value")
		}
	}

	var decoded map[string]any
	if err := Unmarshal(first, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded["alpha"] != "a" {
		t.Errorf("alpha = %v, want a", decoded["alpha"])
	}
}

func TestSealOpen(t *testing.T) {
	compressible := []byte(strings.Repeat(`{"name":"Folder","className":"Folder"},`, 200))
	tiny := []byte("x")

	tests := []struct {
		name        string
		payload     []byte
		compression Compression
		wantTag     Compression
	}{
		{"none", compressible, CompressionNone, CompressionNone},
		{"lz4", compressible, CompressionLZ4, CompressionLZ4},
		{"zstd", compressible, CompressionZstd, CompressionZstd},
		{"lz4 incompressible falls back", tiny, CompressionLZ4, CompressionNone},
		{"zstd incompressible falls back", tiny, CompressionZstd, CompressionNone},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			sealed, err := Seal(test.payload, test.compression)
			if err != nil {
				t.Fatalf("Seal: %v", err)
			}
			if Compression(sealed[0]) != test.wantTag {
				t.Errorf("tag = %s, want %s", Compression(sealed[0]), test.wantTag)
			}
			opened, err := Open(sealed)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			if !bytes.Equal(opened, test.payload) {
				t.Fatal("Open did not return the original payload")
			}
		})
	}
}

func TestOpenRejectsCorruptEnvelopes(t *testing.T) {
	tests := []struct {
		name   string
		sealed []byte
	}{
		{"empty", nil},
		{"short", []byte{0}},
		{"unknown tag", []byte{9, 1, 'x'}},
		{"size mismatch", []byte{0, 5, 'x'}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Open(test.sealed); err == nil {
				t.Fatal("Open succeeded on a corrupt envelope")
			}
		})
	}
}

func TestParseCompression(t *testing.T) {
	for _, name := range []string{"none", "lz4", "zstd"} {
		compression, err := ParseCompression(name)
		if err != nil {
			t.Fatalf("ParseCompression(%q): %v", name, err)
		}
		if compression.String() != name {
			t.Errorf("round trip %q -> %q", name, compression.String())
		}
	}
	if compression, err := ParseCompression(""); err != nil || compression != CompressionZstd {
		t.Errorf("empty name = %v, %v; want zstd default", compression, err)
	}
	if _, err := ParseCompression("brotli"); err == nil {
		t.Error("ParseCompression accepted an unknown name")
	}
}
