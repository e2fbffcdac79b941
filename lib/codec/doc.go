// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the binary encoding used for sourcetree's
// on-disk state: deterministic CBOR values wrapped in a small
// compression envelope.
//
// [Marshal] and [Unmarshal] use CBOR Core Deterministic Encoding
// (RFC 8949 §4.2), so the same logical value always encodes to the
// same bytes. Types that need custom shapes (sourcemap nodes, whose
// absent and empty child lists must stay distinct) implement
// cbor.Marshaler and cbor.Unmarshaler and call back into this package.
//
// [Seal] and [Open] frame a payload as:
//
//	tag (1 byte) | uncompressed length (uvarint) | payload
//
// where the tag names the compression algorithm. Seal falls back to
// [CompressionNone] when compression would not shrink the payload, so
// callers never pay for incompressible data.
package codec
