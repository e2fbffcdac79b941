// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the algorithm applied to a sealed payload.
// The values are stored on disk; do not renumber them.
type Compression uint8

const (
	// CompressionNone stores the payload as-is.
	CompressionNone Compression = 0

	// CompressionLZ4 is LZ4 block compression. Fast, modest ratio.
	CompressionLZ4 Compression = 1

	// CompressionZstd is zstd at the default level. Better ratio on
	// JSON-shaped data such as large sourcemaps.
	CompressionZstd Compression = 2
)

// String returns the configuration name of the algorithm.
func (compression Compression) String() string {
	switch compression {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(compression))
	}
}

// ParseCompression parses a configuration name ("none", "lz4", "zstd").
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd", "":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (want none, lz4, or zstd)", name)
	}
}

// maxUncompressedSize bounds the length header so a corrupt envelope
// cannot trigger a huge allocation.
const maxUncompressedSize = 1 << 30

var errIncompressible = errors.New("data is incompressible")

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("codec: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

// Seal compresses payload with the requested algorithm and prepends
// the envelope header. If the algorithm does not shrink the payload,
// the envelope is written with CompressionNone instead.
func Seal(payload []byte, compression Compression) ([]byte, error) {
	body, used, err := compress(payload, compression)
	if err != nil {
		return nil, err
	}

	header := make([]byte, 1, 1+binary.MaxVarintLen64)
	header[0] = byte(used)
	header = binary.AppendUvarint(header, uint64(len(payload)))
	return append(header, body...), nil
}

// Open validates an envelope produced by Seal and returns the original
// payload.
func Open(sealed []byte) ([]byte, error) {
	if len(sealed) < 2 {
		return nil, fmt.Errorf("envelope too short (%d bytes)", len(sealed))
	}
	compression := Compression(sealed[0])
	size, headerLength := binary.Uvarint(sealed[1:])
	if headerLength <= 0 {
		return nil, fmt.Errorf("envelope has a malformed length header")
	}
	if size > maxUncompressedSize {
		return nil, fmt.Errorf("envelope declares %d bytes, limit is %d", size, maxUncompressedSize)
	}
	body := sealed[1+headerLength:]
	expected := int(size)

	switch compression {
	case CompressionNone:
		if len(body) != expected {
			return nil, fmt.Errorf("uncompressed envelope: size %d does not match header %d", len(body), expected)
		}
		return body, nil

	case CompressionLZ4:
		destination := make([]byte, expected)
		read, err := lz4.UncompressBlock(body, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != expected {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, expected)
		}
		return destination, nil

	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(body, make([]byte, 0, expected))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != expected {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), expected)
		}
		return result, nil

	default:
		return nil, fmt.Errorf("unsupported envelope compression %s", compression)
	}
}

// compress returns the body to store and the algorithm actually used.
func compress(payload []byte, compression Compression) ([]byte, Compression, error) {
	var (
		body []byte
		err  error
	)
	switch compression {
	case CompressionNone:
		return payload, CompressionNone, nil
	case CompressionLZ4:
		body, err = compressLZ4(payload)
	case CompressionZstd:
		body, err = compressZstd(payload)
	default:
		return nil, 0, fmt.Errorf("unsupported compression %s", compression)
	}
	if errors.Is(err, errIncompressible) {
		return payload, CompressionNone, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return body, compression, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock reports 0 for incompressible input.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}
