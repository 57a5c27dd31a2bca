// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package compress provides the lossless compression stage of the
// signaling payload codec.
//
// Compressed frames are self-describing:
//
//	[Tag: 1 byte] [Uncompressed size: uvarint] [Body]
//
// so a receiver decodes any frame regardless of which algorithm its own
// configuration prefers. Payloads that do not shrink are stored with
// [None]; short ticket batches usually do.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Tag identifies the algorithm of a frame. Values are wire constants.
type Tag uint8

const (
	// None stores the body uncompressed.
	None Tag = 0

	// LZ4 is block-mode LZ4.
	LZ4 Tag = 1

	// Zstd is zstd at the default level. Best ratio for the JSON
	// negotiation payloads (SDP bodies compress roughly 3x).
	Zstd Tag = 2
)

// MaxUncompressedSize bounds the declared size of a frame. A ledger
// bundle carries a handful of SDP and candidate messages; anything
// larger is rejected before allocation.
const MaxUncompressedSize = 4 << 20

// String returns the configuration name of the tag.
func (tag Tag) String() string {
	switch tag {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// ParseTag parses a configuration name. The empty string selects Zstd.
func ParseTag(name string) (Tag, error) {
	switch name {
	case "none":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd", "":
		return Zstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxUncompressedSize))
	if err != nil {
		panic("compress: zstd decoder initialization failed: " + err.Error())
	}
}

// Compressor compresses with one preferred algorithm and decompresses
// any tag.
type Compressor struct {
	tag Tag
}

// New returns a Compressor that prefers tag.
func New(tag Tag) (*Compressor, error) {
	switch tag {
	case None, LZ4, Zstd:
		return &Compressor{tag: tag}, nil
	default:
		return nil, fmt.Errorf("unsupported compression tag %d", uint8(tag))
	}
}

// Tag returns the preferred algorithm.
func (c *Compressor) Tag() Tag { return c.tag }

// Compress returns a frame holding data.
func (c *Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) > MaxUncompressedSize {
		return nil, fmt.Errorf("compress: payload of %d bytes exceeds %d", len(data), MaxUncompressedSize)
	}

	tag := c.tag
	body, err := compressBody(data, tag)
	if errors.Is(err, errIncompressible) {
		tag, body, err = None, data, nil
	}
	if err != nil {
		return nil, err
	}

	frame := make([]byte, 0, 1+binary.MaxVarintLen64+len(body))
	frame = append(frame, byte(tag))
	frame = binary.AppendUvarint(frame, uint64(len(data)))
	return append(frame, body...), nil
}

// Decompress parses a frame produced by any Compressor.
func (c *Compressor) Decompress(frame []byte) ([]byte, error) {
	if len(frame) < 2 {
		return nil, fmt.Errorf("compress: frame of %d bytes is too short", len(frame))
	}
	tag := Tag(frame[0])
	size, prefix := binary.Uvarint(frame[1:])
	if prefix <= 0 {
		return nil, fmt.Errorf("compress: malformed size header")
	}
	if size > MaxUncompressedSize {
		return nil, fmt.Errorf("compress: declared size %d exceeds %d", size, MaxUncompressedSize)
	}
	body := frame[1+prefix:]

	switch tag {
	case None:
		if uint64(len(body)) != size {
			return nil, fmt.Errorf("compress: stored body is %d bytes, header says %d", len(body), size)
		}
		return body, nil
	case LZ4:
		return decompressLZ4(body, int(size))
	case Zstd:
		return decompressZstd(body, int(size))
	default:
		return nil, fmt.Errorf("compress: unknown tag %s", tag)
	}
}

func compressBody(data []byte, tag Tag) ([]byte, error) {
	switch tag {
	case None:
		return data, nil
	case LZ4:
		destination := make([]byte, lz4.CompressBlockBound(len(data)))
		written, err := lz4.CompressBlock(data, destination, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		// Zero means LZ4 judged the block incompressible.
		if written == 0 || written >= len(data) {
			return nil, errIncompressible
		}
		return destination[:written], nil
	case Zstd:
		compressed := zstdEncoder.EncodeAll(data, nil)
		if len(compressed) >= len(data) {
			return nil, errIncompressible
		}
		return compressed, nil
	default:
		return nil, fmt.Errorf("unsupported compression tag %d", uint8(tag))
	}
}

func decompressLZ4(body []byte, size int) ([]byte, error) {
	destination := make([]byte, size)
	read, err := lz4.UncompressBlock(body, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != size {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, size)
	}
	return destination, nil
}

func decompressZstd(body []byte, size int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(body, make([]byte, 0, size))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != size {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), size)
	}
	return result, nil
}

var errIncompressible = errors.New("data is incompressible")
