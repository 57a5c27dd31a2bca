// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ion-signal/ion/lib/compress"
	"github.com/ion-signal/ion/lib/sealed"
	"github.com/ion-signal/ion/lib/secret"
	"github.com/ion-signal/ion/lib/trytes"
)

// Cipher is symmetric encryption under the shared key. Open must fail
// on data not produced by Seal under the same key.
type Cipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(ciphertext []byte) ([]byte, error)
}

// Compressor is lossless compression.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

// TextEncoding embeds bytes in a ledger message field.
type TextEncoding interface {
	Encode(data []byte) string
	Decode(text string) ([]byte, error)
}

// Codec turns a batch of messages into a ledger message and back.
type Codec interface {
	Encode(messages []Message) (string, error)
	Decode(text string) ([]Message, error)
}

// PayloadCodec is the standard Codec: JSON array, then compression,
// then encryption, then the text encoding.
type PayloadCodec struct {
	Cipher     Cipher
	Compressor Compressor
	Encoding   TextEncoding
}

// CodecOptions selects the stages NewPayloadCodec builds.
type CodecOptions struct {
	// Key is the shared encryption key. It is borrowed; the codec
	// derives and owns its own key material.
	Key *secret.Buffer

	Cipher      sealed.Kind
	Compression compress.Tag
}

// NewPayloadCodec builds a PayloadCodec from lib/sealed, lib/compress
// and the tryte encoding. Close releases the cipher's key material.
func NewPayloadCodec(options CodecOptions) (*PayloadCodec, error) {
	cipher, err := sealed.New(options.Cipher, options.Key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	compressor, err := compress.New(options.Compression)
	if err != nil {
		cipher.Close()
		return nil, fmt.Errorf("creating compressor: %w", err)
	}
	return &PayloadCodec{Cipher: cipher, Compressor: compressor, Encoding: trytes.Encoding{}}, nil
}

// Encode implements Codec.
func (c *PayloadCodec) Encode(messages []Message) (string, error) {
	plaintext, err := json.Marshal(messages)
	if err != nil {
		return "", fmt.Errorf("encoding messages: %w", err)
	}
	compressed, err := c.Compressor.Compress(plaintext)
	if err != nil {
		return "", fmt.Errorf("compressing payload: %w", err)
	}
	ciphertext, err := c.Cipher.Seal(compressed)
	if err != nil {
		return "", fmt.Errorf("sealing payload: %w", err)
	}
	return c.Encoding.Encode(ciphertext), nil
}

// Decode implements Codec. Every failure means the bundle was not
// written by a participant holding our key, or was damaged.
func (c *PayloadCodec) Decode(text string) ([]Message, error) {
	ciphertext, err := c.Encoding.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("decoding text: %w", err)
	}
	compressed, err := c.Cipher.Open(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("opening payload: %w", err)
	}
	plaintext, err := c.Compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("decompressing payload: %w", err)
	}
	var messages []Message
	if err := json.Unmarshal(plaintext, &messages); err != nil {
		return nil, fmt.Errorf("parsing messages: %w", err)
	}
	return messages, nil
}

// Close releases the cipher if it holds resources.
func (c *PayloadCodec) Close() error {
	if closer, ok := c.Cipher.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
