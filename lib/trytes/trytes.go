// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package trytes implements the ledger's text-safe byte encoding.
//
// A tryte is one character of the alphabet "9ABCDEFGHIJKLMNOPQRSTUVWXYZ"
// (27 values). Each byte encodes as two trytes, low digit first:
// byte b becomes alphabet[b%27] followed by alphabet[b/27]. Ledger
// message fields are right-padded with '9' (the zero tryte).
//
// Because "99" is also the encoding of byte 0, padding cannot be told
// apart from data that ends in zero bytes. [Encoding] therefore frames
// the payload with a uvarint length prefix and ignores whatever follows
// the frame.
package trytes

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// Alphabet is the tryte alphabet. '9' is the zero value.
const Alphabet = "9ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Padding is the zero tryte used to fill fixed-width fields.
const Padding = '9'

// Encoding is the length-framed tryte encoding used for ledger
// messages.
type Encoding struct{}

// Encode returns the trytes of uvarint(len(data)) followed by data.
func (Encoding) Encode(data []byte) string {
	framed := binary.AppendUvarint(make([]byte, 0, len(data)+binary.MaxVarintLen64), uint64(len(data)))
	return FromBytes(append(framed, data...))
}

// Decode reverses Encode. Trailing padding, including an odd final
// '9' left by fixed-width fragments, is ignored.
func (Encoding) Decode(text string) ([]byte, error) {
	if len(text)%2 != 0 {
		if text[len(text)-1] != Padding {
			return nil, fmt.Errorf("trytes: odd length %d without trailing padding", len(text))
		}
		text = text[:len(text)-1]
	}
	raw, err := ToBytes(text)
	if err != nil {
		return nil, err
	}
	length, prefix := binary.Uvarint(raw)
	if prefix <= 0 {
		return nil, fmt.Errorf("trytes: malformed length prefix")
	}
	if length > uint64(len(raw)-prefix) {
		return nil, fmt.Errorf("trytes: frame declares %d bytes, only %d present", length, len(raw)-prefix)
	}
	body := raw[prefix : prefix+int(length)]
	for _, value := range raw[prefix+int(length):] {
		if value != 0 {
			return nil, fmt.Errorf("trytes: non-padding data after frame")
		}
	}
	return body, nil
}

// FromBytes encodes data as trytes.
func FromBytes(data []byte) string {
	var builder strings.Builder
	builder.Grow(len(data) * 2)
	for _, value := range data {
		builder.WriteByte(Alphabet[int(value)%27])
		builder.WriteByte(Alphabet[int(value)/27])
	}
	return builder.String()
}

// ToBytes decodes a tryte string produced by FromBytes.
func ToBytes(text string) ([]byte, error) {
	if len(text)%2 != 0 {
		return nil, fmt.Errorf("trytes: odd length %d", len(text))
	}
	output := make([]byte, 0, len(text)/2)
	for index := 0; index < len(text); index += 2 {
		low := strings.IndexByte(Alphabet, text[index])
		high := strings.IndexByte(Alphabet, text[index+1])
		if low < 0 || high < 0 {
			return nil, fmt.Errorf("trytes: invalid character at offset %d", index)
		}
		value := low + high*27
		if value > 255 {
			return nil, fmt.Errorf("trytes: pair %q at offset %d does not encode a byte", text[index:index+2], index)
		}
		output = append(output, byte(value))
	}
	return output, nil
}

// Valid reports whether text uses only the tryte alphabet.
func Valid(text string) bool {
	for index := 0; index < len(text); index++ {
		if strings.IndexByte(Alphabet, text[index]) < 0 {
			return false
		}
	}
	return true
}

// Pad right-pads text with '9' to width. Longer input is returned
// unchanged.
func Pad(text string, width int) string {
	if len(text) >= width {
		return text
	}
	return text + strings.Repeat(string(Padding), width-len(text))
}
