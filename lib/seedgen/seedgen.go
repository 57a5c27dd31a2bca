// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package seedgen turns seed strings into ledger-shaped strings.
//
// Peers that share a prefix and key must independently arrive at the
// same ledger address, so the generators here are pure functions of
// their inputs. Output characters are drawn from a BLAKE3 extendable
// output stream (derive-key mode, one context string per generator)
// with rejection sampling, so every character of the charset is
// equally likely.
package seedgen

import (
	"crypto/rand"
	"fmt"
	"strconv"

	"github.com/zeebo/blake3"

	"github.com/ion-signal/ion/lib/trytes"
)

// AddressLength is the length of a ledger address in trytes.
const AddressLength = 81

// WindowKeyLength is the length of a per-window key.
const WindowKeyLength = 32

// windowKeyCharset is the base64 alphabet including padding.
const windowKeyCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/="

// BLAKE3 derive-key contexts. Changing either moves every address.
const (
	contextTrytes    = "ion 2026 seedgen trytes v1"
	contextWindowKey = "ion 2026 seedgen window key v1"
)

// Trytes returns an AddressLength tryte string derived from prefix and
// seed.
func Trytes(prefix, seed string) string {
	return generate(contextTrytes, trytes.Alphabet, AddressLength, []byte(prefix), []byte(seed))
}

// WindowKey returns the key for the time window starting at
// windowStart (Unix seconds). Two calls agree only if prefix, key and
// window agree. key is hashed in place and never copied.
func WindowKey(prefix string, key []byte, windowStart int64) string {
	return generate(contextWindowKey, windowKeyCharset, WindowKeyLength,
		[]byte(prefix), key, strconv.AppendInt(nil, windowStart, 10))
}

// RandomTrytes returns a fresh AddressLength tryte string seeded from
// prefix and crypto/rand. Used for throwaway transfer seeds.
func RandomTrytes(prefix string) (string, error) {
	var entropy [64]byte
	if _, err := rand.Read(entropy[:]); err != nil {
		return "", fmt.Errorf("reading random seed: %w", err)
	}
	return Trytes(prefix, trytes.FromBytes(entropy[:])), nil
}

// generate hashes the concatenation of seed.
func generate(context, charset string, length int, seed ...[]byte) string {
	hasher := blake3.NewDeriveKey(context)
	for _, part := range seed {
		hasher.Write(part)
	}
	stream := hasher.Digest()

	// Bytes at or above limit would bias the modulo; skip them.
	limit := 256 - 256%len(charset)
	output := make([]byte, 0, length)
	var block [64]byte
	for len(output) < length {
		stream.Read(block[:])
		for _, value := range block {
			if int(value) >= limit {
				continue
			}
			output = append(output, charset[int(value)%len(charset)])
			if len(output) == length {
				break
			}
		}
	}
	return string(output)
}
