// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Ion's standard CBOR encoding configuration.
//
// JSON is used on every interface other systems see: the signaling
// payload inside a ledger message, the ledger node's HTTP command API,
// and configuration files. CBOR is used for state Ion alone reads back,
// currently the bundle records a ledger node keeps in SQLite.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same record always produces identical bytes.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Types that are only ever stored as CBOR carry `cbor` struct tags.
// Types that are also served as JSON carry `json` tags only, which
// fxamacker/cbor reads as a fallback.
package codec
