// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger is Ion's view of the public append-only ledger used
// as a rendezvous channel.
//
// The ledger is a broadcast medium keyed by address. Writers submit
// zero-value transfers whose message field carries an opaque tryte
// payload; readers list the transactions at an address and fetch whole
// bundles. Ion never relies on anything else a real ledger offers.
//
// [Gateway] is the contract the signaling engine consumes. Four
// implementations exist:
//
//   - [Memory]: in-process, for tests and single-process demos.
//   - [Store]: persistent, backed by SQLite through lib/sqlitepool,
//     with each transaction stored as a CBOR record.
//   - [Client]: talks to a ledger node over the JSON command API.
//   - [Handler]: serves any Gateway over that same API (ion-ledger).
//
// # Bundles
//
// One SendTransfer call produces one bundle. Each transfer's message
// is split into [FragmentLength]-tryte fragments, one transaction per
// fragment, with the last fragment right-padded with '9'. Every
// transaction of a bundle shares its bundle hash, address and tag;
// CurrentIndex counts 0..LastIndex, and the transaction with
// CurrentIndex 0 is the head. [AssembleBundle] checks that a fetched
// set of transactions forms a complete bundle and concatenates the
// fragments back into the message.
//
// The timestamp of a bundle is assigned by the ledger when it attaches
// the transactions, truncated to milliseconds.
package ledger
