// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package rendezvous is the signaling engine: it lets participants who
// share a prefix and a key find each other on a public ledger and relay
// the WebRTC negotiation that connects them, with no signaling server.
//
// # Where to look
//
// [AddressScheduler] derives the ledger address for a time window as a
// pure function of (prefix, key, window start). Everyone sharing the
// secret computes the same address in the same window. The poller reads
// the current and the previous window's address so a peer whose clock
// sits just across a window boundary is still seen.
//
// # What is written
//
// Each ledger write is one bundle whose message is a JSON array of
// commands, compressed, sealed under the shared key and tryte-encoded
// by a [PayloadCodec]:
//
//	[{"cmd":"ticket","tag":"ALICE"},
//	 {"cmd":"neg","user":"BOB","data":{"type":"offer","sdp":"..."}},
//	 {"cmd":"ice","user":"BOB","data":{"candidate":"..."}}]
//
// The [Outbox] batches commands: every enqueue re-arms one debounce
// timer, and when it fires the whole queue goes out as one transfer.
//
// # Who connects
//
// A ticket announces a participant. On learning of a participant the
// engine creates exactly one [Session] for it. The lexicographically
// smaller tag is the initiator and creates the offer; both sides reach
// the same answer with no further message. A responder created from a
// ticket sends a "dummy" neg so that a peer which started later, and
// therefore discarded our older ticket, still learns of us.
//
// # Concurrency
//
// All engine state (tickets, sessions, genesis) is owned by one actor
// goroutine that runs work items from an unbounded mailbox in order.
// The poll loop, the transport callbacks and the public methods only
// post work. Sessions do not point back at the engine; transport
// callbacks carry the session's tag and id and are dropped if the
// registry no longer holds that session, so nothing a stopped run left
// in flight can touch the next run.
//
// Events are delivered to subscribers, in order, by a separate
// dispatcher goroutine, so a subscriber may call back into the engine.
package rendezvous
