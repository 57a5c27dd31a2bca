// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport implements [rendezvous.PeerTransport], the
// connection layer the rendezvous engine negotiates over the ledger.
//
// [WebRTC] is the production implementation: one pion PeerConnection
// per remote participant carrying a single ordered, reliable data
// channel labelled [DataChannelLabel]. Negotiation uses trickle ICE.
// The initiator's offer is emitted from NewPeer, the responder answers
// from Signal, and every gathered candidate follows as its own
// signal. Candidates that arrive before the remote description are
// queued until it is set, since ledger batches may deliver them in any
// order relative to the description.
//
// [ICEConfig] holds STUN/TURN servers. [ICEConfigFromConfig] converts
// the ice section of the ion configuration and falls back to the
// public STUN servers in [DefaultSTUNServers].
//
// [MemoryNetwork] is an in-process implementation for tests. Its
// peers follow the same offer/answer/candidate sequence with trivial
// payloads, and expose hooks for injecting errors and remote
// closures.
package transport
