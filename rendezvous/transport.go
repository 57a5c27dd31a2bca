// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import "encoding/json"

// SignalKind distinguishes the two kinds of negotiation data a peer
// produces. The values double as the wire command names.
type SignalKind string

const (
	// SignalNegotiation carries a session description (offer/answer).
	SignalNegotiation SignalKind = "neg"

	// SignalCandidate carries one ICE candidate.
	SignalCandidate SignalKind = "ice"
)

// Signal is negotiation data produced by one peer for the other. Data
// is opaque to the engine.
type Signal struct {
	Kind SignalKind
	Data json.RawMessage
}

// PeerOptions configures a new Peer.
type PeerOptions struct {
	// Initiator peers create the offer.
	Initiator bool

	// RemoteTag is the participant on the other end, for logging.
	RemoteTag string
}

// PeerEvents are the callbacks a Peer invokes. They may be called from
// any goroutine, including synchronously from NewPeer or Signal, and
// must not block.
type PeerEvents struct {
	OnSignal  func(Signal)
	OnConnect func()
	OnData    func([]byte)
	OnClose   func()
	OnError   func(error)
}

// Peer is one end of a peer-to-peer connection.
type Peer interface {
	// Signal feeds negotiation data received from the remote peer.
	Signal(Signal) error

	// Send writes one message on the established data channel.
	Send([]byte) error

	// Close tears the connection down. Close does not invoke OnClose.
	Close() error
}

// PeerTransport creates peers. transport.WebRTC is the production
// implementation; transport.MemoryNetwork connects peers in-process.
type PeerTransport interface {
	NewPeer(PeerOptions, PeerEvents) (Peer, error)
}
