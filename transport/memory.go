// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ion-signal/ion/rendezvous"
)

// Compile-time interface checks.
var (
	_ rendezvous.PeerTransport = (*MemoryTransport)(nil)
	_ rendezvous.Peer          = (*memoryPeer)(nil)
)

// MemoryNetwork is an in-process stand-in for WebRTC used by tests.
// Each participant gets a MemoryTransport from Transport; peers created
// on two transports for each other connect once the initiator's offer
// and the responder's answer have been relayed through Signal, exactly
// as the real transport requires. Data sent on one side arrives through
// the other side's OnData.
type MemoryNetwork struct {
	mu    sync.Mutex
	peers map[memoryLink]*memoryPeer

	// failNewPeer makes NewPeer fail for a local participant.
	failNewPeer map[string]error
}

type memoryLink struct {
	local  string
	remote string
}

// memoryDescription is the negotiation payload of the memory network.
type memoryDescription struct {
	Type string `json:"type"`
	From string `json:"from"`
}

// memoryCandidate is the candidate payload of the memory network.
type memoryCandidate struct {
	Candidate string `json:"candidate"`
}

// NewMemoryNetwork returns an empty network.
func NewMemoryNetwork() *MemoryNetwork {
	return &MemoryNetwork{
		peers:       make(map[memoryLink]*memoryPeer),
		failNewPeer: make(map[string]error),
	}
}

// Transport returns the transport of participant localTag.
func (n *MemoryNetwork) Transport(localTag string) *MemoryTransport {
	return &MemoryTransport{network: n, local: localTag}
}

// FailNewPeer makes every later NewPeer on localTag's transport return
// err. A nil err clears the failure.
func (n *MemoryNetwork) FailNewPeer(localTag string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err == nil {
		delete(n.failNewPeer, localTag)
		return
	}
	n.failNewPeer[localTag] = err
}

// InjectError reports err on local's peer for remote. It returns false
// if there is no such peer.
func (n *MemoryNetwork) InjectError(local, remote string, err error) bool {
	peer := n.peer(local, remote)
	if peer == nil {
		return false
	}
	peer.events.OnError(err)
	return true
}

// Disconnect closes the link between local and remote as if local's
// side had been torn down, so remote observes a remote closure. It
// returns false if local has no peer for remote.
func (n *MemoryNetwork) Disconnect(local, remote string) bool {
	peer := n.peer(local, remote)
	if peer == nil {
		return false
	}
	return peer.Close() == nil
}

// Connected reports whether local's peer for remote has an open
// channel.
func (n *MemoryNetwork) Connected(local, remote string) bool {
	peer := n.peer(local, remote)
	if peer == nil {
		return false
	}
	peer.mu.Lock()
	defer peer.mu.Unlock()
	return peer.connected
}

// Candidates returns how many remote candidates local's peer for
// remote has accepted.
func (n *MemoryNetwork) Candidates(local, remote string) int {
	peer := n.peer(local, remote)
	if peer == nil {
		return 0
	}
	peer.mu.Lock()
	defer peer.mu.Unlock()
	return peer.candidates
}

func (n *MemoryNetwork) peer(local, remote string) *memoryPeer {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.peers[memoryLink{local: local, remote: remote}]
}

// MemoryTransport is one participant's view of a MemoryNetwork.
type MemoryTransport struct {
	network *MemoryNetwork
	local   string
}

// NewPeer implements rendezvous.PeerTransport. An initiator emits its
// offer and one candidate before returning. A new peer replaces any
// earlier peer for the same remote.
func (t *MemoryTransport) NewPeer(options rendezvous.PeerOptions, events rendezvous.PeerEvents) (rendezvous.Peer, error) {
	link := memoryLink{local: t.local, remote: options.RemoteTag}

	t.network.mu.Lock()
	if err := t.network.failNewPeer[t.local]; err != nil {
		t.network.mu.Unlock()
		return nil, err
	}
	peer := &memoryPeer{
		network:   t.network,
		link:      link,
		initiator: options.Initiator,
		events:    events,
	}
	t.network.peers[link] = peer
	t.network.mu.Unlock()

	if options.Initiator {
		peer.emit(rendezvous.SignalNegotiation, memoryDescription{Type: "offer", From: t.local})
		peer.emit(rendezvous.SignalCandidate, memoryCandidate{Candidate: "memory " + t.local})
	}
	return peer, nil
}

type memoryPeer struct {
	network   *MemoryNetwork
	link      memoryLink
	initiator bool
	events    rendezvous.PeerEvents

	mu         sync.Mutex
	described  bool
	connected  bool
	closed     bool
	candidates int
}

// Signal implements rendezvous.Peer.
func (p *memoryPeer) Signal(signal rendezvous.Signal) error {
	switch signal.Kind {
	case rendezvous.SignalNegotiation:
		var description memoryDescription
		if err := json.Unmarshal(signal.Data, &description); err != nil {
			return fmt.Errorf("parsing session description: %w", err)
		}
		return p.handleDescription(description)
	case rendezvous.SignalCandidate:
		var candidate memoryCandidate
		if err := json.Unmarshal(signal.Data, &candidate); err != nil {
			return fmt.Errorf("parsing ICE candidate: %w", err)
		}
		if candidate.Candidate == "" {
			return fmt.Errorf("empty ICE candidate")
		}
		p.mu.Lock()
		p.candidates++
		p.mu.Unlock()
		return nil
	default:
		return fmt.Errorf("unknown signal kind %q", signal.Kind)
	}
}

func (p *memoryPeer) handleDescription(description memoryDescription) error {
	if description.From != p.link.remote {
		return fmt.Errorf("description from %q on link to %q", description.From, p.link.remote)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return fmt.Errorf("peer closed")
	}
	switch {
	case description.Type == "offer" && !p.initiator && !p.described:
		p.described = true
		p.mu.Unlock()
		p.emit(rendezvous.SignalNegotiation, memoryDescription{Type: "answer", From: p.link.local})
		p.emit(rendezvous.SignalCandidate, memoryCandidate{Candidate: "memory " + p.link.local})
		return nil
	case description.Type == "answer" && p.initiator && !p.described:
		p.described = true
		p.mu.Unlock()
		return p.connect()
	default:
		p.mu.Unlock()
		return fmt.Errorf("unexpected %s (initiator=%t)", description.Type, p.initiator)
	}
}

// connect opens both ends once the initiator holds the answer.
func (p *memoryPeer) connect() error {
	remote := p.network.peer(p.link.remote, p.link.local)
	if remote == nil {
		return fmt.Errorf("no peer %s for %s", p.link.remote, p.link.local)
	}
	for _, end := range []*memoryPeer{p, remote} {
		end.mu.Lock()
		end.connected = true
		end.mu.Unlock()
		end.events.OnConnect()
	}
	return nil
}

func (p *memoryPeer) emit(kind rendezvous.SignalKind, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		panic("transport: encoding memory signal: " + err.Error())
	}
	p.events.OnSignal(rendezvous.Signal{Kind: kind, Data: data})
}

// Send implements rendezvous.Peer.
func (p *memoryPeer) Send(data []byte) error {
	p.mu.Lock()
	connected := p.connected
	p.mu.Unlock()
	if !connected {
		return ErrChannelNotOpen
	}
	remote := p.network.peer(p.link.remote, p.link.local)
	if remote == nil {
		return ErrChannelNotOpen
	}
	remote.events.OnData(bytes.Clone(data))
	return nil
}

// Close implements rendezvous.Peer. The remote end, if connected,
// observes OnClose; this end does not.
func (p *memoryPeer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	wasConnected := p.connected
	p.connected = false
	p.mu.Unlock()

	p.network.mu.Lock()
	if p.network.peers[p.link] == p {
		delete(p.network.peers, p.link)
	}
	remote := p.network.peers[memoryLink{local: p.link.remote, remote: p.link.local}]
	p.network.mu.Unlock()

	if wasConnected && remote != nil {
		remote.mu.Lock()
		notify := remote.connected
		remote.connected = false
		remote.mu.Unlock()
		if notify {
			remote.events.OnClose()
		}
	}
	return nil
}
