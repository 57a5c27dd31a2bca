// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"fmt"
	"log/slog"
)

// Phase is a session's position in the handshake.
type Phase int

const (
	PhaseCreated Phase = iota + 1
	PhaseOffering
	PhaseNegotiating
	PhaseConnected
	PhaseClosed

	// PhaseError follows a transport error. It is not terminal: the
	// transport may still connect or close.
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseOffering:
		return "offering"
	case PhaseNegotiating:
		return "negotiating"
	case PhaseConnected:
		return "connected"
	case PhaseClosed:
		return "closed"
	case PhaseError:
		return "error"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// SessionInfo is a snapshot of one session.
type SessionInfo struct {
	Tag   string
	Role  Role
	Phase Phase
}

// Session drives the handshake with one remote participant.
//
// A Session has no reference to the engine. Its transport callbacks
// are routed through the engine's registry by tag and id, and the
// session itself only writes to the outbox and the event dispatcher.
// All methods run on the engine's actor goroutine.
type Session struct {
	tag  string
	id   uint64
	role Role

	phase   Phase
	open    bool
	peer    Peer
	pending [][]byte

	outbox *Outbox
	events *dispatcher
	logger *slog.Logger
}

func newSession(tag string, id uint64, role Role, outbox *Outbox, events *dispatcher, logger *slog.Logger) *Session {
	return &Session{
		tag:    tag,
		id:     id,
		role:   role,
		phase:  PhaseCreated,
		outbox: outbox,
		events: events,
		logger: logger.With("peer", tag, "role", role.String()),
	}
}

// Tag returns the remote participant's tag.
func (s *Session) Tag() string { return s.tag }

// Role returns our side of the negotiation.
func (s *Session) Role() Role { return s.role }

// Phase returns the current phase.
func (s *Session) Phase() Phase { return s.phase }

// Info returns a snapshot.
func (s *Session) Info() SessionInfo {
	return SessionInfo{Tag: s.tag, Role: s.role, Phase: s.phase}
}

// start creates the transport peer. An initiator's peer produces the
// offer on its own. A responder with announce set queues a dummy neg
// so the remote side learns we exist.
func (s *Session) start(transport PeerTransport, callbacks PeerEvents, announce bool) error {
	peer, err := transport.NewPeer(PeerOptions{Initiator: s.role == RoleInitiator, RemoteTag: s.tag}, callbacks)
	if err != nil {
		s.phase = PhaseClosed
		return fmt.Errorf("creating peer for %s: %w", s.tag, err)
	}
	s.peer = peer
	if s.role == RoleInitiator {
		s.phase = PhaseOffering
	} else if announce {
		s.outbox.Enqueue(DummyNegotiation(s.tag))
	}
	s.logger.Info("session started", "announce", announce)
	return nil
}

// handleSignal feeds a neg or ice message from the remote side.
// Transport rejections are logged, never fatal.
func (s *Session) handleSignal(message Message) {
	if s.phase == PhaseClosed {
		return
	}
	if message.Dummy {
		s.logger.Debug("placeholder negotiation received")
		return
	}
	if err := s.peer.Signal(message.Signal()); err != nil {
		s.logger.Warn("ignoring negotiation data", "command", string(message.Command), "error", err)
		return
	}
	if message.Command == CommandNegotiation && (s.phase == PhaseCreated || s.phase == PhaseOffering) {
		s.phase = PhaseNegotiating
	}
}

// onSignal relays locally produced negotiation data.
func (s *Session) onSignal(signal Signal) {
	if s.phase == PhaseClosed {
		return
	}
	s.outbox.Enqueue(SignalMessage(s.tag, signal))
	if signal.Kind == SignalNegotiation && s.phase == PhaseCreated {
		s.phase = PhaseNegotiating
	}
}

func (s *Session) onConnect() {
	if s.phase == PhaseClosed || s.open {
		return
	}
	s.phase = PhaseConnected
	s.open = true
	s.logger.Info("peer connected", "buffered", len(s.pending))
	s.events.emit(Event{Kind: EventConnect, User: s.tag})
	for _, data := range s.pending {
		s.events.emit(Event{Kind: EventData, User: s.tag, Data: data})
	}
	s.pending = nil
}

func (s *Session) onData(data []byte) {
	if s.phase == PhaseClosed {
		return
	}
	if !s.open {
		s.pending = append(s.pending, data)
		return
	}
	s.events.emit(Event{Kind: EventData, User: s.tag, Data: data})
}

func (s *Session) onError(err error) {
	if s.phase == PhaseClosed {
		return
	}
	s.phase = PhaseError
	s.logger.Warn("transport error", "error", err)
	s.events.emit(Event{Kind: EventError, User: s.tag, Err: err})
}

// close tears the peer down and emits the close event. It is a no-op
// on a closed session.
func (s *Session) close() {
	if s.phase == PhaseClosed {
		return
	}
	if s.peer != nil {
		if err := s.peer.Close(); err != nil {
			s.logger.Debug("closing peer", "error", err)
		}
	}
	s.markClosed()
}

// markClosed records a closure the transport already performed.
func (s *Session) markClosed() {
	if s.phase == PhaseClosed {
		return
	}
	s.phase = PhaseClosed
	s.open = false
	s.pending = nil
	s.logger.Info("session closed")
	s.events.emit(Event{Kind: EventClose, User: s.tag})
}

func (s *Session) send(data []byte) error {
	if !s.open {
		return fmt.Errorf("%w: %s is %s", ErrNotConnected, s.tag, s.phase)
	}
	if err := s.peer.Send(data); err != nil {
		return fmt.Errorf("sending to %s: %w", s.tag, err)
	}
	return nil
}
