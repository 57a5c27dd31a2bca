// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ion-signal/ion/lib/clock"
	"github.com/ion-signal/ion/lib/testutil"
)

// scriptedPeer records what a session asks of its transport.
type scriptedPeer struct {
	signals   []Signal
	sent      [][]byte
	closed    int
	signalErr error
}

func (p *scriptedPeer) Signal(signal Signal) error {
	if p.signalErr != nil {
		return p.signalErr
	}
	p.signals = append(p.signals, signal)
	return nil
}

func (p *scriptedPeer) Send(data []byte) error {
	p.sent = append(p.sent, data)
	return nil
}

func (p *scriptedPeer) Close() error {
	p.closed++
	return nil
}

type scriptedTransport struct {
	peer    *scriptedPeer
	err     error
	options PeerOptions
}

func (t *scriptedTransport) NewPeer(options PeerOptions, _ PeerEvents) (Peer, error) {
	t.options = options
	if t.err != nil {
		return nil, t.err
	}
	return t.peer, nil
}

type sessionFixture struct {
	session   *Session
	peer      *scriptedPeer
	transport *scriptedTransport
	outbox    *Outbox
	events    chan Event
}

func newSessionFixture(t *testing.T, role Role) *sessionFixture {
	t.Helper()
	dispatcher := newDispatcher()
	t.Cleanup(dispatcher.close)
	events := make(chan Event, 32)
	dispatcher.subscribe(func(event Event) { events <- event })

	outbox := NewOutbox(OutboxConfig{Clock: clock.Fake(time.Unix(0, 0)), Debounce: time.Second})
	peer := &scriptedPeer{}
	return &sessionFixture{
		session:   newSession("BOB", 1, role, outbox, dispatcher, slog.New(slog.DiscardHandler)),
		peer:      peer,
		transport: &scriptedTransport{peer: peer},
		outbox:    outbox,
		events:    events,
	}
}

func (f *sessionFixture) start(t *testing.T, announce bool) {
	t.Helper()
	if err := f.session.start(f.transport, PeerEvents{}, announce); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func (f *sessionFixture) nextEvent(t *testing.T) Event {
	t.Helper()
	return testutil.RequireReceive(t, f.events, 5*time.Second, "no event")
}

func negotiation(data string) Message {
	return SignalMessage("ALICE", Signal{Kind: SignalNegotiation, Data: json.RawMessage(data)})
}

func TestSessionInitiatorStartsOffering(t *testing.T) {
	f := newSessionFixture(t, RoleInitiator)
	f.start(t, true)

	if f.session.Phase() != PhaseOffering {
		t.Errorf("phase = %s, want offering", f.session.Phase())
	}
	if !f.transport.options.Initiator || f.transport.options.RemoteTag != "BOB" {
		t.Errorf("peer options = %+v", f.transport.options)
	}
	if f.outbox.Len() != 0 {
		t.Error("an initiator never announces with a dummy neg")
	}

	// The answer moves it on.
	f.session.handleSignal(negotiation(`{"type":"answer"}`))
	if f.session.Phase() != PhaseNegotiating {
		t.Errorf("phase after answer = %s, want negotiating", f.session.Phase())
	}
}

func TestSessionResponderAnnounces(t *testing.T) {
	f := newSessionFixture(t, RoleResponder)
	f.start(t, true)

	if f.session.Phase() != PhaseCreated {
		t.Errorf("phase = %s, want created", f.session.Phase())
	}
	if f.outbox.Len() != 1 {
		t.Fatalf("outbox holds %d messages, want the dummy neg", f.outbox.Len())
	}

	quiet := newSessionFixture(t, RoleResponder)
	quiet.start(t, false)
	if quiet.outbox.Len() != 0 {
		t.Error("a responder created from a signal must not announce")
	}
}

func TestSessionHandleSignal(t *testing.T) {
	f := newSessionFixture(t, RoleResponder)
	f.start(t, false)

	f.session.handleSignal(DummyNegotiation("ALICE"))
	if len(f.peer.signals) != 0 {
		t.Error("dummy neg reached the transport")
	}
	if f.session.Phase() != PhaseCreated {
		t.Errorf("dummy neg changed phase to %s", f.session.Phase())
	}

	f.session.handleSignal(negotiation(`{"type":"offer"}`))
	f.session.handleSignal(SignalMessage("ALICE", Signal{Kind: SignalCandidate, Data: json.RawMessage(`{"candidate":"c"}`)}))
	if len(f.peer.signals) != 2 || f.peer.signals[0].Kind != SignalNegotiation || f.peer.signals[1].Kind != SignalCandidate {
		t.Fatalf("transport got %+v", f.peer.signals)
	}
	if f.session.Phase() != PhaseNegotiating {
		t.Errorf("phase = %s, want negotiating", f.session.Phase())
	}
}

func TestSessionIgnoresRejectedSignal(t *testing.T) {
	f := newSessionFixture(t, RoleResponder)
	f.start(t, false)
	f.peer.signalErr = errors.New("malformed sdp")

	f.session.handleSignal(negotiation(`{"type":"offer"}`))
	if f.session.Phase() != PhaseCreated {
		t.Errorf("rejected neg changed phase to %s", f.session.Phase())
	}
	select {
	case event := <-f.events:
		t.Errorf("rejected neg emitted %s", event.Kind)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSessionRelaysLocalSignals(t *testing.T) {
	f := newSessionFixture(t, RoleResponder)
	f.start(t, false)

	f.session.onSignal(Signal{Kind: SignalNegotiation, Data: json.RawMessage(`{"type":"answer"}`)})
	f.session.onSignal(Signal{Kind: SignalCandidate, Data: json.RawMessage(`{"candidate":"c"}`)})
	if f.outbox.Len() != 2 {
		t.Errorf("outbox holds %d messages, want 2", f.outbox.Len())
	}
	if f.session.Phase() != PhaseNegotiating {
		t.Errorf("phase = %s, want negotiating", f.session.Phase())
	}
}

func TestSessionBuffersDataUntilConnect(t *testing.T) {
	f := newSessionFixture(t, RoleInitiator)
	f.start(t, false)

	f.session.onData([]byte("one"))
	f.session.onData([]byte("two"))
	select {
	case event := <-f.events:
		t.Fatalf("event %s before connect", event.Kind)
	case <-time.After(50 * time.Millisecond):
	}

	f.session.onConnect()
	f.session.onData([]byte("three"))

	if event := f.nextEvent(t); event.Kind != EventConnect || event.User != "BOB" {
		t.Fatalf("first event = %+v, want connect from BOB", event)
	}
	for _, want := range []string{"one", "two", "three"} {
		event := f.nextEvent(t)
		if event.Kind != EventData || string(event.Data) != want {
			t.Errorf("event = %s %q, want data %q", event.Kind, event.Data, want)
		}
	}
	if f.session.Phase() != PhaseConnected {
		t.Errorf("phase = %s, want connected", f.session.Phase())
	}
}

func TestSessionSendRequiresOpenChannel(t *testing.T) {
	f := newSessionFixture(t, RoleInitiator)
	f.start(t, false)

	if err := f.session.send([]byte("early")); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("send before connect = %v, want ErrNotConnected", err)
	}
	if len(f.peer.sent) != 0 {
		t.Fatal("data reached the transport before connect")
	}

	f.session.onConnect()
	if err := f.session.send([]byte("hello")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(f.peer.sent) != 1 || string(f.peer.sent[0]) != "hello" {
		t.Errorf("transport got %q", f.peer.sent)
	}
}

func TestSessionErrorIsNotTerminal(t *testing.T) {
	f := newSessionFixture(t, RoleInitiator)
	f.start(t, false)

	failure := errors.New("ice checking failed")
	f.session.onError(failure)
	event := f.nextEvent(t)
	if event.Kind != EventError || event.User != "BOB" || !errors.Is(event.Err, failure) {
		t.Fatalf("event = %+v, want error from BOB", event)
	}
	if f.session.Phase() != PhaseError {
		t.Errorf("phase = %s, want error", f.session.Phase())
	}

	f.session.onConnect()
	if f.session.Phase() != PhaseConnected {
		t.Errorf("phase after recovery = %s, want connected", f.session.Phase())
	}
}

func TestSessionClose(t *testing.T) {
	f := newSessionFixture(t, RoleInitiator)
	f.start(t, false)
	f.session.onConnect()
	f.nextEvent(t)

	f.session.close()
	f.session.close()
	if f.peer.closed != 1 {
		t.Errorf("peer closed %d times, want 1", f.peer.closed)
	}
	if event := f.nextEvent(t); event.Kind != EventClose || event.User != "BOB" {
		t.Fatalf("event = %+v, want close", event)
	}

	// Late transport callbacks are ignored.
	f.session.onData([]byte("late"))
	f.session.onConnect()
	f.session.onError(errors.New("late"))
	f.session.onSignal(Signal{Kind: SignalCandidate, Data: json.RawMessage(`{}`)})
	select {
	case event := <-f.events:
		t.Errorf("closed session emitted %s", event.Kind)
	case <-time.After(50 * time.Millisecond):
	}
	if f.session.Phase() != PhaseClosed || f.outbox.Len() != 0 {
		t.Error("closed session changed state")
	}
	if err := f.session.send([]byte("late")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("send after close = %v", err)
	}
}

func TestSessionStartFailure(t *testing.T) {
	f := newSessionFixture(t, RoleInitiator)
	f.transport.err = errors.New("no interfaces")

	if err := f.session.start(f.transport, PeerEvents{}, false); !errors.Is(err, f.transport.err) {
		t.Fatalf("start = %v, want the transport error", err)
	}
	if f.session.Phase() != PhaseClosed {
		t.Errorf("phase = %s, want closed", f.session.Phase())
	}
}

func TestPhaseStrings(t *testing.T) {
	for phase, want := range map[Phase]string{
		PhaseCreated:     "created",
		PhaseOffering:    "offering",
		PhaseNegotiating: "negotiating",
		PhaseConnected:   "connected",
		PhaseClosed:      "closed",
		PhaseError:       "error",
		Phase(42):        "Phase(42)",
	} {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", int(phase), got, want)
		}
	}
}
