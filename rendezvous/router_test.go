// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous_test

import (
	"encoding/json"
	"slices"
	"testing"
	"time"

	"github.com/ion-signal/ion/ledger"
	"github.com/ion-signal/ion/lib/clock"
	"github.com/ion-signal/ion/lib/trytes"
	"github.com/ion-signal/ion/rendezvous"
)

func newRouter(t *testing.T, genesis time.Time) *rendezvous.Router {
	t.Helper()
	router := rendezvous.NewRouter("ALICE", newTestCodec(t, testKey), discardLogger())
	router.Genesis = genesis
	return router
}

func encodedBundle(t *testing.T, tag string, timestamp time.Time, messages ...rendezvous.Message) ledger.Bundle {
	t.Helper()
	fake := clock.Fake(timestamp)
	return plant(t, ledger.NewMemory(fake), fake, tag, timestamp, messages...)
}

func TestRouterGenesisFiltering(t *testing.T) {
	genesis := testEpoch
	router := newRouter(t, genesis)

	before := encodedBundle(t, "BOB", genesis.Add(-time.Millisecond), rendezvous.TicketMessage("BOB"))
	after := encodedBundle(t, "CAROL", genesis.Add(time.Millisecond), rendezvous.TicketMessage("CAROL"))

	handler := &recordingHandler{}
	if n := router.Route(before, handler); n != 0 {
		t.Errorf("bundle from before genesis dispatched %d messages", n)
	}
	if n := router.Route(after, handler); n != 1 {
		t.Errorf("bundle from after genesis dispatched %d messages, want 1", n)
	}
	if !slices.Equal(handler.tickets, []string{"CAROL"}) {
		t.Errorf("tickets = %v, want [CAROL]", handler.tickets)
	}

	// A bundle stamped exactly at genesis belongs to this run.
	exact := encodedBundle(t, "DAVE", genesis, rendezvous.TicketMessage("DAVE"))
	if n := router.Route(exact, handler); n != 1 {
		t.Errorf("bundle at genesis dispatched %d messages, want 1", n)
	}
}

func TestRouterIgnoresOwnBundles(t *testing.T) {
	router := newRouter(t, testEpoch)
	own := encodedBundle(t, "ALICE", testEpoch.Add(time.Second), rendezvous.TicketMessage("ALICE"))

	handler := &recordingHandler{}
	if n := router.Route(own, handler); n != 0 || len(handler.tickets) != 0 {
		t.Errorf("own bundle dispatched %d messages", n)
	}
}

func TestRouterDiscardsUndecodable(t *testing.T) {
	router := newRouter(t, testEpoch)
	handler := &recordingHandler{}

	garbage := ledger.Bundle{ID: "GARBAGE", Tag: "BOB", Timestamp: testEpoch.Add(time.Second), Message: trytes.Pad("HELLO", 2187)}
	if n := router.Route(garbage, handler); n != 0 {
		t.Errorf("garbage bundle dispatched %d messages", n)
	}

	// Sealed under another room's key.
	foreign := newTestCodec(t, "another room")
	payload, err := foreign.Encode([]rendezvous.Message{rendezvous.TicketMessage("MALLORY")})
	if err != nil {
		t.Fatal(err)
	}
	stranger := ledger.Bundle{ID: "FOREIGN", Tag: "MALLORY", Timestamp: testEpoch.Add(time.Second), Message: payload}
	if n := router.Route(stranger, handler); n != 0 {
		t.Errorf("foreign bundle dispatched %d messages", n)
	}
	if len(handler.tickets) != 0 || len(handler.signals) != 0 {
		t.Error("handler was called for an undecodable bundle")
	}
}

func TestRouterDispatchesInPayloadOrder(t *testing.T) {
	router := newRouter(t, testEpoch)
	offer := rendezvous.SignalMessage("ALICE", rendezvous.Signal{Kind: rendezvous.SignalNegotiation, Data: json.RawMessage(`{"type":"offer"}`)})
	ice := rendezvous.SignalMessage("ALICE", rendezvous.Signal{Kind: rendezvous.SignalCandidate, Data: json.RawMessage(`{"candidate":"c"}`)})
	forCarol := rendezvous.SignalMessage("CAROL", rendezvous.Signal{Kind: rendezvous.SignalCandidate, Data: json.RawMessage(`{"candidate":"x"}`)})
	malformed := rendezvous.Message{Command: rendezvous.CommandCandidate, User: "ALICE"}

	bundle := encodedBundle(t, "BOB", testEpoch.Add(time.Second),
		rendezvous.TicketMessage("BOB"), offer, forCarol, malformed, ice)

	handler := &recordingHandler{}
	if n := router.Route(bundle, handler); n != 3 {
		t.Fatalf("dispatched %d messages, want 3 (ticket, neg, ice)", n)
	}
	if !slices.Equal(handler.tickets, []string{"BOB"}) {
		t.Errorf("tickets = %v", handler.tickets)
	}
	if len(handler.signals) != 2 {
		t.Fatalf("signals = %+v, want neg then ice", handler.signals)
	}
	if handler.signals[0].from != "BOB" || handler.signals[0].message.Command != rendezvous.CommandNegotiation {
		t.Errorf("first signal = %+v, want neg from BOB", handler.signals[0])
	}
	if handler.signals[1].from != "BOB" || handler.signals[1].message.Command != rendezvous.CommandCandidate {
		t.Errorf("second signal = %+v, want ice from BOB", handler.signals[1])
	}
}
