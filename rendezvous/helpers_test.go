// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/ion-signal/ion/ledger"
	"github.com/ion-signal/ion/lib/clock"
	"github.com/ion-signal/ion/lib/compress"
	"github.com/ion-signal/ion/lib/sealed"
	"github.com/ion-signal/ion/lib/secret"
	"github.com/ion-signal/ion/lib/seedgen"
	"github.com/ion-signal/ion/rendezvous"
)

const (
	testPrefix = "IONTEST"
	testKey    = "correct horse battery staple"
	testWindow = 60 * time.Second
)

// testEpoch sits mid-window so a few minutes of fake time never cross
// more than a handful of address windows.
var testEpoch = time.Date(2026, 10, 15, 12, 0, 5, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// newTestCodec returns the codec an engine builds for testKey.
func newTestCodec(t *testing.T, key string) *rendezvous.PayloadCodec {
	t.Helper()
	buffer, err := secret.NewFromString(key)
	if err != nil {
		t.Fatalf("secret.NewFromString: %v", err)
	}
	defer buffer.Close()
	codec, err := rendezvous.NewPayloadCodec(rendezvous.CodecOptions{
		Key:         buffer,
		Cipher:      sealed.KindSymmetric,
		Compression: compress.Zstd,
	})
	if err != nil {
		t.Fatalf("NewPayloadCodec: %v", err)
	}
	t.Cleanup(func() { codec.Close() })
	return codec
}

// keyBuffer returns testKey in a secret buffer closed at cleanup.
func keyBuffer(t *testing.T) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromString(testKey)
	if err != nil {
		t.Fatalf("secret.NewFromString: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

// plant writes messages as participant tag to the current window's
// address with an explicit ledger timestamp, the way a participant
// outside the test would.
func plant(t *testing.T, memory *ledger.Memory, c clock.Clock, tag string, timestamp time.Time, messages ...rendezvous.Message) ledger.Bundle {
	t.Helper()
	codec := newTestCodec(t, testKey)
	payload, err := codec.Encode(messages)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	seed, err := seedgen.RandomTrytes(testPrefix)
	if err != nil {
		t.Fatalf("RandomTrytes: %v", err)
	}
	address := rendezvous.NewAddressScheduler(testPrefix, []byte(testKey), testWindow, c).Address(0)
	transactions, err := ledger.BuildBundle(seed, []ledger.Transfer{{
		Address: address,
		Tag:     tag,
		Message: payload,
	}}, timestamp)
	if err != nil {
		t.Fatalf("BuildBundle: %v", err)
	}
	memory.Attach(transactions)
	bundle, err := ledger.AssembleBundle(transactions)
	if err != nil {
		t.Fatalf("AssembleBundle: %v", err)
	}
	return bundle
}

// decodeAll decodes every bundle written by tag.
func decodeAll(t *testing.T, memory *ledger.Memory, tag string) [][]rendezvous.Message {
	t.Helper()
	codec := newTestCodec(t, testKey)
	var batches [][]rendezvous.Message
	for _, bundle := range memory.Bundles() {
		if bundle.Tag != tag {
			continue
		}
		messages, err := codec.Decode(bundle.Message)
		if err != nil {
			t.Fatalf("Decode bundle %s: %v", bundle.ID, err)
		}
		batches = append(batches, messages)
	}
	return batches
}

// recordingHandler is a RouteHandler that records what it is given.
type recordingHandler struct {
	tickets []string
	signals []routedSignal
}

type routedSignal struct {
	from    string
	message rendezvous.Message
}

func (h *recordingHandler) HandleTicket(tag string) {
	h.tickets = append(h.tickets, tag)
}

func (h *recordingHandler) HandleSignal(from string, message rendezvous.Message) {
	h.signals = append(h.signals, routedSignal{from: from, message: message})
}

// waitFor polls cond in real time. The engine's goroutines run
// asynchronously even under a fake clock.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// advanceUntil steps the fake clock until cond holds, yielding between
// steps so pollers and debounce timers observe every step.
func advanceUntil(t *testing.T, c *clock.FakeClock, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(20 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out advancing the clock until %s", what)
		}
		c.Advance(100 * time.Millisecond)
		time.Sleep(time.Millisecond)
	}
}
