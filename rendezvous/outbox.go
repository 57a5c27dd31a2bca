// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ion-signal/ion/ledger"
	"github.com/ion-signal/ion/lib/clock"
	"github.com/ion-signal/ion/lib/seedgen"
)

// OutboxConfig holds the collaborators of an Outbox.
type OutboxConfig struct {
	Ledger    ledger.Gateway
	Codec     Codec
	Addresses *AddressScheduler
	Clock     clock.Clock
	Logger    *slog.Logger

	Prefix             string
	Tag                string
	Depth              int
	MinWeightMagnitude int
	Debounce           time.Duration

	// OnError is called with every failed debounced flush. The
	// messages of a failed flush are dropped, not retried.
	OnError func(error)
}

// Outbox batches outgoing messages into ledger transfers.
//
// Enqueue appends to the queue and re-arms a single debounce timer;
// when the timer fires the entire queue is written as one transfer to
// the current window's address. Flushes are serialized, so transfers
// reach the ledger in the order their messages were enqueued.
type Outbox struct {
	cfg OutboxConfig

	mu     sync.Mutex
	queue  []Message
	timer  *clock.Timer
	closed bool

	// flushMu serializes submissions.
	flushMu sync.Mutex
}

// NewOutbox returns an empty outbox.
func NewOutbox(cfg OutboxConfig) *Outbox {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Outbox{cfg: cfg}
}

// Enqueue appends message and restarts the debounce window.
func (o *Outbox) Enqueue(message Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.queue = append(o.queue, message)
	if o.timer == nil {
		o.timer = o.cfg.Clock.AfterFunc(o.cfg.Debounce, o.debounced)
		return
	}
	o.timer.Reset(o.cfg.Debounce)
}

// Len returns the number of queued messages.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// Flush writes every queued message now as one transfer and cancels
// the pending debounce. An empty queue writes nothing. After Close it
// returns ErrClosed.
func (o *Outbox) Flush(ctx context.Context) error {
	o.flushMu.Lock()
	defer o.flushMu.Unlock()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	batch := o.queue
	o.queue = nil
	if o.timer != nil {
		o.timer.Stop()
	}
	o.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}
	return o.submit(ctx, batch)
}

// Reset drops every queued message and cancels the pending debounce.
func (o *Outbox) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.queue = nil
	if o.timer != nil {
		o.timer.Stop()
	}
}

// Close drops the queue and waits for an in-flight flush. Enqueue is a
// no-op afterwards.
func (o *Outbox) Close() {
	o.flushMu.Lock()
	defer o.flushMu.Unlock()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	o.queue = nil
	if o.timer != nil {
		o.timer.Stop()
	}
}

func (o *Outbox) debounced() {
	err := o.Flush(context.Background())
	if errors.Is(err, ErrClosed) {
		return
	}
	if err != nil && o.cfg.OnError != nil {
		o.cfg.OnError(err)
	}
}

func (o *Outbox) submit(ctx context.Context, batch []Message) error {
	message, err := o.cfg.Codec.Encode(batch)
	if err != nil {
		return fmt.Errorf("encoding %d messages: %w", len(batch), err)
	}
	seed, err := seedgen.RandomTrytes(o.cfg.Prefix)
	if err != nil {
		return err
	}
	address := o.cfg.Addresses.Address(0)
	result, err := o.cfg.Ledger.SendTransfer(ctx, seed, o.cfg.Depth, o.cfg.MinWeightMagnitude, []ledger.Transfer{{
		Address: address,
		Tag:     o.cfg.Tag,
		Message: message,
	}})
	if err != nil {
		return fmt.Errorf("sending %d messages: %w", len(batch), err)
	}
	o.cfg.Logger.Debug("outbox flushed",
		"messages", len(batch),
		"bundle", result.Bundle,
		"address", address,
	)
	return nil
}
