// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ion-signal/ion/ledger"
	"github.com/ion-signal/ion/lib/secret"
)

// Engine finds the other participants of a room on the ledger and
// negotiates a transport session with each of them.
//
// All engine state (the session registry, the run flag, genesis) is
// owned by one actor goroutine. The poll loop, the outbox's debounce
// timer and transport callbacks never touch it directly; they post work
// to the actor. Events are delivered by a separate dispatcher goroutine,
// so subscribers may call back into the engine.
type Engine struct {
	cfg       Config
	key       *secret.Buffer
	codec     Codec
	ownsCodec bool
	logger    *slog.Logger

	addresses   *AddressScheduler
	outbox      *Outbox
	poller      *Poller
	router      *Router
	coordinator *Coordinator
	events      *dispatcher
	actor       *mailbox

	// lifecycle serializes Connect, Stop, Reset and Close.
	lifecycle sync.Mutex

	// Actor state.
	running    bool
	epoch      uint64
	sessionSeq uint64
	cancelLoop context.CancelFunc
	loopDone   chan struct{}
}

// New validates cfg and returns an idle engine. Connect starts it.
func New(cfg Config) (*Engine, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid rendezvous config: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		codec:  cfg.Codec,
		logger: cfg.Logger.With("tag", cfg.MyTag),
	}
	key, err := cfg.ownedKey()
	if err != nil {
		return nil, fmt.Errorf("copying key: %w", err)
	}
	e.key = key
	if e.codec == nil {
		codec, err := defaultCodec(key)
		if err != nil {
			key.Close()
			return nil, fmt.Errorf("creating payload codec: %w", err)
		}
		e.codec = codec
		e.ownsCodec = true
	}

	e.addresses = NewAddressScheduler(cfg.Prefix, key.Bytes(), cfg.AddressWindow, cfg.Clock)
	e.outbox = NewOutbox(OutboxConfig{
		Ledger:             cfg.Ledger,
		Codec:              e.codec,
		Addresses:          e.addresses,
		Clock:              cfg.Clock,
		Logger:             e.logger,
		Prefix:             cfg.Prefix,
		Tag:                cfg.MyTag,
		Depth:              cfg.Depth,
		MinWeightMagnitude: cfg.MinWeightMagnitude,
		Debounce:           cfg.Debounce,
		OnError:            e.flushFailed,
	})
	e.poller = NewPoller(cfg.Ledger, e.addresses, e.logger)
	e.router = NewRouter(cfg.MyTag, e.codec, e.logger)
	e.coordinator = NewCoordinator(cfg.MyTag)
	e.events = newDispatcher()
	e.actor = newMailbox()
	return e, nil
}

// Connect fixes genesis on the first call, announces our ticket and
// starts the poll loop if it is not running. The ticket is written
// before Connect returns; a failed write is returned, but the loop
// keeps running and peers that announce themselves are still found.
func (e *Engine) Connect(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	return e.connect(ctx)
}

func (e *Engine) connect(ctx context.Context) error {
	err := e.actor.call(func() {
		if e.router.Genesis.IsZero() {
			e.router.Genesis = e.cfg.Clock.Now().Truncate(time.Millisecond)
			e.logger.Info("genesis fixed", "genesis", e.router.Genesis)
		}
		e.coordinator.ObserveTicket(e.cfg.MyTag)
		e.outbox.Enqueue(TicketMessage(e.cfg.MyTag))
		if e.running {
			return
		}
		e.running = true
		loopCtx, cancel := context.WithCancel(context.Background())
		e.cancelLoop = cancel
		e.loopDone = make(chan struct{})
		go e.pollLoop(loopCtx, e.epoch, e.loopDone)
		e.logger.Info("polling started", "interval", e.cfg.PollInterval)
	})
	if err != nil {
		return err
	}
	if err := e.outbox.Flush(ctx); err != nil {
		return fmt.Errorf("announcing ticket: %w", err)
	}
	return nil
}

// Stop halts the poll loop, closes every session and forgets every
// ticket. Queued outgoing messages are dropped. Genesis and the set of
// seen bundles survive, so a later Connect does not replay history.
func (e *Engine) Stop() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	return e.stop()
}

func (e *Engine) stop() error {
	var cancel context.CancelFunc
	var done chan struct{}
	err := e.actor.call(func() {
		if !e.running {
			return
		}
		e.running = false
		e.epoch++
		cancel, done = e.cancelLoop, e.loopDone
		e.cancelLoop, e.loopDone = nil, nil
	})
	if err != nil {
		return err
	}
	if cancel != nil {
		cancel()
		<-done
	}
	return e.actor.call(func() {
		sessions := e.coordinator.Sessions()
		for _, session := range sessions {
			session.close()
		}
		e.coordinator.Clear()
		e.outbox.Reset()
		if len(sessions) > 0 {
			e.logger.Info("stopped", "sessions", len(sessions))
		}
	})
}

// Reset is Stop followed by Connect.
func (e *Engine) Reset(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	if err := e.stop(); err != nil {
		return err
	}
	return e.connect(ctx)
}

// Close stops the engine and releases its goroutines. Every method
// returns ErrClosed afterwards. Close is idempotent.
func (e *Engine) Close() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()
	if err := e.stop(); err != nil {
		if errors.Is(err, ErrClosed) {
			return nil
		}
		return err
	}
	// Waits for an in-flight debounced flush, which reads the key.
	e.outbox.Close()
	e.actor.close()
	e.events.close()
	var errs []error
	if e.ownsCodec {
		if closer, ok := e.codec.(interface{ Close() error }); ok {
			errs = append(errs, closer.Close())
		}
	}
	errs = append(errs, e.key.Close())
	return errors.Join(errs...)
}

// Send writes data to user's data channel. Sending to an unknown or
// not yet connected participant drops data and returns ErrUnknownPeer
// or ErrNotConnected.
func (e *Engine) Send(user string, data []byte) error {
	var sendErr error
	err := e.actor.call(func() {
		session := e.coordinator.Session(user)
		if session == nil {
			sendErr = fmt.Errorf("%w: %s", ErrUnknownPeer, user)
			return
		}
		sendErr = session.send(data)
	})
	if err != nil {
		return err
	}
	if sendErr != nil {
		e.logger.Warn("message dropped", "peer", user, "bytes", len(data), "error", sendErr)
	}
	return sendErr
}

// Broadcast writes data to every connected participant. It returns
// ErrNotConnected if there are none, and the joined send errors
// otherwise.
func (e *Engine) Broadcast(data []byte) error {
	var sendErr error
	err := e.actor.call(func() {
		var errs []error
		sent := 0
		for _, session := range e.coordinator.Sessions() {
			if !session.open {
				continue
			}
			sent++
			if err := session.send(data); err != nil {
				errs = append(errs, err)
			}
		}
		if sent == 0 {
			sendErr = ErrNotConnected
			return
		}
		sendErr = errors.Join(errs...)
	})
	if err != nil {
		return err
	}
	if sendErr != nil {
		e.logger.Warn("broadcast incomplete", "bytes", len(data), "error", sendErr)
	}
	return sendErr
}

// Subscribe registers handler for every future event and returns a
// function that unregisters it. Handlers run one at a time, in event
// order, on the engine's dispatcher goroutine.
func (e *Engine) Subscribe(handler func(Event)) (unsubscribe func()) {
	return e.events.subscribe(handler)
}

// Sessions returns a snapshot of every session ordered by tag. A
// closed engine has no sessions, so Sessions returns nil after Close.
func (e *Engine) Sessions() []SessionInfo {
	var infos []SessionInfo
	// ErrClosed leaves infos nil, which is the answer.
	_ = e.actor.call(func() {
		for _, session := range e.coordinator.Sessions() {
			infos = append(infos, session.Info())
		}
	})
	return infos
}

// Running reports whether the poll loop is running. It is false after
// Close.
func (e *Engine) Running() bool {
	var running bool
	_ = e.actor.call(func() { running = e.running })
	return running
}

// Tag returns this participant's tag.
func (e *Engine) Tag() string { return e.cfg.MyTag }

func (e *Engine) pollLoop(ctx context.Context, epoch uint64, done chan<- struct{}) {
	defer close(done)
	for {
		wait := e.cfg.PollInterval
		bundles, err := e.poller.Poll(ctx)
		if ctx.Err() != nil {
			return
		}
		switch {
		case err != nil:
			e.logger.Warn("polling ledger", "error", err)
		case len(bundles) > 0:
			routed := make(chan struct{})
			if !e.actor.post(func() {
				defer close(routed)
				e.route(epoch, bundles)
			}) {
				return
			}
			<-routed
			if e.fromOthers(bundles) {
				wait = e.cfg.ActivePollInterval
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-e.cfg.Clock.After(wait):
		}
	}
}

// fromOthers reports whether any bundle was written by another
// participant. Reading back our own writes does not speed polling up.
func (e *Engine) fromOthers(bundles []ledger.Bundle) bool {
	for _, bundle := range bundles {
		if bundle.Tag != e.cfg.MyTag {
			return true
		}
	}
	return false
}

// route runs on the actor. Bundles polled before a Stop are dropped
// and forgotten by the poller, so the next run receives them again.
func (e *Engine) route(epoch uint64, bundles []ledger.Bundle) {
	if !e.running || e.epoch != epoch {
		e.logger.Debug("dropping bundles from a stopped run", "count", len(bundles))
		ids := make([]string, 0, len(bundles))
		for _, bundle := range bundles {
			ids = append(ids, bundle.ID)
		}
		e.poller.Forget(ids...)
		return
	}
	handler := engineHandler{e}
	for _, bundle := range bundles {
		e.router.Route(bundle, handler)
	}
}

// engineHandler receives routed messages on the actor.
type engineHandler struct{ e *Engine }

func (h engineHandler) HandleTicket(tag string) {
	for _, pending := range h.e.coordinator.ObserveTicket(tag) {
		h.e.openSession(pending, true)
	}
}

func (h engineHandler) HandleSignal(from string, message Message) {
	session := h.e.coordinator.Session(from)
	if session == nil {
		if session = h.e.openSession(from, false); session == nil {
			return
		}
	}
	session.handleSignal(message)
}

// openSession creates and registers a session for tag. announce
// queues a dummy neg for a responder, so a participant whose genesis
// hides our ticket still learns of us.
func (e *Engine) openSession(tag string, announce bool) *Session {
	if existing := e.coordinator.Session(tag); existing != nil {
		return existing
	}
	e.sessionSeq++
	session := newSession(tag, e.sessionSeq, RoleFor(e.cfg.MyTag, tag), e.outbox, e.events, e.logger)
	e.coordinator.Add(session)
	if err := session.start(e.cfg.Transport, e.peerEvents(tag, session.id), announce); err != nil {
		e.coordinator.Remove(tag)
		e.logger.Error("opening session", "peer", tag, "error", err)
		e.events.emit(Event{Kind: EventError, User: tag, Err: err})
		return nil
	}
	return session
}

// peerEvents returns transport callbacks for one session. Each
// callback posts to the actor and finds the session again by tag and
// id, so callbacks from a replaced or closed session are dropped.
func (e *Engine) peerEvents(tag string, id uint64) PeerEvents {
	on := func(fn func(*Session)) {
		e.actor.post(func() {
			session := e.coordinator.Session(tag)
			if session == nil || session.id != id {
				return
			}
			fn(session)
		})
	}
	return PeerEvents{
		OnSignal: func(signal Signal) {
			on(func(s *Session) { s.onSignal(signal) })
		},
		OnConnect: func() {
			on(func(s *Session) { s.onConnect() })
		},
		OnData: func(data []byte) {
			data = bytes.Clone(data)
			on(func(s *Session) { s.onData(data) })
		},
		OnClose: func() {
			on(func(s *Session) {
				e.coordinator.Remove(tag)
				s.close()
			})
		},
		OnError: func(err error) {
			on(func(s *Session) { s.onError(err) })
		},
	}
}

// flushFailed runs on the debounce timer's goroutine.
func (e *Engine) flushFailed(err error) {
	e.logger.Error("writing signaling batch", "error", err)
	e.events.emit(Event{Kind: EventError, Err: err})
}
