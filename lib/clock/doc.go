// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source for the signaling
// engine.
//
// The engine is driven almost entirely by time: the ephemeral ledger
// address is a function of the current window, the outbox flushes on a
// debounce timer, and the poller sleeps between ledger queries. Every
// component that needs time takes a [Clock] instead of calling the time
// package, so tests can substitute [Fake] and step through windows,
// debounce delays and poll intervals without sleeping.
//
// A test that drives a goroutine through a fake clock waits for the
// goroutine to register its timer before advancing:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go loop(fake)
//	fake.WaitForTimers(1)
//	fake.Advance(3 * time.Second)
package clock
