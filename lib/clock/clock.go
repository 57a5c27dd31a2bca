// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the subset of the time package used by Ion components.
// Production code injects Real(); tests inject Fake().
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d
	// has elapsed. If d <= 0 the channel is ready immediately.
	After(d time.Duration) <-chan time.Time

	// AfterFunc calls f once d has elapsed and returns a Timer that
	// can cancel or re-arm the call.
	AfterFunc(d time.Duration, f func()) *Timer
}

// Timer is a pending AfterFunc call.
type Timer struct {
	stopFunc  func() bool
	resetFunc func(time.Duration) bool
}

// Stop cancels the pending call. It reports whether the call was
// still pending.
func (t *Timer) Stop() bool { return t.stopFunc() }

// Reset re-arms the timer to fire d from now. It reports whether the
// timer was pending before the reset.
func (t *Timer) Reset(d time.Duration) bool { return t.resetFunc(d) }
