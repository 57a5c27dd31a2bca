// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"time"

	"github.com/ion-signal/ion/lib/clock"
	"github.com/ion-signal/ion/lib/seedgen"
)

// AddressScheduler derives ephemeral ledger addresses from the shared
// secret and the clock.
type AddressScheduler struct {
	prefix string
	key    []byte
	window int64 // seconds
	clock  clock.Clock
}

// NewAddressScheduler returns a scheduler with the given window. The
// window is rounded down to whole seconds, minimum one. key is borrowed
// and must stay valid while the scheduler is in use.
func NewAddressScheduler(prefix string, key []byte, window time.Duration, c clock.Clock) *AddressScheduler {
	seconds := int64(window / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return &AddressScheduler{prefix: prefix, key: key, window: seconds, clock: c}
}

// WindowStart returns the Unix second at which the window offset
// windows before the current one began.
func (s *AddressScheduler) WindowStart(offset int) int64 {
	now := s.clock.Now().Unix()
	current := now - mod(now, s.window)
	return current - int64(offset)*s.window
}

// Address returns the address of the window offset windows ago.
// Address(0) is where this participant writes.
func (s *AddressScheduler) Address(offset int) string {
	return seedgen.Trytes(s.prefix, seedgen.WindowKey(s.prefix, s.key, s.WindowStart(offset)))
}

// PollAddresses returns the current and previous window's addresses.
// Both are computed from one clock reading.
func (s *AddressScheduler) PollAddresses() []string {
	current := s.WindowStart(0)
	return []string{
		seedgen.Trytes(s.prefix, seedgen.WindowKey(s.prefix, s.key, current)),
		seedgen.Trytes(s.prefix, seedgen.WindowKey(s.prefix, s.key, current-s.window)),
	}
}

// mod is the non-negative remainder, so times before 1970 still round
// down.
func mod(a, b int64) int64 {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}
