// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous_test

import (
	"slices"
	"testing"
	"time"

	"github.com/ion-signal/ion/ledger"
	"github.com/ion-signal/ion/lib/clock"
	"github.com/ion-signal/ion/lib/trytes"
	"github.com/ion-signal/ion/rendezvous"
)

func TestAddressStableWithinWindow(t *testing.T) {
	fake := clock.Fake(testEpoch)
	scheduler := rendezvous.NewAddressScheduler(testPrefix, []byte(testKey), testWindow, fake)

	first := scheduler.Address(0)
	if len(first) != ledger.AddressLength || !trytes.Valid(first) {
		t.Fatalf("address %q is not %d trytes", first, ledger.AddressLength)
	}

	// testEpoch is 5s into its window; 50s later is still inside it.
	fake.Advance(50 * time.Second)
	if again := scheduler.Address(0); again != first {
		t.Errorf("address changed within a window: %s then %s", first, again)
	}

	fake.Advance(10 * time.Second)
	next := scheduler.Address(0)
	if next == first {
		t.Error("address did not change in the next window")
	}
	if previous := scheduler.Address(1); previous != first {
		t.Errorf("Address(1) = %s, want the previous window's %s", previous, first)
	}
}

func TestAddressConvergesAcrossSchedulers(t *testing.T) {
	// Two participants with clocks a few seconds apart inside one
	// window derive the same address.
	alice := rendezvous.NewAddressScheduler(testPrefix, []byte(testKey), testWindow, clock.Fake(testEpoch))
	bob := rendezvous.NewAddressScheduler(testPrefix, []byte(testKey), testWindow, clock.Fake(testEpoch.Add(40*time.Second)))
	if alice.Address(0) != bob.Address(0) {
		t.Error("same window, same secret, different addresses")
	}

	// A participant whose clock already crossed into the next window
	// still finds the other's writes through offset 1.
	late := rendezvous.NewAddressScheduler(testPrefix, []byte(testKey), testWindow, clock.Fake(testEpoch.Add(60*time.Second)))
	if !slices.Contains(late.PollAddresses(), alice.Address(0)) {
		t.Error("poll addresses of the next window miss the previous window's address")
	}
}

func TestAddressDependsOnSecret(t *testing.T) {
	fake := clock.Fake(testEpoch)
	base := rendezvous.NewAddressScheduler(testPrefix, []byte(testKey), testWindow, fake).Address(0)

	tests := []struct {
		name   string
		prefix string
		key    string
	}{
		{"other key", testPrefix, "another key"},
		{"other prefix", "IONOTHER", testKey},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			address := rendezvous.NewAddressScheduler(test.prefix, []byte(test.key), testWindow, fake).Address(0)
			if address == base {
				t.Errorf("%s produced the same address", test.name)
			}
		})
	}
}

func TestWindowStart(t *testing.T) {
	fake := clock.Fake(testEpoch)
	scheduler := rendezvous.NewAddressScheduler(testPrefix, []byte(testKey), testWindow, fake)

	want := testEpoch.Truncate(time.Minute).Unix()
	if got := scheduler.WindowStart(0); got != want {
		t.Errorf("WindowStart(0) = %d, want %d", got, want)
	}
	if got := scheduler.WindowStart(1); got != want-60 {
		t.Errorf("WindowStart(1) = %d, want %d", got, want-60)
	}
}

func TestPollAddressesAreCurrentThenPrevious(t *testing.T) {
	fake := clock.Fake(testEpoch)
	scheduler := rendezvous.NewAddressScheduler(testPrefix, []byte(testKey), testWindow, fake)

	got := scheduler.PollAddresses()
	want := []string{scheduler.Address(0), scheduler.Address(1)}
	if !slices.Equal(got, want) {
		t.Errorf("PollAddresses = %v, want %v", got, want)
	}
}

func TestSubSecondWindowBecomesOneSecond(t *testing.T) {
	fake := clock.Fake(testEpoch)
	scheduler := rendezvous.NewAddressScheduler(testPrefix, []byte(testKey), 10*time.Millisecond, fake)
	if scheduler.WindowStart(0)-scheduler.WindowStart(1) != 1 {
		t.Error("window shorter than a second should become one second")
	}
}
