// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package seedgen

import (
	"strings"
	"testing"

	"github.com/ion-signal/ion/lib/trytes"
)

func TestTrytesDeterministic(t *testing.T) {
	first := Trytes("p", "seed")
	second := Trytes("p", "seed")
	if first != second {
		t.Fatalf("Trytes is not deterministic: %q vs %q", first, second)
	}
	if len(first) != AddressLength {
		t.Fatalf("len = %d, want %d", len(first), AddressLength)
	}
	if !trytes.Valid(first) {
		t.Fatalf("%q contains non-tryte characters", first)
	}
	if Trytes("p", "other") == first {
		t.Fatal("different seeds produced the same address")
	}
	if Trytes("q", "seed") == first {
		t.Fatal("different prefixes produced the same address")
	}
}

func TestWindowKeyChangesPerWindow(t *testing.T) {
	current := WindowKey("p", []byte("k"), 1_700_000_040)
	if current != WindowKey("p", []byte("k"), 1_700_000_040) {
		t.Fatal("WindowKey is not deterministic")
	}
	if current == WindowKey("p", []byte("k"), 1_700_000_100) {
		t.Fatal("adjacent windows produced the same key")
	}
	if len(current) != WindowKeyLength {
		t.Fatalf("len = %d, want %d", len(current), WindowKeyLength)
	}
	for _, character := range current {
		if !strings.ContainsRune(windowKeyCharset, character) {
			t.Fatalf("unexpected character %q", character)
		}
	}
}

func TestRandomTrytesDiffer(t *testing.T) {
	first, err := RandomTrytes("p")
	if err != nil {
		t.Fatal(err)
	}
	second, err := RandomTrytes("p")
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("two random seeds collided")
	}
	if !trytes.Valid(first) || len(first) != AddressLength {
		t.Fatalf("malformed seed %q", first)
	}
}
