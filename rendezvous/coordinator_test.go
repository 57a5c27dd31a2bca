// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"log/slog"
	"slices"
	"testing"
)

func TestTieBreakSymmetry(t *testing.T) {
	tags := []string{"ALICE", "BOB", "CAROL", "A", "AA", "B9", "9", "ZZZZZZZZZZZZZZZZZZZZZZZZZZZ"}
	for _, a := range tags {
		for _, b := range tags {
			if a == b {
				continue
			}
			if IsInitiator(a, b) == IsInitiator(b, a) {
				t.Errorf("IsInitiator(%s, %s) == IsInitiator(%s, %s)", a, b, b, a)
			}
			if RoleFor(a, b) == RoleFor(b, a) {
				t.Errorf("%s and %s both computed role %s", a, b, RoleFor(a, b))
			}
		}
	}
	if !IsInitiator("ALICE", "BOB") {
		t.Error("the lexicographically smaller tag initiates")
	}
	if RoleFor("BOB", "ALICE") != RoleResponder {
		t.Error("BOB should respond to ALICE")
	}
}

func testSession(tag string, id uint64) *Session {
	return newSession(tag, id, RoleFor("ALICE", tag), nil, nil, slog.New(slog.DiscardHandler))
}

func TestCoordinatorObserveTicket(t *testing.T) {
	coordinator := NewCoordinator("ALICE")

	if pending := coordinator.ObserveTicket("ALICE"); len(pending) != 0 {
		t.Errorf("own ticket produced pending tags %v", pending)
	}
	if pending := coordinator.ObserveTicket("CAROL"); !slices.Equal(pending, []string{"CAROL"}) {
		t.Errorf("pending = %v, want [CAROL]", pending)
	}

	// Until CAROL has a session, every ticket reports it again.
	if pending := coordinator.ObserveTicket("BOB"); !slices.Equal(pending, []string{"BOB", "CAROL"}) {
		t.Errorf("pending = %v, want [BOB CAROL]", pending)
	}

	coordinator.Add(testSession("BOB", 1))
	coordinator.Add(testSession("CAROL", 2))
	if pending := coordinator.ObserveTicket("BOB"); len(pending) != 0 {
		t.Errorf("repeated ticket for a live session produced %v", pending)
	}
	if !coordinator.HasTicket("BOB") || coordinator.HasTicket("DAVE") {
		t.Error("HasTicket disagrees with observed tickets")
	}
}

func TestCoordinatorOneSessionPerTag(t *testing.T) {
	coordinator := NewCoordinator("ALICE")
	first := testSession("BOB", 1)
	if !coordinator.Add(first) {
		t.Fatal("Add refused the first session")
	}
	if coordinator.Add(testSession("BOB", 2)) {
		t.Fatal("Add accepted a second session for the same tag")
	}
	if coordinator.Session("BOB") != first {
		t.Error("existing session was replaced")
	}
}

func TestCoordinatorRemoveAndClear(t *testing.T) {
	coordinator := NewCoordinator("ALICE")
	coordinator.ObserveTicket("BOB")
	coordinator.ObserveTicket("CAROL")
	coordinator.Add(testSession("CAROL", 1))
	coordinator.Add(testSession("BOB", 2))

	var tags []string
	for _, session := range coordinator.Sessions() {
		tags = append(tags, session.Tag())
	}
	if !slices.Equal(tags, []string{"BOB", "CAROL"}) {
		t.Errorf("Sessions order = %v, want sorted by tag", tags)
	}

	coordinator.Remove("BOB")
	if coordinator.Session("BOB") != nil || coordinator.HasTicket("BOB") {
		t.Error("Remove kept BOB's session or ticket")
	}
	if coordinator.Session("CAROL") == nil {
		t.Error("Remove touched another tag")
	}

	coordinator.Clear()
	if len(coordinator.Sessions()) != 0 || coordinator.HasTicket("CAROL") {
		t.Error("Clear left state behind")
	}
}
