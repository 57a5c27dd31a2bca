// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"maps"
	"slices"
)

// Role is a session's side of the negotiation.
type Role int

const (
	RoleInitiator Role = iota + 1
	RoleResponder
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "unknown"
	}
}

// IsInitiator reports whether myTag initiates towards other: the
// lexicographically smaller tag does. For distinct tags exactly one of
// IsInitiator(a, b) and IsInitiator(b, a) is true.
func IsInitiator(myTag, other string) bool {
	return myTag < other
}

// RoleFor is IsInitiator as a Role.
func RoleFor(myTag, other string) Role {
	if IsInitiator(myTag, other) {
		return RoleInitiator
	}
	return RoleResponder
}

// Coordinator is the registry of known tickets and live sessions. It
// is not safe for concurrent use; the engine touches it only from its
// actor goroutine.
type Coordinator struct {
	myTag    string
	tickets  map[string]struct{}
	sessions map[string]*Session
}

// NewCoordinator returns an empty registry.
func NewCoordinator(myTag string) *Coordinator {
	return &Coordinator{
		myTag:    myTag,
		tickets:  make(map[string]struct{}),
		sessions: make(map[string]*Session),
	}
}

// ObserveTicket records tag's ticket and returns, in sorted order,
// every ticketed tag other than ours that has no session yet. The
// caller creates those sessions.
func (c *Coordinator) ObserveTicket(tag string) []string {
	c.tickets[tag] = struct{}{}
	var pending []string
	for _, known := range slices.Sorted(maps.Keys(c.tickets)) {
		if known == c.myTag {
			continue
		}
		if _, ok := c.sessions[known]; !ok {
			pending = append(pending, known)
		}
	}
	return pending
}

// HasTicket reports whether tag's ticket is recorded.
func (c *Coordinator) HasTicket(tag string) bool {
	_, ok := c.tickets[tag]
	return ok
}

// Session returns tag's session, or nil.
func (c *Coordinator) Session(tag string) *Session {
	return c.sessions[tag]
}

// Add registers session. It refuses, returning false, if the tag
// already has one; an existing session is never replaced.
func (c *Coordinator) Add(session *Session) bool {
	if _, exists := c.sessions[session.Tag()]; exists {
		return false
	}
	c.sessions[session.Tag()] = session
	return true
}

// Remove forgets tag's session and ticket.
func (c *Coordinator) Remove(tag string) {
	delete(c.sessions, tag)
	delete(c.tickets, tag)
}

// Sessions returns every session ordered by tag.
func (c *Coordinator) Sessions() []*Session {
	sessions := make([]*Session, 0, len(c.sessions))
	for _, tag := range slices.Sorted(maps.Keys(c.sessions)) {
		sessions = append(sessions, c.sessions[tag])
	}
	return sessions
}

// Clear forgets every session and ticket.
func (c *Coordinator) Clear() {
	clear(c.sessions)
	clear(c.tickets)
}
