// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import "errors"

var (
	// ErrUnknownPeer is returned by Send for a tag with no session.
	ErrUnknownPeer = errors.New("rendezvous: unknown peer")

	// ErrNotConnected is returned by Send for a session whose data
	// channel is not open, and by Broadcast when no session is.
	ErrNotConnected = errors.New("rendezvous: peer not connected")

	// ErrClosed is returned by every method after Close.
	ErrClosed = errors.New("rendezvous: engine closed")
)
