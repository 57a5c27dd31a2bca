// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"log/slog"
	"time"

	"github.com/ion-signal/ion/ledger"
)

// RouteHandler receives the messages a Router accepts.
type RouteHandler interface {
	// HandleTicket is called for every ticket, in bundle order.
	HandleTicket(tag string)

	// HandleSignal is called for neg and ice messages addressed to us.
	// from is the sending participant's tag.
	HandleSignal(from string, message Message)
}

// Router decodes bundles and dispatches their messages. Bundles are
// assumed deduplicated by the Poller.
type Router struct {
	myTag  string
	codec  Codec
	logger *slog.Logger

	// Genesis is the engine start time. Bundles older than it are
	// ignored. The zero value accepts everything.
	Genesis time.Time
}

// NewRouter returns a Router for participant myTag.
func NewRouter(myTag string, codec Codec, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Router{myTag: myTag, codec: codec, logger: logger}
}

// Route dispatches bundle's messages to handler in payload order and
// returns how many were dispatched. Our own bundles, bundles from
// before genesis and undecodable bundles dispatch nothing.
func (r *Router) Route(bundle ledger.Bundle, handler RouteHandler) int {
	if bundle.Tag == r.myTag {
		return 0
	}
	if bundle.Timestamp.Before(r.Genesis) {
		r.logger.Debug("ignoring bundle from before genesis", "bundle", bundle.ID, "peer", bundle.Tag)
		return 0
	}

	messages, err := r.codec.Decode(bundle.Message)
	if err != nil {
		r.logger.Warn("discarding undecodable bundle", "bundle", bundle.ID, "peer", bundle.Tag, "error", err)
		return 0
	}

	dispatched := 0
	for _, message := range messages {
		if err := message.Validate(); err != nil {
			r.logger.Warn("ignoring malformed message", "bundle", bundle.ID, "peer", bundle.Tag, "error", err)
			continue
		}
		switch message.Command {
		case CommandTicket:
			handler.HandleTicket(message.Tag)
		default:
			if message.User != r.myTag {
				continue
			}
			handler.HandleSignal(bundle.Tag, message)
		}
		dispatched++
	}
	return dispatched
}
