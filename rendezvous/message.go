// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"encoding/json"
	"fmt"
)

// Command is the "cmd" field of a wire message.
type Command string

const (
	CommandTicket      Command = "ticket"
	CommandNegotiation Command = Command(SignalNegotiation)
	CommandCandidate   Command = Command(SignalCandidate)
)

// Message is one entry of a bundle payload. Tickets carry Tag;
// negotiation and candidate messages carry the recipient in User.
type Message struct {
	Command Command         `json:"cmd"`
	Tag     string          `json:"tag,omitempty"`
	User    string          `json:"user,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Dummy   bool            `json:"dummy,omitempty"`
}

// TicketMessage announces tag.
func TicketMessage(tag string) Message {
	return Message{Command: CommandTicket, Tag: tag}
}

// SignalMessage relays signal to user.
func SignalMessage(user string, signal Signal) Message {
	return Message{Command: Command(signal.Kind), User: user, Data: signal.Data}
}

// DummyNegotiation tells user that we exist and expect it to offer.
func DummyNegotiation(user string) Message {
	return Message{Command: CommandNegotiation, User: user, Dummy: true}
}

// Signal returns the transport signal a neg or ice message carries.
func (m Message) Signal() Signal {
	return Signal{Kind: SignalKind(m.Command), Data: m.Data}
}

// Validate checks the fields the command requires.
func (m Message) Validate() error {
	switch m.Command {
	case CommandTicket:
		if m.Tag == "" {
			return fmt.Errorf("ticket without tag")
		}
	case CommandNegotiation:
		if m.User == "" {
			return fmt.Errorf("neg without user")
		}
		if !m.Dummy && len(m.Data) == 0 {
			return fmt.Errorf("neg for %s without data", m.User)
		}
	case CommandCandidate:
		if m.User == "" || len(m.Data) == 0 {
			return fmt.Errorf("ice without user or data")
		}
	default:
		return fmt.Errorf("unknown command %q", m.Command)
	}
	return nil
}
