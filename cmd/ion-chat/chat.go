// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/ion-signal/ion/rendezvous"
)

// messenger is the part of *rendezvous.Engine the chat loop drives.
type messenger interface {
	Send(user string, data []byte) error
	Broadcast(data []byte) error
	Sessions() []rendezvous.SessionInfo
	Reset(ctx context.Context) error
}

type commandKind int

const (
	commandBroadcast commandKind = iota
	commandSend
	commandPeers
	commandReset
	commandQuit
	commandEmpty
)

type command struct {
	kind commandKind
	tag  string
	text string
}

// parseLine turns one line of input into a command. Unknown slash
// commands are an error; "//text" broadcasts "/text".
func parseLine(line string) (command, error) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return command{kind: commandEmpty}, nil
	}
	if !strings.HasPrefix(line, "/") {
		return command{kind: commandBroadcast, text: line}, nil
	}
	if strings.HasPrefix(line, "//") {
		return command{kind: commandBroadcast, text: line[1:]}, nil
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	switch name {
	case "to":
		tag, text, _ := strings.Cut(strings.TrimLeft(rest, " "), " ")
		if tag == "" || text == "" {
			return command{}, errors.New("usage: /to TAG text")
		}
		return command{kind: commandSend, tag: strings.ToUpper(tag), text: text}, nil
	case "peers":
		return command{kind: commandPeers}, nil
	case "reset":
		return command{kind: commandReset}, nil
	case "quit", "exit":
		return command{kind: commandQuit}, nil
	default:
		return command{}, fmt.Errorf("unknown command /%s", name)
	}
}

// renderer formats events and notices for the terminal.
type renderer struct {
	peer    lipgloss.Style
	connect lipgloss.Style
	close   lipgloss.Style
	failure lipgloss.Style
	notice  lipgloss.Style
}

// newRenderer styles output with colors when color is true and as plain
// text otherwise.
func newRenderer(color bool) renderer {
	profile := termenv.Ascii
	if color {
		profile = termenv.ANSI256
	}
	lip := lipgloss.NewRenderer(io.Discard, termenv.WithProfile(profile))
	lip.SetColorProfile(profile)
	return renderer{
		peer:    lip.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		connect: lip.NewStyle().Foreground(lipgloss.Color("42")),
		close:   lip.NewStyle().Foreground(lipgloss.Color("244")),
		failure: lip.NewStyle().Foreground(lipgloss.Color("196")),
		notice:  lip.NewStyle().Faint(true),
	}
}

func (r renderer) event(event rendezvous.Event) string {
	switch event.Kind {
	case rendezvous.EventConnect:
		return r.connect.Render("* " + event.User + " connected")
	case rendezvous.EventData:
		return r.peer.Render("<"+event.User+">") + " " + string(event.Data)
	case rendezvous.EventClose:
		return r.close.Render("* " + event.User + " left")
	case rendezvous.EventError:
		if event.User == "" {
			return r.failure.Render("! signaling: " + event.Err.Error())
		}
		return r.failure.Render("! " + event.User + ": " + event.Err.Error())
	default:
		return ""
	}
}

func (r renderer) sessions(infos []rendezvous.SessionInfo) string {
	if len(infos) == 0 {
		return r.notice.Render("no sessions")
	}
	lines := make([]string, 0, len(infos))
	for _, info := range infos {
		lines = append(lines, r.notice.Render(fmt.Sprintf("%-27s %-9s %s", info.Tag, info.Role, info.Phase)))
	}
	return strings.Join(lines, "\n")
}

func (r renderer) problem(err error) string {
	return r.failure.Render("! " + err.Error())
}

// chat runs the input loop and prints events as they arrive.
type chat struct {
	engine   messenger
	render   renderer
	prompted bool

	mu  sync.Mutex
	out io.Writer
}

func newChat(engine messenger, out io.Writer, render renderer, prompted bool) *chat {
	return &chat{engine: engine, render: render, prompted: prompted, out: out}
}

// show prints one engine event. It is registered with Subscribe.
func (c *chat) show(event rendezvous.Event) {
	if line := c.render.event(event); line != "" {
		c.println(line)
	}
}

func (c *chat) println(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prompted {
		// Overwrite the pending prompt, then restore it.
		fmt.Fprint(c.out, "\r\033[K")
	}
	fmt.Fprintln(c.out, text)
	if c.prompted {
		fmt.Fprint(c.out, "> ")
	}
}

// run reads lines from in until it ends, /quit, or ctx is cancelled.
func (c *chat) run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	if c.prompted {
		c.mu.Lock()
		fmt.Fprint(c.out, "> ")
		c.mu.Unlock()
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}
			return nil
		case line := <-lines:
			if quit := c.handle(ctx, line); quit {
				return nil
			}
			if c.prompted {
				c.mu.Lock()
				fmt.Fprint(c.out, "> ")
				c.mu.Unlock()
			}
		}
	}
}

// handle executes one input line and reports whether to quit.
func (c *chat) handle(ctx context.Context, line string) bool {
	cmd, err := parseLine(line)
	if err != nil {
		c.println(c.render.problem(err))
		return false
	}
	switch cmd.kind {
	case commandEmpty:
	case commandBroadcast:
		if err := c.engine.Broadcast([]byte(cmd.text)); err != nil {
			if errors.Is(err, rendezvous.ErrNotConnected) {
				err = errors.New("nobody is connected yet")
			}
			c.println(c.render.problem(err))
		}
	case commandSend:
		if err := c.engine.Send(cmd.tag, []byte(cmd.text)); err != nil {
			c.println(c.render.problem(err))
		}
	case commandPeers:
		c.println(c.render.sessions(c.engine.Sessions()))
	case commandReset:
		if err := c.engine.Reset(ctx); err != nil {
			c.println(c.render.problem(err))
		}
	case commandQuit:
		return true
	}
	return false
}
