// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the slog logger Ion's binaries hand to every
// component.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// New returns a logger writing to stderr. Format "auto" (or empty)
// picks the text handler when stderr is a terminal and JSON otherwise.
func New(level, format string) (*slog.Logger, error) {
	return NewWriter(os.Stderr, term.IsTerminal(int(os.Stderr.Fd())), level, format)
}

// NewWriter is New for an arbitrary writer. interactive stands in for
// the terminal check.
func NewWriter(w io.Writer, interactive bool, level, format string) (*slog.Logger, error) {
	parsed, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: parsed}

	switch strings.ToLower(format) {
	case "", "auto":
		if interactive {
			return slog.New(slog.NewTextHandler(w, options)), nil
		}
		return slog.New(slog.NewJSONHandler(w, options)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, options)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, options)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// ParseLevel maps debug, info, warn and error to slog levels. The
// empty string is info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}
