// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds the bounded JSON-over-HTTP helpers shared by
// the ledger client and the ledger node.
//
// Every body read is capped at MaxBodySize, so neither side can be made
// to buffer an unbounded request or response.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// MaxBodySize bounds request and response bodies: 16 MB, far above a
// full poll result over the whole address window.
const MaxBodySize int64 = 16 << 20

// ReadResponse reads a body up to MaxBodySize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxBodySize))
}

// DecodeResponse reads a body up to MaxBodySize bytes and JSON-decodes
// it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return fmt.Errorf("reading body: %w", err)
	}
	return json.Unmarshal(data, v)
}

// ErrorBody returns a body as a string for error messages. Read errors
// are ignored since a partial body is still useful.
func ErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, MaxBodySize))
	return string(data)
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(data)
	return err
}
