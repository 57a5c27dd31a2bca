// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"errors"
	"fmt"
)

// ErrBundleIncomplete is returned by AssembleBundle when transactions
// are missing or inconsistent.
var ErrBundleIncomplete = errors.New("ledger: bundle incomplete")

// ErrInvalidTransfer wraps every SendTransfer validation failure.
// Handler maps it to HTTP 400.
var ErrInvalidTransfer = errors.New("ledger: invalid transfer")

// NodeError is a failure reported by a ledger node. Callers extract it
// with errors.As:
//
//	var nodeErr *ledger.NodeError
//	if errors.As(err, &nodeErr) && nodeErr.StatusCode == http.StatusBadRequest { ... }
type NodeError struct {
	Command    string `json:"-"`
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("ledger node: %s (%d): %s", e.Command, e.StatusCode, e.Message)
}

// IsNodeError reports whether err is a *NodeError with the given HTTP
// status. A status of 0 matches any NodeError.
func IsNodeError(err error, status int) bool {
	var nodeErr *NodeError
	if errors.As(err, &nodeErr) {
		return status == 0 || nodeErr.StatusCode == status
	}
	return false
}

func invalidTransfer(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransfer, fmt.Sprintf(format, args...))
}
