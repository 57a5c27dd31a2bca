// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"time"
)

const (
	// AddressLength is the length of an address in trytes.
	AddressLength = 81

	// HashLength is the length of transaction and bundle hashes.
	HashLength = 81

	// FragmentLength is the message capacity of one transaction.
	FragmentLength = 2187

	// MaxTagLength bounds the participant tag carried by a transfer.
	MaxTagLength = 27
)

// Transaction is one attached ledger entry.
type Transaction struct {
	Hash         string    `json:"hash"`
	Bundle       string    `json:"bundle"`
	Address      string    `json:"address"`
	Tag          string    `json:"tag"`
	Message      string    `json:"signatureMessageFragment"`
	Value        int64     `json:"value"`
	CurrentIndex int       `json:"currentIndex"`
	LastIndex    int       `json:"lastIndex"`
	Timestamp    time.Time `json:"timestamp"`
}

// Ref returns the lightweight reference FindTransactions reports.
func (t Transaction) Ref() TxRef {
	return TxRef{
		Hash:         t.Hash,
		Bundle:       t.Bundle,
		Address:      t.Address,
		CurrentIndex: t.CurrentIndex,
	}
}

// TxRef identifies a transaction found at an address. It carries
// enough to skip non-head transactions and already-seen bundles
// without fetching anything.
type TxRef struct {
	Hash         string `json:"hash"`
	Bundle       string `json:"bundle"`
	Address      string `json:"address"`
	CurrentIndex int    `json:"currentIndex"`
}

// IsHead reports whether the transaction begins its bundle.
func (r TxRef) IsHead() bool { return r.CurrentIndex == 0 }

// Transfer is one output of SendTransfer. Only zero-value transfers
// are accepted.
type Transfer struct {
	Address string `json:"address"`
	Tag     string `json:"tag"`
	Value   int64  `json:"value"`
	Message string `json:"message"`
}

// SendResult describes the bundle a SendTransfer attached.
type SendResult struct {
	Bundle       string        `json:"bundle"`
	Transactions []Transaction `json:"transactions"`
}

// Bundle is a validated, reassembled bundle.
type Bundle struct {
	ID        string
	Tag       string
	Address   string
	Timestamp time.Time
	// Message is the concatenation of every fragment, padding
	// included.
	Message string
}

// Gateway is the ledger capability the signaling engine needs.
// Implementations are safe for concurrent use.
type Gateway interface {
	// FindTransactions lists the transactions attached at any of the
	// addresses, oldest first.
	FindTransactions(ctx context.Context, addresses []string) ([]TxRef, error)

	// GetBundle returns every transaction of the bundle containing
	// hash, ordered by CurrentIndex. It returns nil and no error when
	// the transaction is unknown.
	GetBundle(ctx context.Context, hash string) ([]Transaction, error)

	// SendTransfer attaches transfers as one bundle. depth and
	// minWeightMagnitude are passed through to ledgers that do tip
	// selection and proof of work; Ion's own ledgers only check that
	// they are positive.
	SendTransfer(ctx context.Context, seed string, depth, minWeightMagnitude int, transfers []Transfer) (*SendResult, error)
}
