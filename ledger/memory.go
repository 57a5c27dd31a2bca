// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"sync"

	"github.com/ion-signal/ion/lib/clock"
)

// Memory is an in-process Gateway. Bundles are stamped with the given
// clock, so tests driving a fake clock control every timestamp.
type Memory struct {
	clock clock.Clock

	mu           sync.Mutex
	order        []string // transaction hashes in attach order
	transactions map[string]Transaction
	byBundle     map[string][]string
	bundleOrder  []string

	findErr   error
	bundleErr error
	sendErr   error
	finds     int
}

// NewMemory returns an empty in-memory ledger.
func NewMemory(c clock.Clock) *Memory {
	return &Memory{
		clock:        c,
		transactions: make(map[string]Transaction),
		byBundle:     make(map[string][]string),
	}
}

// FindTransactions implements Gateway.
func (m *Memory) FindTransactions(ctx context.Context, addresses []string) ([]TxRef, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	if m.findErr != nil {
		return nil, m.findErr
	}

	wanted := make(map[string]bool, len(addresses))
	for _, address := range addresses {
		wanted[address] = true
	}
	var refs []TxRef
	for _, hash := range m.order {
		transaction := m.transactions[hash]
		if wanted[transaction.Address] {
			refs = append(refs, transaction.Ref())
		}
	}
	return refs, nil
}

// GetBundle implements Gateway.
func (m *Memory) GetBundle(ctx context.Context, hash string) ([]Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bundleErr != nil {
		return nil, m.bundleErr
	}
	transaction, ok := m.transactions[hash]
	if !ok {
		return nil, nil
	}
	var bundle []Transaction
	for _, member := range m.byBundle[transaction.Bundle] {
		bundle = append(bundle, m.transactions[member])
	}
	return bundle, nil
}

// SendTransfer implements Gateway.
func (m *Memory) SendTransfer(ctx context.Context, seed string, depth, minWeightMagnitude int, transfers []Transfer) (*SendResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateWeights(depth, minWeightMagnitude); err != nil {
		return nil, err
	}
	m.mu.Lock()
	sendErr := m.sendErr
	m.mu.Unlock()
	if sendErr != nil {
		return nil, sendErr
	}

	transactions, err := BuildBundle(seed, transfers, m.clock.Now())
	if err != nil {
		return nil, err
	}
	m.Attach(transactions)
	return &SendResult{Bundle: transactions[0].Bundle, Transactions: transactions}, nil
}

// Attach stores already-built transactions as they are, timestamps
// included. Tests use it to plant bundles from the past. Transactions
// already present are skipped.
func (m *Memory) Attach(transactions []Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, transaction := range transactions {
		if _, exists := m.transactions[transaction.Hash]; exists {
			continue
		}
		if _, known := m.byBundle[transaction.Bundle]; !known {
			m.bundleOrder = append(m.bundleOrder, transaction.Bundle)
		}
		m.transactions[transaction.Hash] = transaction
		m.order = append(m.order, transaction.Hash)
		m.byBundle[transaction.Bundle] = append(m.byBundle[transaction.Bundle], transaction.Hash)
	}
}

// Bundles returns every complete bundle in attach order.
func (m *Memory) Bundles() []Bundle {
	m.mu.Lock()
	defer m.mu.Unlock()
	var bundles []Bundle
	for _, id := range m.bundleOrder {
		var members []Transaction
		for _, hash := range m.byBundle[id] {
			members = append(members, m.transactions[hash])
		}
		if bundle, err := AssembleBundle(members); err == nil {
			bundles = append(bundles, bundle)
		}
	}
	return bundles
}

// BundlesAt returns the complete bundles attached at address.
func (m *Memory) BundlesAt(address string) []Bundle {
	var matching []Bundle
	for _, bundle := range m.Bundles() {
		if bundle.Address == address {
			matching = append(matching, bundle)
		}
	}
	return matching
}

// FindCount returns how many FindTransactions calls have been made.
func (m *Memory) FindCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finds
}

// FailFind makes FindTransactions return err until called with nil.
func (m *Memory) FailFind(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findErr = err
}

// FailGetBundle makes GetBundle return err until called with nil.
func (m *Memory) FailGetBundle(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bundleErr = err
}

// FailSend makes SendTransfer return err until called with nil.
func (m *Memory) FailSend(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}
