// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/ion-signal/ion/ledger"
)

// Poller fetches bundles not seen before from the addresses the
// scheduler names.
//
// The seen set lives as long as the Poller and is never pruned, so a
// bundle is returned at most once no matter how often the ledger
// reports it. Only Forget, used for bundles nobody processed, removes
// entries.
type Poller struct {
	ledger    ledger.Gateway
	addresses *AddressScheduler
	logger    *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewPoller returns a Poller with an empty seen set.
func NewPoller(gateway ledger.Gateway, addresses *AddressScheduler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Poller{
		ledger:    gateway,
		addresses: addresses,
		logger:    logger,
		seen:      make(map[string]struct{}),
	}
}

// Poll queries the current and previous window, fetches every unseen
// bundle by its head transaction, marks it seen and returns the new
// bundles in ascending timestamp order. Bundles with equal timestamps
// keep the order the ledger listed them in.
//
// A failed query returns an error. A failed or incomplete fetch is
// logged and skipped; the bundle stays unseen and is tried again on
// the next poll.
func (p *Poller) Poll(ctx context.Context) ([]ledger.Bundle, error) {
	refs, err := p.ledger.FindTransactions(ctx, p.addresses.PollAddresses())
	if err != nil {
		return nil, fmt.Errorf("finding transactions: %w", err)
	}

	var bundles []ledger.Bundle
	for _, ref := range refs {
		if !ref.IsHead() || p.Seen(ref.Bundle) {
			continue
		}
		transactions, err := p.ledger.GetBundle(ctx, ref.Hash)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			p.logger.Warn("fetching bundle failed", "bundle", ref.Bundle, "error", err)
			continue
		}
		if transactions == nil {
			p.logger.Debug("bundle not yet available", "bundle", ref.Bundle)
			continue
		}
		bundle, err := ledger.AssembleBundle(transactions)
		if err != nil {
			p.logger.Debug("skipping bundle", "bundle", ref.Bundle, "error", err)
			continue
		}
		p.mu.Lock()
		p.seen[bundle.ID] = struct{}{}
		p.mu.Unlock()
		bundles = append(bundles, bundle)
	}

	slices.SortStableFunc(bundles, func(a, b ledger.Bundle) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return bundles, nil
}

// Seen reports whether the bundle has been returned before.
func (p *Poller) Seen(bundleID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.seen[bundleID]
	return ok
}

// Forget removes bundles from the seen set so a later Poll returns
// them again.
func (p *Poller) Forget(bundleIDs ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range bundleIDs {
		delete(p.seen, id)
	}
}

// SeenCount returns the size of the seen set.
func (p *Poller) SeenCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.seen)
}
