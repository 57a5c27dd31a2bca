// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/ion-signal/ion/lib/clock"
	"github.com/ion-signal/ion/lib/codec"
	"github.com/ion-signal/ion/lib/sqlitepool"
)

// storeSchema keeps the indexed columns the queries need next to the
// full transaction as a CBOR record. seq preserves attach order.
const storeSchema = `
CREATE TABLE IF NOT EXISTS transactions (
	seq           INTEGER PRIMARY KEY AUTOINCREMENT,
	hash          TEXT NOT NULL UNIQUE,
	bundle        TEXT NOT NULL,
	address       TEXT NOT NULL,
	current_index INTEGER NOT NULL,
	record        BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS transactions_by_address ON transactions (address, seq);
CREATE INDEX IF NOT EXISTS transactions_by_bundle ON transactions (bundle, current_index);
`

// maxAddressesPerQuery bounds the IN list of FindTransactions.
const maxAddressesPerQuery = 64

// StoreConfig holds the parameters for OpenStore.
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string

	// Clock stamps attached bundles. Defaults to the real clock.
	Clock clock.Clock

	Logger *slog.Logger
}

// Store is a Gateway persisted in SQLite. It is what ion-ledger serves
// and what a participant uses when pointed at a local database file.
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// OpenStore opens or creates the database at cfg.Path.
func OpenStore(cfg StoreConfig) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := cfg.Clock
	if c == nil {
		c = clock.Real()
	}
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:   cfg.Path,
		Schema: storeSchema,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("ledger store: %w", err)
	}
	return &Store{pool: pool, clock: c, logger: logger}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.pool.Close()
}

// FindTransactions implements Gateway.
func (s *Store) FindTransactions(ctx context.Context, addresses []string) ([]TxRef, error) {
	if len(addresses) == 0 {
		return nil, nil
	}
	if len(addresses) > maxAddressesPerQuery {
		return nil, fmt.Errorf("ledger store: %d addresses exceeds the limit of %d", len(addresses), maxAddressesPerQuery)
	}

	query := "SELECT hash, bundle, address, current_index FROM transactions WHERE address IN (" +
		strings.TrimSuffix(strings.Repeat("?,", len(addresses)), ",") + ") ORDER BY seq"
	args := make([]any, len(addresses))
	for index, address := range addresses {
		args[index] = address
	}

	var refs []TxRef
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
			Args: args,
			ResultFunc: func(stmt *sqlite.Stmt) error {
				refs = append(refs, TxRef{
					Hash:         stmt.ColumnText(0),
					Bundle:       stmt.ColumnText(1),
					Address:      stmt.ColumnText(2),
					CurrentIndex: stmt.ColumnInt(3),
				})
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("ledger store: find transactions: %w", err)
	}
	return refs, nil
}

// GetBundle implements Gateway.
func (s *Store) GetBundle(ctx context.Context, hash string) ([]Transaction, error) {
	var transactions []Transaction
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, `
			SELECT record FROM transactions
			WHERE bundle = (SELECT bundle FROM transactions WHERE hash = ?)
			ORDER BY current_index`, &sqlitex.ExecOptions{
			Args: []any{hash},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record := make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, record)
				var transaction Transaction
				if err := codec.Unmarshal(record, &transaction); err != nil {
					return fmt.Errorf("decoding transaction record: %w", err)
				}
				transactions = append(transactions, transaction)
				return nil
			},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("ledger store: get bundle %s: %w", hash, err)
	}
	return transactions, nil
}

// SendTransfer implements Gateway.
func (s *Store) SendTransfer(ctx context.Context, seed string, depth, minWeightMagnitude int, transfers []Transfer) (*SendResult, error) {
	if err := validateWeights(depth, minWeightMagnitude); err != nil {
		return nil, err
	}
	transactions, err := BuildBundle(seed, transfers, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.Attach(ctx, transactions); err != nil {
		return nil, err
	}
	s.logger.Debug("bundle attached",
		"bundle", transactions[0].Bundle,
		"address", transactions[0].Address,
		"transactions", len(transactions),
	)
	return &SendResult{Bundle: transactions[0].Bundle, Transactions: transactions}, nil
}

// Attach stores built transactions in one transaction. Hashes already
// present are left untouched.
func (s *Store) Attach(ctx context.Context, transactions []Transaction) error {
	err := s.pool.Write(ctx, func(conn *sqlite.Conn) error {
		for _, transaction := range transactions {
			record, err := codec.Marshal(transaction)
			if err != nil {
				return fmt.Errorf("encoding transaction %s: %w", transaction.Hash, err)
			}
			err = sqlitex.Execute(conn, `
				INSERT INTO transactions (hash, bundle, address, current_index, record)
				VALUES (?, ?, ?, ?, ?)
				ON CONFLICT (hash) DO NOTHING`, &sqlitex.ExecOptions{
				Args: []any{transaction.Hash, transaction.Bundle, transaction.Address, transaction.CurrentIndex, record},
			})
			if err != nil {
				return fmt.Errorf("inserting transaction %s: %w", transaction.Hash, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("ledger store: attach: %w", err)
	}
	return nil
}

// Count returns the number of stored transactions.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT count(*) FROM transactions", &sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				count = stmt.ColumnInt64(0)
				return nil
			},
		})
	})
	if err != nil {
		return 0, fmt.Errorf("ledger store: count: %w", err)
	}
	return count, nil
}

// DumpRecord returns the CBOR diagnostic notation of a stored
// transaction, or "" if hash is unknown.
func (s *Store) DumpRecord(ctx context.Context, hash string) (string, error) {
	var diagnostic string
	err := s.pool.Read(ctx, func(conn *sqlite.Conn) error {
		return sqlitex.Execute(conn, "SELECT record FROM transactions WHERE hash = ?", &sqlitex.ExecOptions{
			Args: []any{hash},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				record := make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, record)
				var err error
				diagnostic, err = codec.Diagnose(record)
				return err
			},
		})
	})
	if err != nil {
		return "", fmt.Errorf("ledger store: dump %s: %w", hash, err)
	}
	return diagnostic, nil
}
