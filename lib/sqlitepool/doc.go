// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package sqlitepool is the SQLite connection pool behind the ledger
// node's bundle store.
//
// It wraps zombiezen.com/go/sqlite's sqlitex.Pool. Every connection is
// prepared with the same pragmas:
//
//   - journal_mode=WAL so poll queries never wait on transfer writes
//   - synchronous=NORMAL: a process crash loses nothing committed
//   - busy_timeout=5000
//   - cache_size=-8192 (8 MB per connection)
//   - temp_store=MEMORY
//
// Callers either Take/Put connections themselves or use [Pool.Read]
// and [Pool.Write], which borrow a connection for one function call.
// Write runs the function inside an IMMEDIATE transaction and rolls
// back if it returns an error.
package sqlitepool
