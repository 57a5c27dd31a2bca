// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides the channel helpers Ion's tests use to
// wait on asynchronous events.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// pattern so tests never call time.After directly. [RequireQuiet]
// asserts that nothing arrives within a short window. These helpers are
// the only place tests touch the wall clock; everything time-driven in
// the engine runs on a fake clock.
package testutil
