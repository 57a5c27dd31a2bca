// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers shared by Ion's
// binaries: reporting an error before the logger exists, and the
// signal-cancelled root context.
package process
