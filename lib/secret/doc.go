// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds key material outside the Go heap.
//
// The shared encryption key and the symmetric keys derived from it live
// in a [Buffer]: an anonymous mmap region locked into RAM, excluded
// from core dumps, and zeroed on Close. The garbage collector never
// sees the region, so it cannot leave stray copies behind.
package secret
