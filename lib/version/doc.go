// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for Ion binaries.
//
// [GitCommit], [BuildTime] and [Version] may be injected with -ldflags:
//
//	go build -ldflags "-X github.com/ion-signal/ion/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// When they are not, the commit falls back to the VCS stamp the Go
// toolchain embeds in the binary.
package version
