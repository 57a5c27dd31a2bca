// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the configuration file shared by Ion's
// binaries.
//
// The file is named by the ION_CONFIG environment variable ([Load]) or
// a --config flag ([LoadFile]). There is no discovery and no fallback
// search path.
//
// Files ending in .json or .jsonc are parsed as JSON with comments and
// trailing commas; everything else is parsed as YAML. After parsing,
// ${VAR} and ${VAR:-default} patterns are expanded in string fields so
// the shared encryption key can live in the environment rather than on
// disk:
//
//	prefix: ION9DEMO
//	encryption_key: ${ION_KEY}
//	my_tag: ${USER}
//	ledger:
//	  url: http://localhost:14265
//
// [Config.Validate] reports every problem at once.
package config
