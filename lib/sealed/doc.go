// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed provides the symmetric encryption stage of the
// signaling payload codec.
//
// Every participant holds the same shared encryption key, so both
// ciphers here are keyed by that one secret:
//
//   - [Symmetric] (the default, "xchacha20poly1305") derives a 32-byte
//     key from the shared key with HKDF-SHA256 and seals each payload
//     with XChaCha20-Poly1305 under a random 24-byte nonce:
//
//     [Version: 1 byte] [Nonce: 24 bytes] [Ciphertext+Tag]
//
//   - [Passphrase] ("age") encrypts to an age scrypt recipient. It is
//     much slower per message but stretches a low-entropy passphrase.
//
// Both satisfy the Seal/Open contract the signaling engine expects:
// Open(Seal(m)) == m, and Open fails on any tampering or a wrong key.
package sealed
