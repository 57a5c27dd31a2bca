// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/ion-signal/ion/lib/secret"
)

// SealedVersion is the first byte of every Symmetric ciphertext. It is
// also authenticated as associated data.
const SealedVersion byte = 0x01

// SealedOverhead is the ciphertext expansion of Symmetric.
const SealedOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// HKDF parameters. Changing either breaks interoperability with every
// existing peer.
var (
	hkdfSalt = []byte("ion.sealed.salt.v1")
	hkdfInfo = []byte("ion.sealed.payload.v1")
)

// Symmetric is the XChaCha20-Poly1305 cipher.
type Symmetric struct {
	key *secret.Buffer
}

// NewSymmetric derives the payload key from sharedKey.
func NewSymmetric(sharedKey *secret.Buffer) (*Symmetric, error) {
	reader := hkdf.New(sha256.New, sharedKey.Bytes(), hkdfSalt, hkdfInfo)
	derived := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		secret.Zero(derived)
		return nil, fmt.Errorf("deriving payload key: %w", err)
	}
	key, err := secret.NewFromBytes(derived)
	if err != nil {
		return nil, fmt.Errorf("protecting payload key: %w", err)
	}
	return &Symmetric{key: key}, nil
}

// Seal encrypts plaintext under a fresh random nonce.
func (s *Symmetric) Seal(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}

	output := make([]byte, 1+chacha20poly1305.NonceSizeX, SealedOverhead+len(plaintext))
	output[0] = SealedVersion
	nonce := output[1 : 1+chacha20poly1305.NonceSizeX]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return aead.Seal(output, nonce, plaintext, output[:1]), nil
}

// Open authenticates and decrypts a Seal output.
func (s *Symmetric) Open(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < SealedOverhead {
		return nil, fmt.Errorf("sealed payload is %d bytes, minimum is %d", len(ciphertext), SealedOverhead)
	}
	if ciphertext[0] != SealedVersion {
		return nil, fmt.Errorf("sealed payload version %d is not supported", ciphertext[0])
	}

	aead, err := chacha20poly1305.NewX(s.key.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating XChaCha20-Poly1305 cipher: %w", err)
	}
	nonce := ciphertext[1 : 1+chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, ciphertext[1+chacha20poly1305.NonceSizeX:], ciphertext[:1])
	if err != nil {
		return nil, fmt.Errorf("opening sealed payload (wrong key or tampered data): %w", err)
	}
	return plaintext, nil
}

// Close releases the derived key.
func (s *Symmetric) Close() error {
	return s.key.Close()
}
