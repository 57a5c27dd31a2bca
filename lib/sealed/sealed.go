// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"fmt"

	"github.com/ion-signal/ion/lib/secret"
)

// Kind names a cipher in configuration.
type Kind string

const (
	// KindSymmetric selects XChaCha20-Poly1305 under an HKDF key.
	KindSymmetric Kind = "xchacha20poly1305"

	// KindPassphrase selects age with an scrypt recipient.
	KindPassphrase Kind = "age"
)

// Cipher seals and opens payloads under one shared key.
type Cipher interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(ciphertext []byte) ([]byte, error)
	Close() error
}

// ParseKind validates a configuration name. The empty string selects
// KindSymmetric.
func ParseKind(name string) (Kind, error) {
	switch Kind(name) {
	case "", KindSymmetric:
		return KindSymmetric, nil
	case KindPassphrase:
		return KindPassphrase, nil
	default:
		return "", fmt.Errorf("unknown cipher %q", name)
	}
}

// New builds a cipher of the given kind. The shared key is borrowed;
// the caller still closes it.
func New(kind Kind, sharedKey *secret.Buffer) (Cipher, error) {
	switch kind {
	case "", KindSymmetric:
		return NewSymmetric(sharedKey)
	case KindPassphrase:
		return NewPassphrase(sharedKey, DefaultWorkFactor)
	default:
		return nil, fmt.Errorf("unknown cipher %q", kind)
	}
}
