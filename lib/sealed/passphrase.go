// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"fmt"
	"io"

	"filippo.io/age"

	"github.com/ion-signal/ion/lib/secret"
)

// DefaultWorkFactor is the scrypt log2(N) used when sealing. age's own
// default (18) costs about a second per message, too slow for bursts
// of ICE candidates.
const DefaultWorkFactor = 15

// Passphrase is the age scrypt cipher.
type Passphrase struct {
	passphrase *secret.Buffer
	workFactor int
}

// NewPassphrase copies sharedKey so the cipher owns its own buffer.
func NewPassphrase(sharedKey *secret.Buffer, workFactor int) (*Passphrase, error) {
	if workFactor <= 0 || workFactor > 30 {
		return nil, fmt.Errorf("scrypt work factor %d out of range", workFactor)
	}
	owned, err := secret.NewFromBytes(bytes.Clone(sharedKey.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("protecting passphrase: %w", err)
	}
	return &Passphrase{passphrase: owned, workFactor: workFactor}, nil
}

// Seal encrypts plaintext to the scrypt recipient.
func (p *Passphrase) Seal(plaintext []byte) ([]byte, error) {
	recipient, err := age.NewScryptRecipient(p.passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	recipient.SetWorkFactor(p.workFactor)

	var output bytes.Buffer
	writer, err := age.Encrypt(&output, recipient)
	if err != nil {
		return nil, fmt.Errorf("creating age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext to age encryptor: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalizing age encryption: %w", err)
	}
	return output.Bytes(), nil
}

// Open decrypts an age payload. Payloads sealed with a work factor
// above this cipher's are rejected, so a hostile sender cannot make
// every receiver burn seconds of CPU.
func (p *Passphrase) Open(ciphertext []byte) ([]byte, error) {
	identity, err := age.NewScryptIdentity(p.passphrase.String())
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	identity.SetMaxWorkFactor(p.workFactor)

	reader, err := age.Decrypt(bytes.NewReader(ciphertext), identity)
	if err != nil {
		return nil, fmt.Errorf("decrypting age payload: %w", err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted payload: %w", err)
	}
	return plaintext, nil
}

// Close releases the passphrase copy.
func (p *Passphrase) Close() error {
	return p.passphrase.Close()
}
