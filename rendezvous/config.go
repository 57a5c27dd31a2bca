// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ion-signal/ion/ledger"
	"github.com/ion-signal/ion/lib/clock"
	"github.com/ion-signal/ion/lib/compress"
	"github.com/ion-signal/ion/lib/secret"
	"github.com/ion-signal/ion/lib/sealed"
	"github.com/ion-signal/ion/lib/trytes"
)

// Defaults applied by New for zero Config fields.
const (
	DefaultDepth              = 5
	DefaultMinWeightMagnitude = 9
	DefaultAddressWindow      = 60 * time.Second
	DefaultDebounce           = time.Second
	DefaultPollInterval       = 3 * time.Second
	DefaultActivePollInterval = 500 * time.Millisecond
)

// Config configures an Engine.
type Config struct {
	// Prefix namespaces every address and seed. All participants of a
	// room use the same prefix and key.
	Prefix string

	// Key is the shared secret. It seeds the address schedule and,
	// when Codec is nil, the payload cipher.
	Key string

	// KeyBuffer replaces Key when the secret must not live in a Go
	// string. New copies it into a buffer the engine owns, so the
	// caller may close it once New returns.
	KeyBuffer *secret.Buffer

	// MyTag identifies this participant. At most ledger.MaxTagLength
	// characters from the tryte alphabet.
	MyTag string

	Depth              int
	MinWeightMagnitude int

	AddressWindow      time.Duration
	Debounce           time.Duration
	PollInterval       time.Duration
	ActivePollInterval time.Duration

	Ledger    ledger.Gateway
	Transport PeerTransport

	// Codec encodes outgoing batches. Nil selects a PayloadCodec with
	// the symmetric cipher keyed from Key and zstd compression; the
	// engine then owns and closes it.
	Codec Codec

	Clock  clock.Clock
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Depth == 0 {
		c.Depth = DefaultDepth
	}
	if c.MinWeightMagnitude == 0 {
		c.MinWeightMagnitude = DefaultMinWeightMagnitude
	}
	if c.AddressWindow == 0 {
		c.AddressWindow = DefaultAddressWindow
	}
	if c.Debounce == 0 {
		c.Debounce = DefaultDebounce
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.ActivePollInterval == 0 {
		c.ActivePollInterval = DefaultActivePollInterval
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	return c
}

func (c Config) validate() error {
	var errs []error
	if c.Prefix == "" {
		errs = append(errs, errors.New("prefix is required"))
	}
	switch {
	case c.Key == "" && c.KeyBuffer == nil:
		errs = append(errs, errors.New("key is required"))
	case c.Key != "" && c.KeyBuffer != nil:
		errs = append(errs, errors.New("key and key buffer are mutually exclusive"))
	case c.KeyBuffer != nil && c.KeyBuffer.Len() == 0:
		errs = append(errs, errors.New("key buffer is empty or closed"))
	}
	if c.MyTag == "" {
		errs = append(errs, errors.New("tag is required"))
	} else if err := validateTag(c.MyTag); err != nil {
		errs = append(errs, err)
	}
	if c.Ledger == nil {
		errs = append(errs, errors.New("ledger is required"))
	}
	if c.Transport == nil {
		errs = append(errs, errors.New("transport is required"))
	}
	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"address window", c.AddressWindow},
		{"debounce", c.Debounce},
		{"poll interval", c.PollInterval},
		{"active poll interval", c.ActivePollInterval},
	} {
		if d.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", d.name, d.value))
		}
	}
	if c.AddressWindow > 0 && c.AddressWindow < time.Second {
		errs = append(errs, fmt.Errorf("address window must be at least 1s, got %s", c.AddressWindow))
	}
	return errors.Join(errs...)
}

func validateTag(tag string) error {
	if len(tag) > ledger.MaxTagLength {
		return fmt.Errorf("tag %q longer than %d characters", tag, ledger.MaxTagLength)
	}
	if !trytes.Valid(tag) {
		return fmt.Errorf("tag %q is not trytes; only A-Z and 9 are allowed", tag)
	}
	return nil
}

// ownedKey returns a buffer holding the shared secret that the engine
// closes on Close, independent of the caller's buffer.
func (c Config) ownedKey() (*secret.Buffer, error) {
	if c.KeyBuffer != nil {
		return secret.NewFromBytes(bytes.Clone(c.KeyBuffer.Bytes()))
	}
	return secret.NewFromString(c.Key)
}

func defaultCodec(key *secret.Buffer) (*PayloadCodec, error) {
	return NewPayloadCodec(CodecOptions{
		Key:         key,
		Cipher:      sealed.KindSymmetric,
		Compression: compress.Zstd,
	})
}
