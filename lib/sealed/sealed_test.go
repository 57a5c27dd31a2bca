// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"testing"

	"github.com/ion-signal/ion/lib/secret"
)

func sharedKey(t *testing.T, value string) *secret.Buffer {
	t.Helper()
	buffer, err := secret.NewFromString(value)
	if err != nil {
		t.Fatalf("NewFromString: %v", err)
	}
	t.Cleanup(func() { buffer.Close() })
	return buffer
}

// testCiphers returns one of each cipher under the same key. The age
// cipher uses a low work factor to keep the test fast.
func testCiphers(t *testing.T, key string) map[Kind]Cipher {
	t.Helper()
	symmetric, err := NewSymmetric(sharedKey(t, key))
	if err != nil {
		t.Fatalf("NewSymmetric: %v", err)
	}
	passphrase, err := NewPassphrase(sharedKey(t, key), 10)
	if err != nil {
		t.Fatalf("NewPassphrase: %v", err)
	}
	t.Cleanup(func() {
		symmetric.Close()
		passphrase.Close()
	})
	return map[Kind]Cipher{KindSymmetric: symmetric, KindPassphrase: passphrase}
}

func TestRoundTrip(t *testing.T) {
	messages := [][]byte{
		{},
		[]byte(`[{"cmd":"ticket","tag":"alice"}]`),
		bytes.Repeat([]byte{0x00, 0xff}, 4096),
	}
	for kind, cipher := range testCiphers(t, "k") {
		for _, message := range messages {
			sealed, err := cipher.Seal(message)
			if err != nil {
				t.Fatalf("%s: Seal: %v", kind, err)
			}
			opened, err := cipher.Open(sealed)
			if err != nil {
				t.Fatalf("%s: Open: %v", kind, err)
			}
			if !bytes.Equal(opened, message) {
				t.Fatalf("%s: round trip mismatch", kind)
			}
		}
	}
}

func TestSealIsRandomized(t *testing.T) {
	for kind, cipher := range testCiphers(t, "k") {
		first, _ := cipher.Seal([]byte("same"))
		second, _ := cipher.Seal([]byte("same"))
		if bytes.Equal(first, second) {
			t.Errorf("%s: two seals of the same plaintext are identical", kind)
		}
	}
}

func TestOpenWithWrongKeyFails(t *testing.T) {
	right := testCiphers(t, "right")
	wrong := testCiphers(t, "wrong")
	for kind, cipher := range right {
		sealed, err := cipher.Seal([]byte("secret offer"))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := wrong[kind].Open(sealed); err == nil {
			t.Errorf("%s: Open with the wrong key succeeded", kind)
		}
	}
}

func TestSymmetricRejectsTampering(t *testing.T) {
	cipher := testCiphers(t, "k")[KindSymmetric]
	sealed, err := cipher.Seal([]byte("offer"))
	if err != nil {
		t.Fatal(err)
	}

	flipped := bytes.Clone(sealed)
	flipped[len(flipped)-1] ^= 0x01
	if _, err := cipher.Open(flipped); err == nil {
		t.Error("Open accepted a modified tag")
	}

	versioned := bytes.Clone(sealed)
	versioned[0] = 0x02
	if _, err := cipher.Open(versioned); err == nil {
		t.Error("Open accepted an unknown version")
	}

	if _, err := cipher.Open(sealed[:SealedOverhead-1]); err == nil {
		t.Error("Open accepted a truncated payload")
	}
}

func TestPassphraseRejectsExpensivePayload(t *testing.T) {
	expensive, err := NewPassphrase(sharedKey(t, "k"), 12)
	if err != nil {
		t.Fatal(err)
	}
	defer expensive.Close()
	cheap, err := NewPassphrase(sharedKey(t, "k"), 10)
	if err != nil {
		t.Fatal(err)
	}
	defer cheap.Close()

	sealed, err := expensive.Seal([]byte("offer"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cheap.Open(sealed); err == nil {
		t.Fatal("Open accepted a payload above its work factor")
	}
}

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{"": KindSymmetric, "xchacha20poly1305": KindSymmetric, "age": KindPassphrase}
	for input, want := range tests {
		got, err := ParseKind(input)
		if err != nil || got != want {
			t.Errorf("ParseKind(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := ParseKind("rot13"); err == nil {
		t.Error("ParseKind accepted an unknown cipher")
	}
}
