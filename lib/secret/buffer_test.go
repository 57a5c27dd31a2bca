// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewFromBytesZeroesSource(t *testing.T) {
	source := []byte("shared-key")
	buffer, err := NewFromBytes(source)
	if err != nil {
		t.Fatalf("NewFromBytes: %v", err)
	}
	defer buffer.Close()

	if got := buffer.String(); got != "shared-key" {
		t.Errorf("String() = %q, want %q", got, "shared-key")
	}
	for index, value := range source {
		if value != 0 {
			t.Fatalf("source[%d] = %d, want 0", index, value)
		}
	}
}

func TestCloseIsIdempotentAndBlocksReads(t *testing.T) {
	buffer, err := NewFromString("k")
	if err != nil {
		t.Fatalf("NewFromString: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := buffer.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("Bytes after Close did not panic")
		}
	}()
	buffer.Bytes()
}

func TestNewRejectsEmpty(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("New(0) succeeded")
	}
	if _, err := NewFromBytes(nil); err == nil {
		t.Fatal("NewFromBytes(nil) succeeded")
	}
}

func TestReadKeyFileTrims(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	if err := os.WriteFile(path, []byte("  correct horse\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	buffer, err := ReadKeyFile(path)
	if err != nil {
		t.Fatalf("ReadKeyFile: %v", err)
	}
	defer buffer.Close()
	if got := buffer.String(); got != "correct horse" {
		t.Errorf("key = %q, want %q", got, "correct horse")
	}
}

func TestReadKeyFileRejects(t *testing.T) {
	tests := []struct {
		name     string
		contents string
		mode     os.FileMode
	}{
		{"empty", " \n", 0o600},
		{"group readable", "correct horse", 0o640},
		{"world readable", "correct horse", 0o604},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "key")
			if err := os.WriteFile(path, []byte(test.contents), test.mode); err != nil {
				t.Fatal(err)
			}
			// WriteFile is subject to the umask.
			if err := os.Chmod(path, test.mode); err != nil {
				t.Fatal(err)
			}
			if buffer, err := ReadKeyFile(path); err == nil {
				buffer.Close()
				t.Fatal("ReadKeyFile accepted the file")
			}
		})
	}

	if _, err := ReadKeyFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ReadKeyFile accepted a missing file")
	}
}
