// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bytes"
	"fmt"
	"os"
)

// ReadKeyFile loads a shared key from path. Leading and trailing
// whitespace is not part of the key. The file must not be readable by
// group or others.
func ReadKeyFile(path string) (*Buffer, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	if mode := info.Mode().Perm(); mode&0o077 != 0 {
		return nil, fmt.Errorf("secret: key file %s has mode %04o; restrict it to the owner (chmod 600)", path, mode)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	defer Zero(contents)

	key := bytes.TrimSpace(contents)
	if len(key) == 0 {
		return nil, fmt.Errorf("secret: key file %s is empty", path)
	}
	return NewFromBytes(key)
}
