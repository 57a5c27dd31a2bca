// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/zeebo/blake3"

	"github.com/ion-signal/ion/lib/trytes"
)

// BuildBundle validates transfers and lays them out as the
// transactions of one bundle stamped with timestamp. The seed makes
// the bundle hash unique even when two senders submit identical
// transfers in the same millisecond.
func BuildBundle(seed string, transfers []Transfer, timestamp time.Time) ([]Transaction, error) {
	if err := validateTransfers(seed, transfers); err != nil {
		return nil, err
	}
	timestamp = timestamp.UTC().Truncate(time.Millisecond)

	var transactions []Transaction
	for _, transfer := range transfers {
		for _, fragment := range fragments(transfer.Message) {
			transactions = append(transactions, Transaction{
				Address:   transfer.Address,
				Tag:       transfer.Tag,
				Value:     transfer.Value,
				Message:   fragment,
				Timestamp: timestamp,
			})
		}
	}

	bundleHash := hashTrytes("bundle", func(hasher *blake3.Hasher) {
		writeField(hasher, seed)
		writeField(hasher, timestamp.Format(time.RFC3339Nano))
		for _, transaction := range transactions {
			writeField(hasher, transaction.Address)
			writeField(hasher, transaction.Tag)
			writeField(hasher, transaction.Message)
		}
	})
	lastIndex := len(transactions) - 1
	for index := range transactions {
		transactions[index].Bundle = bundleHash
		transactions[index].CurrentIndex = index
		transactions[index].LastIndex = lastIndex
		transactions[index].Hash = hashTrytes("transaction", func(hasher *blake3.Hasher) {
			writeField(hasher, bundleHash)
			writeField(hasher, fmt.Sprint(index))
		})
	}
	return transactions, nil
}

// AssembleBundle validates that transactions form one complete bundle
// and reassembles it. Order of the input does not matter.
func AssembleBundle(transactions []Transaction) (Bundle, error) {
	if len(transactions) == 0 {
		return Bundle{}, fmt.Errorf("%w: no transactions", ErrBundleIncomplete)
	}
	sorted := slices.Clone(transactions)
	slices.SortFunc(sorted, func(a, b Transaction) int { return a.CurrentIndex - b.CurrentIndex })

	head := sorted[0]
	if len(sorted) != head.LastIndex+1 {
		return Bundle{}, fmt.Errorf("%w: %s has %d of %d transactions", ErrBundleIncomplete, head.Bundle, len(sorted), head.LastIndex+1)
	}
	var message strings.Builder
	for index, transaction := range sorted {
		if transaction.CurrentIndex != index {
			return Bundle{}, fmt.Errorf("%w: %s missing index %d", ErrBundleIncomplete, head.Bundle, index)
		}
		if transaction.Bundle != head.Bundle || transaction.LastIndex != head.LastIndex {
			return Bundle{}, fmt.Errorf("%w: transaction %s does not belong to %s", ErrBundleIncomplete, transaction.Hash, head.Bundle)
		}
		message.WriteString(transaction.Message)
	}
	return Bundle{
		ID:        head.Bundle,
		Tag:       head.Tag,
		Address:   head.Address,
		Timestamp: head.Timestamp,
		Message:   message.String(),
	}, nil
}

func validateTransfers(seed string, transfers []Transfer) error {
	if seed == "" || !trytes.Valid(seed) {
		return invalidTransfer("seed must be non-empty trytes")
	}
	if len(transfers) == 0 {
		return invalidTransfer("no transfers")
	}
	for index, transfer := range transfers {
		if len(transfer.Address) != AddressLength || !trytes.Valid(transfer.Address) {
			return invalidTransfer("transfer %d: address must be %d trytes", index, AddressLength)
		}
		if transfer.Tag == "" || len(transfer.Tag) > MaxTagLength {
			return invalidTransfer("transfer %d: tag must be 1 to %d bytes", index, MaxTagLength)
		}
		if transfer.Value != 0 {
			return invalidTransfer("transfer %d: only zero-value transfers are supported", index)
		}
		if !trytes.Valid(transfer.Message) {
			return invalidTransfer("transfer %d: message is not trytes", index)
		}
	}
	return nil
}

func validateWeights(depth, minWeightMagnitude int) error {
	if depth <= 0 || minWeightMagnitude <= 0 {
		return invalidTransfer("depth and minWeightMagnitude must be positive, got %d and %d", depth, minWeightMagnitude)
	}
	return nil
}

// fragments splits a message into padded FragmentLength chunks. An
// empty message still occupies one transaction.
func fragments(message string) []string {
	var output []string
	for len(message) > FragmentLength {
		output = append(output, message[:FragmentLength])
		message = message[FragmentLength:]
	}
	return append(output, trytes.Pad(message, FragmentLength))
}

// hashTrytes derives a HashLength tryte string from fields written by
// fill, using BLAKE3 in derive-key mode with a per-purpose context.
func hashTrytes(purpose string, fill func(*blake3.Hasher)) string {
	hasher := blake3.NewDeriveKey("ion 2026 ledger " + purpose + " v1")
	fill(hasher)
	stream := hasher.Digest()

	limit := 256 - 256%len(trytes.Alphabet)
	output := make([]byte, 0, HashLength)
	var block [32]byte
	for len(output) < HashLength {
		stream.Read(block[:])
		for _, value := range block {
			if int(value) >= limit || len(output) == HashLength {
				continue
			}
			output = append(output, trytes.Alphabet[int(value)%len(trytes.Alphabet)])
		}
	}
	return string(output)
}

// writeField writes a length-prefixed field so adjacent fields cannot
// run into each other.
func writeField(hasher *blake3.Hasher, value string) {
	hasher.Write(binary.AppendUvarint(nil, uint64(len(value))))
	hasher.Write([]byte(value))
}
