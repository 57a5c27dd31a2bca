// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package ledger_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ion-signal/ion/ledger"
	"github.com/ion-signal/ion/lib/clock"
)

var (
	seed     = strings.Repeat("S", 81)
	addressA = strings.Repeat("A", 81)
	addressB = strings.Repeat("B", 81)
	epoch    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

// gateways returns one of every Gateway implementation, all driven by
// the same fake clock.
func gateways(t *testing.T) map[string]ledger.Gateway {
	t.Helper()
	fake := clock.Fake(epoch)

	store, err := ledger.OpenStore(ledger.StoreConfig{
		Path:  filepath.Join(t.TempDir(), "ledger.db"),
		Clock: fake,
	})
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	server := httptest.NewServer(ledger.NewHandler(ledger.NewMemory(fake), nil))
	t.Cleanup(server.Close)
	client, err := ledger.NewClient(ledger.ClientConfig{URL: server.URL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	return map[string]ledger.Gateway{
		"memory": ledger.NewMemory(fake),
		"store":  store,
		"client": client,
	}
}

func TestGatewaySendFindFetch(t *testing.T) {
	ctx := context.Background()
	for name, gateway := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			message := strings.Repeat("M", ledger.FragmentLength+10)
			result, err := gateway.SendTransfer(ctx, seed, 5, 9, []ledger.Transfer{
				{Address: addressA, Tag: "alice", Message: message},
			})
			if err != nil {
				t.Fatalf("SendTransfer: %v", err)
			}
			if len(result.Transactions) != 2 {
				t.Fatalf("sent %d transactions, want 2", len(result.Transactions))
			}
			if _, err := gateway.SendTransfer(ctx, seed, 5, 9, []ledger.Transfer{
				{Address: addressB, Tag: "bob", Message: "OTHER"},
			}); err != nil {
				t.Fatalf("SendTransfer: %v", err)
			}

			refs, err := gateway.FindTransactions(ctx, []string{addressA})
			if err != nil {
				t.Fatalf("FindTransactions: %v", err)
			}
			if len(refs) != 2 {
				t.Fatalf("found %d refs at A, want 2", len(refs))
			}
			var head ledger.TxRef
			for _, ref := range refs {
				if ref.IsHead() {
					head = ref
				}
				if ref.Bundle != result.Bundle {
					t.Errorf("ref bundle %s, want %s", ref.Bundle, result.Bundle)
				}
			}

			transactions, err := gateway.GetBundle(ctx, head.Hash)
			if err != nil {
				t.Fatalf("GetBundle: %v", err)
			}
			bundle, err := ledger.AssembleBundle(transactions)
			if err != nil {
				t.Fatalf("AssembleBundle: %v", err)
			}
			if !strings.HasPrefix(bundle.Message, message) {
				t.Error("bundle message does not start with the sent message")
			}
			if bundle.Tag != "alice" || !bundle.Timestamp.Equal(epoch) {
				t.Errorf("bundle tag/timestamp = %q/%v", bundle.Tag, bundle.Timestamp)
			}

			both, err := gateway.FindTransactions(ctx, []string{addressA, addressB})
			if err != nil {
				t.Fatalf("FindTransactions: %v", err)
			}
			if len(both) != 3 {
				t.Errorf("found %d refs at A and B, want 3", len(both))
			}
		})
	}
}

func TestGatewayUnknownBundleIsNil(t *testing.T) {
	for name, gateway := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			transactions, err := gateway.GetBundle(context.Background(), strings.Repeat("X", 81))
			if err != nil {
				t.Fatalf("GetBundle: %v", err)
			}
			if transactions != nil {
				t.Errorf("got %d transactions for an unknown hash", len(transactions))
			}
		})
	}
}

func TestGatewayRejectsInvalidTransfers(t *testing.T) {
	for name, gateway := range gateways(t) {
		t.Run(name, func(t *testing.T) {
			_, err := gateway.SendTransfer(context.Background(), seed, 0, 9, []ledger.Transfer{
				{Address: addressA, Tag: "alice", Message: "A"},
			})
			if err == nil {
				t.Fatal("depth 0 accepted")
			}
			_, err = gateway.SendTransfer(context.Background(), seed, 5, 9, []ledger.Transfer{
				{Address: "SHORT", Tag: "alice"},
			})
			if err == nil {
				t.Fatal("short address accepted")
			}
			if name == "client" {
				if !ledger.IsNodeError(err, http.StatusBadRequest) {
					t.Errorf("client error = %v, want 400 NodeError", err)
				}
			} else if !errors.Is(err, ledger.ErrInvalidTransfer) {
				t.Errorf("error = %v, want ErrInvalidTransfer", err)
			}
		})
	}
}

func TestMemoryFailureInjection(t *testing.T) {
	ctx := context.Background()
	memory := ledger.NewMemory(clock.Fake(epoch))
	failure := errors.New("node unreachable")

	memory.FailSend(failure)
	if _, err := memory.SendTransfer(ctx, seed, 5, 9, []ledger.Transfer{{Address: addressA, Tag: "a"}}); !errors.Is(err, failure) {
		t.Errorf("SendTransfer error = %v", err)
	}
	memory.FailSend(nil)
	if _, err := memory.SendTransfer(ctx, seed, 5, 9, []ledger.Transfer{{Address: addressA, Tag: "a"}}); err != nil {
		t.Errorf("SendTransfer after clearing failure: %v", err)
	}

	memory.FailFind(failure)
	if _, err := memory.FindTransactions(ctx, []string{addressA}); !errors.Is(err, failure) {
		t.Errorf("FindTransactions error = %v", err)
	}
	if memory.FindCount() != 1 {
		t.Errorf("FindCount = %d, want 1", memory.FindCount())
	}

	if got := len(memory.BundlesAt(addressA)); got != 1 {
		t.Errorf("BundlesAt = %d bundles, want 1", got)
	}
}

func TestMemoryAttachKeepsTimestamps(t *testing.T) {
	memory := ledger.NewMemory(clock.Fake(epoch))
	past := epoch.Add(-time.Hour)
	transactions, err := ledger.BuildBundle(seed, []ledger.Transfer{{Address: addressA, Tag: "old"}}, past)
	if err != nil {
		t.Fatal(err)
	}
	memory.Attach(transactions)
	memory.Attach(transactions)

	bundles := memory.Bundles()
	if len(bundles) != 1 {
		t.Fatalf("got %d bundles, want 1 after duplicate attach", len(bundles))
	}
	if !bundles[0].Timestamp.Equal(past) {
		t.Errorf("timestamp = %v, want %v", bundles[0].Timestamp, past)
	}
}

func TestStoreCountAndDump(t *testing.T) {
	ctx := context.Background()
	store, err := ledger.OpenStore(ledger.StoreConfig{Path: filepath.Join(t.TempDir(), "ledger.db"), Clock: clock.Fake(epoch)})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	result, err := store.SendTransfer(ctx, seed, 5, 9, []ledger.Transfer{{Address: addressA, Tag: "alice", Message: "ABC"}})
	if err != nil {
		t.Fatal(err)
	}
	// Re-attaching the same transactions is a no-op.
	if err := store.Attach(ctx, result.Transactions); err != nil {
		t.Fatal(err)
	}
	count, err := store.Count(ctx)
	if err != nil || count != 1 {
		t.Errorf("Count = %d, %v; want 1", count, err)
	}

	diagnostic, err := store.DumpRecord(ctx, result.Transactions[0].Hash)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(diagnostic, `"alice"`) {
		t.Errorf("diagnostic %q does not contain the tag", diagnostic)
	}
}

func TestClientNodeInfoAndErrors(t *testing.T) {
	ctx := context.Background()
	store, err := ledger.OpenStore(ledger.StoreConfig{Path: filepath.Join(t.TempDir(), "ledger.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	server := httptest.NewServer(ledger.NewHandler(store, nil))
	defer server.Close()

	client, err := ledger.NewClient(ledger.ClientConfig{URL: server.URL})
	if err != nil {
		t.Fatal(err)
	}
	info, err := client.NodeInfo(ctx)
	if err != nil {
		t.Fatalf("NodeInfo: %v", err)
	}
	if info.AppName != "ion-ledger" || info.Transactions != 0 {
		t.Errorf("info = %+v", info)
	}

	response, err := http.Get(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	response.Body.Close()
	if response.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d", response.StatusCode)
	}
	if response.Header.Get(ledger.APIVersionHeader) != ledger.APIVersion {
		t.Error("API version header missing")
	}

	response, err = http.Post(server.URL, "application/json", strings.NewReader(`{"command":"attachToTangle"}`))
	if err != nil {
		t.Fatal(err)
	}
	response.Body.Close()
	if response.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown command status = %d", response.StatusCode)
	}

	if _, err := ledger.NewClient(ledger.ClientConfig{URL: "ftp://node"}); err == nil {
		t.Error("NewClient accepted a non-HTTP URL")
	}
}
