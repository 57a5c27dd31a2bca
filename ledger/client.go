// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ion-signal/ion/lib/netutil"
)

// ClientConfig holds configuration for NewClient.
type ClientConfig struct {
	// URL is the ledger node's command endpoint, for example
	// "http://localhost:14265".
	URL string

	// HTTPClient defaults to a client with a 30 second timeout.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client is a Gateway backed by a remote ledger node.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("ledger: URL is required")
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("ledger: invalid URL %q: %w", cfg.URL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("ledger: URL %q must be http or https", cfg.URL)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{url: cfg.URL, httpClient: httpClient, logger: logger}, nil
}

// NodeInfo reports what the node is running. ion-chat calls it once at
// startup to fail fast on a wrong URL.
func (c *Client) NodeInfo(ctx context.Context) (*NodeInfo, error) {
	var info NodeInfo
	if err := c.do(ctx, commandRequest{Command: CommandGetNodeInfo}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// FindTransactions implements Gateway.
func (c *Client) FindTransactions(ctx context.Context, addresses []string) ([]TxRef, error) {
	var response findTransactionsResponse
	err := c.do(ctx, commandRequest{Command: CommandFindTransactions, Addresses: addresses}, &response)
	if err != nil {
		return nil, err
	}
	return response.Transactions, nil
}

// GetBundle implements Gateway.
func (c *Client) GetBundle(ctx context.Context, hash string) ([]Transaction, error) {
	var response getBundleResponse
	if err := c.do(ctx, commandRequest{Command: CommandGetBundle, Transaction: hash}, &response); err != nil {
		return nil, err
	}
	return response.Bundle, nil
}

// SendTransfer implements Gateway.
func (c *Client) SendTransfer(ctx context.Context, seed string, depth, minWeightMagnitude int, transfers []Transfer) (*SendResult, error) {
	var result SendResult
	err := c.do(ctx, commandRequest{
		Command:            CommandSendTransfer,
		Seed:               seed,
		Depth:              depth,
		MinWeightMagnitude: minWeightMagnitude,
		Transfers:          transfers,
	}, &result)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("transfer sent", "bundle", result.Bundle, "transactions", len(result.Transactions))
	return &result, nil
}

// CloseIdleConnections drops pooled connections, for use after a
// network change.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// do posts one command and decodes a 2xx response into result. Any
// other status becomes a *NodeError.
func (c *Client) do(ctx context.Context, command commandRequest, result any) error {
	body, err := json.Marshal(command)
	if err != nil {
		return fmt.Errorf("ledger: encoding %s: %w", command.Command, err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("ledger: creating %s request: %w", command.Command, err)
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set(APIVersionHeader, APIVersion)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("ledger: %s: %w", command.Command, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		nodeErr := &NodeError{Command: command.Command, StatusCode: response.StatusCode}
		raw := netutil.ErrorBody(response.Body)
		if json.Unmarshal([]byte(raw), nodeErr) != nil || nodeErr.Message == "" {
			nodeErr.Message = raw
		}
		return nodeErr
	}
	if err := netutil.DecodeResponse(response.Body, result); err != nil {
		return fmt.Errorf("ledger: decoding %s response: %w", command.Command, err)
	}
	return nil
}
