// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

// The node API is a single POST endpoint taking a JSON object whose
// "command" field selects the operation, in the style of IOTA's node
// API. Every response is a JSON object; failures carry an "error"
// field and a non-2xx status.

// Command names.
const (
	CommandGetNodeInfo      = "getNodeInfo"
	CommandFindTransactions = "findTransactions"
	CommandGetBundle        = "getBundle"
	CommandSendTransfer     = "sendTransfer"
)

// APIVersionHeader is sent on every request and response.
const APIVersionHeader = "X-Ion-API-Version"

// APIVersion is the version of the command API.
const APIVersion = "1"

type commandRequest struct {
	Command string `json:"command"`

	// findTransactions
	Addresses []string `json:"addresses,omitempty"`

	// getBundle
	Transaction string `json:"transaction,omitempty"`

	// sendTransfer
	Seed               string     `json:"seed,omitempty"`
	Depth              int        `json:"depth,omitempty"`
	MinWeightMagnitude int        `json:"minWeightMagnitude,omitempty"`
	Transfers          []Transfer `json:"transfers,omitempty"`
}

// NodeInfo is the getNodeInfo response.
type NodeInfo struct {
	AppName      string `json:"appName"`
	AppVersion   string `json:"appVersion"`
	Transactions int64  `json:"transactions"`
}

type findTransactionsResponse struct {
	Transactions []TxRef `json:"transactions"`
}

type getBundleResponse struct {
	// Bundle is null when the transaction is unknown.
	Bundle []Transaction `json:"bundle"`
}
