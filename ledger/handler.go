// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ion-signal/ion/lib/netutil"
	"github.com/ion-signal/ion/lib/version"
)

// Counter is implemented by gateways that can report their size for
// getNodeInfo. Store implements it.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Handler serves a Gateway over the command API.
type Handler struct {
	gateway Gateway
	logger  *slog.Logger
}

// NewHandler wraps gateway. A nil logger discards.
func NewHandler(gateway Gateway, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{gateway: gateway, logger: logger}
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(APIVersionHeader, APIVersion)
	if r.Method != http.MethodPost {
		h.fail(w, "", http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	var command commandRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, netutil.MaxBodySize))
	if err := decoder.Decode(&command); err != nil {
		h.fail(w, "", http.StatusBadRequest, fmt.Errorf("decoding command: %w", err))
		return
	}

	result, err := h.dispatch(r.Context(), command)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, ErrInvalidTransfer) || errors.Is(err, errUnknownCommand) {
			status = http.StatusBadRequest
		}
		h.fail(w, command.Command, status, err)
		return
	}
	if err := netutil.WriteJSON(w, http.StatusOK, result); err != nil {
		h.logger.Warn("writing response failed", "command", command.Command, "error", err)
	}
}

var errUnknownCommand = errors.New("unknown command")

func (h *Handler) dispatch(ctx context.Context, command commandRequest) (any, error) {
	switch command.Command {
	case CommandGetNodeInfo:
		info := NodeInfo{AppName: "ion-ledger", AppVersion: version.Info()}
		if counter, ok := h.gateway.(Counter); ok {
			count, err := counter.Count(ctx)
			if err != nil {
				return nil, err
			}
			info.Transactions = count
		}
		return info, nil

	case CommandFindTransactions:
		refs, err := h.gateway.FindTransactions(ctx, command.Addresses)
		if err != nil {
			return nil, err
		}
		if refs == nil {
			refs = []TxRef{}
		}
		return findTransactionsResponse{Transactions: refs}, nil

	case CommandGetBundle:
		transactions, err := h.gateway.GetBundle(ctx, command.Transaction)
		if err != nil {
			return nil, err
		}
		return getBundleResponse{Bundle: transactions}, nil

	case CommandSendTransfer:
		result, err := h.gateway.SendTransfer(ctx, command.Seed, command.Depth, command.MinWeightMagnitude, command.Transfers)
		if err != nil {
			return nil, err
		}
		h.logger.Info("transfer attached",
			"bundle", result.Bundle,
			"tag", command.Transfers[0].Tag,
			"transactions", len(result.Transactions),
		)
		return result, nil

	default:
		return nil, fmt.Errorf("%w %q", errUnknownCommand, command.Command)
	}
}

func (h *Handler) fail(w http.ResponseWriter, command string, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.logger.Error("command failed", "command", command, "error", err)
	} else {
		h.logger.Debug("command rejected", "command", command, "status", status, "error", err)
	}
	if writeErr := netutil.WriteJSON(w, status, NodeError{Message: err.Error()}); writeErr != nil {
		h.logger.Warn("writing error response failed", "error", writeErr)
	}
}
