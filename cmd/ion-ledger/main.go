// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// ion-ledger serves a SQLite-backed ledger over the command API that
// ion-chat and rendezvous.Engine speak through ledger.Client. It lets
// participants on one machine or one network rendezvous without a
// public ledger.
//
// With --dump HASH it prints the stored record of one transaction in
// CBOR diagnostic notation and exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/ion-signal/ion/ledger"
	"github.com/ion-signal/ion/lib/config"
	"github.com/ion-signal/ion/lib/logging"
	"github.com/ion-signal/ion/lib/process"
	"github.com/ion-signal/ion/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		listen      string
		database    string
		dump        string
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("ion-ledger", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "configuration file (default: $"+config.EnvironmentVariable+", optional)")
	flagSet.StringVar(&listen, "listen", "", "HTTP listen address, overriding ledger.listen")
	flagSet.StringVar(&database, "database", "", "SQLite database path, overriding ledger.database")
	flagSet.StringVar(&dump, "dump", "", "print the stored record of a transaction hash and exit")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("ion-ledger %s\n", version.Full())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if listen != "" {
		cfg.Ledger.Listen = listen
	}
	if database != "" {
		cfg.Ledger.Database = database
	}
	if err := cfg.ValidateNode(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	store, err := ledger.OpenStore(ledger.StoreConfig{Path: cfg.Ledger.Database, Logger: logger})
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := process.SignalContext(context.Background())
	defer stop()

	if dump != "" {
		record, err := store.DumpRecord(ctx, dump)
		if err != nil {
			return err
		}
		if record == "" {
			return fmt.Errorf("no transaction %s", dump)
		}
		fmt.Println(record)
		return nil
	}
	return serve(ctx, cfg.Ledger.Listen, ledger.NewHandler(store, logger), logger)
}

// loadConfig reads the named file, or $ION_CONFIG when set. With
// neither, flags alone configure the node.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv(config.EnvironmentVariable) != "" {
		return config.Load()
	}
	return config.Default(), nil
}

func serve(ctx context.Context, address string, handler http.Handler, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", address, err)
	}
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(listener) }()
	logger.Info("ledger node listening", "address", listener.Addr().String())

	select {
	case err := <-serveErr:
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	logger.Info("ledger node stopped")
	return nil
}
