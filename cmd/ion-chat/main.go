// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

// ion-chat is a line-oriented chat between participants that find each
// other through a shared ledger. Every participant uses the same
// prefix and encryption key; each has its own tag.
//
// Lines typed on stdin are broadcast to every connected participant.
// "/to TAG text" sends to one participant, "/peers" lists sessions,
// "/reset" drops every session and announces this participant again,
// and "/quit" exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/ion-signal/ion/ledger"
	"github.com/ion-signal/ion/lib/compress"
	"github.com/ion-signal/ion/lib/config"
	"github.com/ion-signal/ion/lib/logging"
	"github.com/ion-signal/ion/lib/process"
	"github.com/ion-signal/ion/lib/sealed"
	"github.com/ion-signal/ion/lib/secret"
	"github.com/ion-signal/ion/lib/version"
	"github.com/ion-signal/ion/rendezvous"
	"github.com/ion-signal/ion/transport"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		tag         string
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("ion-chat", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "configuration file (default: $"+config.EnvironmentVariable+")")
	flagSet.StringVar(&tag, "tag", "", "participant tag, overriding my_tag from the configuration")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if showVersion {
		fmt.Printf("ion-chat %s\n", version.Full())
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if tag != "" {
		cfg.MyTag = tag
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}

	ctx, stop := process.SignalContext(context.Background())
	defer stop()

	key, err := readKey(cfg)
	if err != nil {
		return err
	}
	defer key.Close()

	codec, err := openCodec(cfg, key)
	if err != nil {
		return err
	}
	defer codec.Close()

	gateway, closeGateway, err := openLedger(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeGateway()

	engine, err := rendezvous.New(rendezvous.Config{
		Prefix:             cfg.Prefix,
		KeyBuffer:          key,
		MyTag:              cfg.MyTag,
		Depth:              cfg.Depth,
		MinWeightMagnitude: cfg.MinWeightMagnitude,
		AddressWindow:      cfg.AddressWindow(),
		Debounce:           cfg.Debounce(),
		PollInterval:       cfg.PollInterval(),
		ActivePollInterval: cfg.ActivePollInterval(),
		Ledger:             gateway,
		Transport: transport.NewWebRTC(transport.WebRTCConfig{
			ICE:    transport.ICEConfigFromConfig(cfg.ICE),
			Logger: logger.With("component", "webrtc"),
		}),
		Codec:  codec,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	defer engine.Close()

	color, prompt := outputModes(term.IsTerminal(int(os.Stdin.Fd())), term.IsTerminal(int(os.Stdout.Fd())))
	room := newChat(engine, os.Stdout, newRenderer(color), prompt)
	unsubscribe := engine.Subscribe(room.show)
	defer unsubscribe()

	if err := engine.Connect(ctx); err != nil {
		// The poll loop is running; others can still find us through
		// their own tickets.
		logger.Warn("ticket not announced", "error", err)
	}
	logger.Info("joined", "tag", cfg.MyTag, "prefix", cfg.Prefix)

	return room.run(ctx, os.Stdin)
}

// outputModes decides colour from where events are written and shows
// the prompt only when a person is typing into a terminal that also
// displays the output.
func outputModes(stdinTerminal, stdoutTerminal bool) (color, prompt bool) {
	return stdoutTerminal, stdinTerminal && stdoutTerminal
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// readKey returns the shared key from encryption_key_file or
// encryption_key.
func readKey(cfg *config.Config) (*secret.Buffer, error) {
	if cfg.EncryptionKeyFile != "" {
		key, err := secret.ReadKeyFile(cfg.EncryptionKeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading encryption key: %w", err)
		}
		return key, nil
	}
	return secret.NewFromString(cfg.EncryptionKey)
}

func openCodec(cfg *config.Config, key *secret.Buffer) (*rendezvous.PayloadCodec, error) {
	cipher, err := sealed.ParseKind(cfg.Cipher)
	if err != nil {
		return nil, err
	}
	compression, err := compress.ParseTag(cfg.Compression)
	if err != nil {
		return nil, err
	}
	return rendezvous.NewPayloadCodec(rendezvous.CodecOptions{
		Key:         key,
		Cipher:      cipher,
		Compression: compression,
	})
}

// openLedger connects to the configured node, or opens a local
// database when no URL is set.
func openLedger(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ledger.Gateway, func(), error) {
	if cfg.Ledger.URL == "" {
		store, err := ledger.OpenStore(ledger.StoreConfig{
			Path:   cfg.Ledger.Database,
			Logger: logger.With("component", "ledger"),
		})
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}

	client, err := ledger.NewClient(ledger.ClientConfig{
		URL:    cfg.Ledger.URL,
		Logger: logger.With("component", "ledger"),
	})
	if err != nil {
		return nil, nil, err
	}
	info, err := client.NodeInfo(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("contacting ledger node %s: %w", cfg.Ledger.URL, err)
	}
	logger.Info("ledger node reachable", "url", cfg.Ledger.URL, "version", info.AppVersion, "transactions", info.Transactions)
	return client, client.CloseIdleConnections, nil
}

func printHelp(flagSet *pflag.FlagSet) {
	printUsage(os.Stderr)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `ion-chat finds other participants through a shared ledger and chats
with them over WebRTC data channels.

Usage:
  ion-chat [flags]

Commands typed at the prompt:
  text            send text to every connected participant
  /to TAG text    send text to one participant
  /peers          list sessions
  /reset          close every session and announce again
  /quit           leave

Flags:
`)
}
