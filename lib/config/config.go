// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the file Load reads.
const EnvironmentVariable = "ION_CONFIG"

// Config is the complete configuration of an Ion participant or ledger
// node. Fields a binary does not use are ignored by it.
type Config struct {
	// Prefix is the application namespace. Participants with different
	// prefixes never see each other.
	Prefix string `yaml:"prefix" json:"prefix"`

	// EncryptionKey is the shared secret. EncryptionKeyFile, when set,
	// takes precedence and is read by the binary at startup.
	EncryptionKey     string `yaml:"encryption_key" json:"encryption_key"`
	EncryptionKeyFile string `yaml:"encryption_key_file" json:"encryption_key_file"`

	// MyTag identifies this participant among the others.
	MyTag string `yaml:"my_tag" json:"my_tag"`

	Depth              int `yaml:"depth" json:"depth"`
	MinWeightMagnitude int `yaml:"min_weight_magnitude" json:"min_weight_magnitude"`

	AddressWindowSeconds int `yaml:"address_window_seconds" json:"address_window_seconds"`
	DebounceMS           int `yaml:"debounce_ms" json:"debounce_ms"`
	PollIntervalMS       int `yaml:"poll_interval_ms" json:"poll_interval_ms"`
	ActivePollIntervalMS int `yaml:"active_poll_interval_ms" json:"active_poll_interval_ms"`

	// Cipher is "xchacha20poly1305" or "age".
	Cipher string `yaml:"cipher" json:"cipher"`

	// Compression is "zstd", "lz4" or "none".
	Compression string `yaml:"compression" json:"compression"`

	Ledger LedgerConfig `yaml:"ledger" json:"ledger"`
	ICE    ICEConfig    `yaml:"ice" json:"ice"`
	Log    LogConfig    `yaml:"log" json:"log"`
}

// LedgerConfig selects the ledger a participant talks to, or the
// database a ledger node serves.
type LedgerConfig struct {
	// URL of a ledger node's command API. Empty means use Database
	// directly.
	URL string `yaml:"url" json:"url"`

	// Database is a SQLite path for a local ledger.
	Database string `yaml:"database" json:"database"`

	// Listen is the ledger node's HTTP address.
	Listen string `yaml:"listen" json:"listen"`
}

// ICEConfig lists the STUN/TURN servers handed to WebRTC. Empty means
// the built-in public STUN servers.
type ICEConfig struct {
	Servers []ICEServer `yaml:"servers" json:"servers"`
}

// ICEServer is one STUN or TURN entry.
type ICEServer struct {
	URLs       []string `yaml:"urls" json:"urls"`
	Username   string   `yaml:"username" json:"username"`
	Credential string   `yaml:"credential" json:"credential"`
}

// LogConfig configures lib/logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" json:"level"`

	// Format is text, json or auto (text on a terminal).
	Format string `yaml:"format" json:"format"`
}

// Default returns the configuration every file is merged over.
func Default() *Config {
	return &Config{
		Depth:                5,
		MinWeightMagnitude:   9,
		AddressWindowSeconds: 60,
		DebounceMS:           1000,
		PollIntervalMS:       3000,
		ActivePollIntervalMS: 500,
		Cipher:               "xchacha20poly1305",
		Compression:          "zstd",
		Ledger:               LedgerConfig{Listen: "127.0.0.1:14265"},
		Log:                  LogConfig{Level: "info", Format: "auto"},
	}
}

// Load reads the file named by ION_CONFIG.
func Load() (*Config, error) {
	path := os.Getenv(EnvironmentVariable)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; set it to the path of your config file, or use --config", EnvironmentVariable)
	}
	return LoadFile(path)
}

// LoadFile reads one configuration file over Default and expands
// variables. It does not validate.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	cfg.expandVariables()
	return cfg, nil
}

// Validate checks the fields every participant needs. Ledger node
// binaries call ValidateNode instead.
func (c *Config) Validate() error {
	var errs []error
	if c.Prefix == "" {
		errs = append(errs, errors.New("prefix is required"))
	}
	if c.EncryptionKey == "" && c.EncryptionKeyFile == "" {
		errs = append(errs, errors.New("encryption_key or encryption_key_file is required"))
	}
	if c.MyTag == "" {
		errs = append(errs, errors.New("my_tag is required"))
	}
	if c.Ledger.URL == "" && c.Ledger.Database == "" {
		errs = append(errs, errors.New("ledger.url or ledger.database is required"))
	}
	errs = append(errs, c.validateTuning()...)
	return errors.Join(errs...)
}

// ValidateNode checks the fields a ledger node needs.
func (c *Config) ValidateNode() error {
	var errs []error
	if c.Ledger.Database == "" {
		errs = append(errs, errors.New("ledger.database is required"))
	}
	if c.Ledger.Listen == "" {
		errs = append(errs, errors.New("ledger.listen is required"))
	}
	errs = append(errs, c.validateLog()...)
	return errors.Join(errs...)
}

func (c *Config) validateTuning() []error {
	var errs []error
	positive := map[string]int{
		"depth":                   c.Depth,
		"min_weight_magnitude":    c.MinWeightMagnitude,
		"address_window_seconds":  c.AddressWindowSeconds,
		"debounce_ms":             c.DebounceMS,
		"poll_interval_ms":        c.PollIntervalMS,
		"active_poll_interval_ms": c.ActivePollIntervalMS,
	}
	for _, name := range slices.Sorted(maps.Keys(positive)) {
		if positive[name] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, positive[name]))
		}
	}
	if !slices.Contains([]string{"", "xchacha20poly1305", "age"}, c.Cipher) {
		errs = append(errs, fmt.Errorf("cipher must be xchacha20poly1305 or age, got %q", c.Cipher))
	}
	if !slices.Contains([]string{"", "zstd", "lz4", "none"}, c.Compression) {
		errs = append(errs, fmt.Errorf("compression must be zstd, lz4 or none, got %q", c.Compression))
	}
	for i, server := range c.ICE.Servers {
		if len(server.URLs) == 0 {
			errs = append(errs, fmt.Errorf("ice.servers[%d].urls is empty", i))
		}
	}
	return append(errs, c.validateLog()...)
}

func (c *Config) validateLog() []error {
	var errs []error
	if !slices.Contains([]string{"", "debug", "info", "warn", "error"}, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	if !slices.Contains([]string{"", "auto", "text", "json"}, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be auto, text or json, got %q", c.Log.Format))
	}
	return errs
}

// AddressWindow returns AddressWindowSeconds as a duration.
func (c *Config) AddressWindow() time.Duration {
	return time.Duration(c.AddressWindowSeconds) * time.Second
}

// Debounce returns DebounceMS as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// PollInterval returns PollIntervalMS as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// ActivePollInterval returns ActivePollIntervalMS as a duration.
func (c *Config) ActivePollInterval() time.Duration {
	return time.Duration(c.ActivePollIntervalMS) * time.Millisecond
}

func (c *Config) expandVariables() {
	for _, field := range []*string{
		&c.Prefix, &c.EncryptionKey, &c.EncryptionKeyFile, &c.MyTag,
		&c.Ledger.URL, &c.Ledger.Database, &c.Ledger.Listen,
	} {
		*field = expandVars(*field)
	}
	for i := range c.ICE.Servers {
		c.ICE.Servers[i].Username = expandVars(c.ICE.Servers[i].Username)
		c.ICE.Servers[i].Credential = expandVars(c.ICE.Servers[i].Credential)
	}
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. An unset or empty
// variable with no default expands to the empty string.
func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		return parts[2]
	})
}
