// Copyright (C) 2024-2026, Tetherflow, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package isorpc

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// DefaultClockGraceSeconds bounds token validity and absorbs clock skew
// between components when no grace is configured.
const DefaultClockGraceSeconds = 30

// Config is the isolation configuration consumed by the Gate, the signer and
// the invoker factory. Deployments load it from the `[internal_api]` table of
// a TOML file; embedding applications may also fill it directly.
type Config struct {
	// DatabaseAccessIsolation routes eligible operations through the internal
	// API instead of executing them in-process.
	DatabaseAccessIsolation bool `toml:"database_access_isolation"`

	// URL of the internal API endpoint. The scheme must be http or https; an
	// empty or root path is replaced with DefaultRPCPath.
	URL string `toml:"url"`

	// SecretKey signs outbound request tokens and verifies inbound ones.
	SecretKey string `toml:"secret_key"`

	// ClockGraceSeconds is the token validity window in seconds.
	ClockGraceSeconds int `toml:"clock_grace_seconds"`
}

type configFile struct {
	InternalAPI Config `toml:"internal_api"`
}

// LoadConfig reads path as TOML and applies defaults.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var file configFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg := file.InternalAPI
	if cfg.ClockGraceSeconds <= 0 {
		cfg.ClockGraceSeconds = DefaultClockGraceSeconds
	}
	return cfg, nil
}
