// Copyright (C) 2024-2026, Tetherflow, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package isorpc

import (
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultRPCPath is appended to endpoint URLs configured without a path.
const DefaultRPCPath = "/internal_api/v1/rpcapi"

// Mode says where eligible operations execute.
type Mode uint8

const (
	// Local executes operations in-process, against the database directly.
	Local Mode = iota
	// Remote forwards operations to the internal API endpoint.
	Remote
)

func (m Mode) String() string {
	switch m {
	case Local:
		return "local"
	case Remote:
		return "remote"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

type gateState struct {
	mode     Mode
	endpoint string
}

// Gate holds the process-wide routing decision: whether eligible operations
// run in-process or are forwarded, and the resolved endpoint when they are.
// Construct one at bootstrap and hand it to NewInvoker. The first reader
// resolves the mode from configuration unless a Force method decided it
// earlier; afterwards the gate is read-only.
type Gate struct {
	cfg   Config
	log   zerolog.Logger
	state atomic.Pointer[gateState]
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateLogger overrides the gate's logger.
func WithGateLogger(l zerolog.Logger) GateOption {
	return func(g *Gate) { g.log = l }
}

// NewGate returns an unresolved gate over cfg. Resolution happens on first
// read or through ForceLocal/ForceRemote.
func NewGate(cfg Config, opts ...GateOption) *Gate {
	g := &Gate{cfg: cfg, log: log.Logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ForceLocal pins the gate to Local regardless of configuration. Trusted
// components that own direct database access (the scheduler, the internal API
// server itself) call this before anything reads the gate. Idempotent.
func (g *Gate) ForceLocal(reason string) {
	g.state.Store(&gateState{mode: Local})
	if isolationSupported {
		g.log.Info().Str("reason", reason).Msg("forcing direct database access")
	}
}

// ForceRemote pins the gate to Remote with the given endpoint, validating and
// resolving it the same way lazy initialization would. Used by components
// deployed without database credentials.
func (g *Gate) ForceRemote(endpoint string) error {
	resolved, err := resolveEndpoint(endpoint)
	if err != nil {
		return err
	}
	g.state.Store(&gateState{mode: Remote, endpoint: resolved})
	g.log.Info().Str("endpoint", resolved).Msg("forcing internal api access")
	return nil
}

// IsRemote reports whether calls are forwarded, resolving the mode from
// configuration on first use.
func (g *Gate) IsRemote() (bool, error) {
	s, err := g.resolve()
	if err != nil {
		return false, err
	}
	return s.mode == Remote, nil
}

// Endpoint returns the resolved endpoint URL. It is empty under Local mode.
func (g *Gate) Endpoint() (string, error) {
	s, err := g.resolve()
	if err != nil {
		return "", err
	}
	return s.endpoint, nil
}

// resolve computes the state from configuration once. Concurrent first readers
// may compute redundantly; the value is deterministic, so every candidate
// write carries the same state and whichever lands is correct.
func (g *Gate) resolve() (*gateState, error) {
	if s := g.state.Load(); s != nil {
		return s, nil
	}
	s, err := stateFromConfig(g.cfg)
	if err != nil {
		return nil, err
	}
	g.state.CompareAndSwap(nil, s)
	return g.state.Load(), nil
}

func stateFromConfig(cfg Config) (*gateState, error) {
	if !cfg.DatabaseAccessIsolation {
		return &gateState{mode: Local}, nil
	}
	if !isolationSupported {
		return nil, &ConfigError{
			Reason: "database_access_isolation is set but this build has no internal api support",
		}
	}
	endpoint, err := resolveEndpoint(cfg.URL)
	if err != nil {
		return nil, err
	}
	return &gateState{mode: Remote, endpoint: endpoint}, nil
}

// resolveEndpoint validates the scheme and applies DefaultRPCPath when the
// configured URL has no path.
func resolveEndpoint(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", &ConfigError{Reason: fmt.Sprintf("internal api url %q: %v", raw, err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &ConfigError{Reason: "internal api url must start with http:// or https://"}
	}
	path := u.Path
	if path == "" || path == "/" {
		path = DefaultRPCPath
	}
	return u.Scheme + "://" + u.Host + path, nil
}
