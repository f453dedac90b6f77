// Copyright (C) 2024-2026, Tetherflow, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package isorpc routes designated operations either in-process or through a
// signed internal API, so that only one trusted component of a deployment
// needs direct database access.
//
// # Modes
//
// A process decides once, at startup, whether its eligible operations execute
// locally or are forwarded:
//
//	cfg, err := isorpc.LoadConfig("internal_api.toml")
//	gate := isorpc.NewGate(cfg)
//	gate.ForceLocal("scheduler owns the database")   // trusted components only
//
// Components without database credentials either rely on the configured
// isolation flag or pin the endpoint themselves:
//
//	if err := gate.ForceRemote("https://api.internal:9443"); err != nil {
//	    log.Fatal().Err(err).Msg("bad endpoint")
//	}
//
// # Usage
//
// Operations are registered with their in-process handler and the parameters
// that must never leave the process:
//
//	reg := isorpc.NewRegistry()
//	reg.MustRegister(isorpc.Operation{
//	    Name:          "jobs/state.SetJobState",
//	    Handler:       setJobState,
//	    TransportOnly: []string{"session"},
//	})
//
//	inv, err := isorpc.NewInvoker(gate, reg)
//	if err != nil {
//	    log.Fatal().Err(err).Msg("invoker")
//	}
//	result, err := inv.Invoke(ctx, "jobs/state.SetJobState", isorpc.Params{
//	    "job_id":  id,
//	    "state":   "queued",
//	    "session": sess, // stripped before any request is built
//	})
//
// Under Local mode the invoker is indistinguishable from calling the handler
// directly: same result, same error. Under Remote mode each call becomes one
// signed HTTP POST, retried only on connection-establishment failures.
//
// The trusted side serves the same registry:
//
//	srv := isorpc.NewServer(reg, isorpc.SignerFromConfig(cfg))
//	srv.Serve(ctx, ":9443")
//
// # Transport Selection
//
// HTTP is the default transport. Use build tags to enable alternatives:
//
//	go build              # HTTP only (default)
//	go build -tags grpc   # Enable gRPC transport
//
// Either way the process talks to exactly one configured endpoint; the
// transport chooses the protocol, never the peer.
//
// # Architecture
//
// The package separates concerns:
//
//   - gate.go: process-wide Local/Remote decision and endpoint resolution
//   - config.go: TOML configuration surface
//   - registry.go: operation declarations, including transport-only parameters
//   - invoker.go: local and remote Invoker implementations and their factory
//   - client.go: signed HTTP client
//   - retry.go: retry policy and the connection-error predicate
//   - signer.go: JWT signing and verification
//   - codec.go: Serializer interface for arguments and results
//   - transport.go: transport registry for build-tag extensibility
//   - server.go: reference implementation of the receiving endpoint
//
// Application code should only depend on the Invoker interface, making the
// routing mode a deployment decision rather than a code change.
package isorpc
