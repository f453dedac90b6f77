// Copyright (C) 2024-2026, Tetherflow, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package isorpc

import (
	"context"
	"sync"
)

// Transport types
const (
	TransportHTTP = "http" // signed JSON over HTTP, default
	TransportGRPC = "grpc" // requires build tag
)

// DefaultTransport is the default transport type (HTTP)
const DefaultTransport = TransportHTTP

// CallTransport delivers one signed call to the configured endpoint and
// returns the raw response payload. Empty payloads mean "no result".
type CallTransport interface {
	Invoke(ctx context.Context, method, params string) ([]byte, error)
	Close() error
}

type transportFactory func(endpoint string, o *invokerOptions) (CallTransport, error)

var (
	transportsMu sync.RWMutex
	transports   = map[string]transportFactory{
		TransportHTTP: newHTTPTransport,
	}
)

// registerTransport registers a new transport (used by build tags)
func registerTransport(name string, factory transportFactory) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	transports[name] = factory
}

func lookupTransport(name string) (transportFactory, bool) {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	factory, ok := transports[name]
	return factory, ok
}

// AvailableTransports returns list of available transport types
func AvailableTransports() []string {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	result := make([]string, 0, len(transports))
	for name := range transports {
		result = append(result, name)
	}
	return result
}

// HasTransport checks if a transport is available
func HasTransport(name string) bool {
	transportsMu.RLock()
	defer transportsMu.RUnlock()
	_, ok := transports[name]
	return ok
}

func newHTTPTransport(endpoint string, o *invokerOptions) (CallTransport, error) {
	return NewClient(endpoint, o.signer,
		WithRetryPolicy(o.retry),
		WithClientLogger(o.log),
	), nil
}
