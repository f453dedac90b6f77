// Copyright (C) 2024-2026, Tetherflow, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package isorpc

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownOperation is returned when an operation name was never
	// registered on this side.
	ErrUnknownOperation = errors.New("isorpc: unknown operation")

	// ErrDuplicateOperation is returned when an operation name is registered
	// twice; names must be globally unique.
	ErrDuplicateOperation = errors.New("isorpc: operation already registered")
)

// ConfigError reports an unusable isolation configuration: isolation requested
// in a build compiled without support, or an endpoint URL with a scheme other
// than http/https. It is fatal at initialization and never retried.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "isorpc: config: " + e.Reason
}

// RemoteError is a terminal non-200 response from the internal API endpoint.
// It carries the status, reason phrase and raw body; it is never retried.
type RemoteError struct {
	StatusCode int
	Reason     string
	Body       []byte
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("isorpc: got %d:%s when sending the internal api request: %s",
		e.StatusCode, e.Reason, e.Body)
}

// TransientError reports that every attempt of a call failed at the connection
// level. It wraps the failure of the final attempt.
type TransientError struct {
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("isorpc: request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }
