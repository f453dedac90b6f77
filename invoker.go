// Copyright (C) 2024-2026, Tetherflow, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package isorpc

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Invoker executes forwardable operations. Exactly one implementation is
// selected per process: in-process execution or forwarding through the
// internal API. Callers must not assume which one they hold; under Local mode
// the invoker is semantically identical to calling the handler directly.
type Invoker interface {
	Invoke(ctx context.Context, operation string, args Params) (any, error)
}

type invokerOptions struct {
	serializer Serializer
	signer     TokenSigner
	retry      RetryPolicy
	transport  string
	call       CallTransport
	log        zerolog.Logger
}

// Option configures NewInvoker.
type Option func(*invokerOptions)

// WithSerializer sets a custom serializer
func WithSerializer(s Serializer) Option {
	return func(o *invokerOptions) { o.serializer = s }
}

// WithSigner sets the token signer used for outbound requests. Defaults to a
// JWT signer built from the gate's configuration.
func WithSigner(s TokenSigner) Option {
	return func(o *invokerOptions) { o.signer = s }
}

// WithRetry replaces the transport retry policy.
func WithRetry(p RetryPolicy) Option {
	return func(o *invokerOptions) { o.retry = p }
}

// WithTransport explicitly sets the transport type
func WithTransport(name string) Option {
	return func(o *invokerOptions) { o.transport = name }
}

// WithCallTransport injects a ready-made transport, bypassing the transport
// registry entirely.
func WithCallTransport(t CallTransport) Option {
	return func(o *invokerOptions) { o.call = t }
}

// WithLogger overrides the invoker's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *invokerOptions) { o.log = l }
}

// NewInvoker reads the gate once and returns the implementation matching its
// mode. A ConfigError from gate resolution is returned here, before any call
// is made.
func NewInvoker(gate *Gate, reg *Registry, opts ...Option) (Invoker, error) {
	if gate == nil || reg == nil {
		return nil, errors.New("isorpc: gate and registry are required")
	}
	o := &invokerOptions{
		serializer: defaultSerializer,
		retry:      DefaultRetryPolicy(),
		transport:  DefaultTransport,
		log:        log.Logger,
	}
	for _, opt := range opts {
		opt(o)
	}

	remote, err := gate.IsRemote()
	if err != nil {
		return nil, err
	}
	if !remote {
		return &localInvoker{reg: reg}, nil
	}

	endpoint, err := gate.Endpoint()
	if err != nil {
		return nil, err
	}
	call := o.call
	if call == nil {
		if o.signer == nil {
			o.signer = SignerFromConfig(gate.cfg)
		}
		factory, ok := lookupTransport(o.transport)
		if !ok {
			return nil, fmt.Errorf("isorpc: unknown transport: %s", o.transport)
		}
		if call, err = factory(endpoint, o); err != nil {
			return nil, err
		}
	}
	return &remoteInvoker{reg: reg, call: call, serializer: o.serializer}, nil
}

// localInvoker runs operations in-process. Arguments and results pass through
// untouched, transport-only parameters included, and handler errors propagate
// unwrapped.
type localInvoker struct {
	reg *Registry
}

func (inv *localInvoker) Invoke(ctx context.Context, operation string, args Params) (any, error) {
	op, ok := inv.reg.Lookup(operation)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, operation)
	}
	return op.Handler(ctx, args)
}

// remoteInvoker forwards operations through a CallTransport: strip declared
// transport-only parameters, serialize, send, decode.
type remoteInvoker struct {
	reg        *Registry
	call       CallTransport
	serializer Serializer
}

func (inv *remoteInvoker) Invoke(ctx context.Context, operation string, args Params) (any, error) {
	op, ok := inv.reg.Lookup(operation)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, operation)
	}
	params, err := inv.serializer.Serialize(op.transportArgs(args))
	if err != nil {
		return nil, fmt.Errorf("serialize arguments for %s: %w", operation, err)
	}
	resp, err := inv.call.Invoke(ctx, op.Name, params)
	if err != nil {
		return nil, err
	}
	if len(resp) == 0 {
		// No result on the wire maps to an absent value.
		return nil, nil
	}
	return inv.serializer.Deserialize(string(resp))
}
