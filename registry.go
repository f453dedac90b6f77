// Copyright (C) 2024-2026, Tetherflow, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package isorpc

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Params is a call's bound arguments, parameter name to value, with any
// defaults already resolved by the caller.
type Params map[string]any

// Handler is the in-process implementation of a forwardable operation.
type Handler func(ctx context.Context, args Params) (any, error)

// Operation describes one forwardable operation.
//
// Name is module-qualified (for example "jobs/state.SetJobState") and must be
// globally unique: the serving side executes exactly the names it registered.
// TransportOnly lists parameters that are meaningful only to the local call
// site, such as a database session handle or a bound receiver; they are
// declared here once, at registration, and stripped from every serialized
// request.
type Operation struct {
	Name          string
	Handler       Handler
	TransportOnly []string
}

// transportArgs returns args minus the operation's transport-only parameters.
// The input map is never mutated.
func (op Operation) transportArgs(args Params) Params {
	out := make(Params, len(args))
	for k, v := range args {
		out[k] = v
	}
	for _, name := range op.TransportOnly {
		delete(out, name)
	}
	return out
}

// Registry maps operation names to their declarations. The serving side uses
// it as the allow-list of what it will execute; the calling side uses it to
// resolve transport-only parameters. Safe for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	ops map[string]Operation
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]Operation)}
}

// Register adds an operation. Names must be non-empty and unique, and every
// operation needs a handler even on calling-side components, so that a
// process forced to Local keeps working.
func (r *Registry) Register(op Operation) error {
	if op.Name == "" {
		return errors.New("isorpc: operation name required")
	}
	if op.Handler == nil {
		return fmt.Errorf("isorpc: operation %s: handler required", op.Name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ops[op.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateOperation, op.Name)
	}
	r.ops[op.Name] = op
	return nil
}

// MustRegister is Register for package init paths; it panics on error.
func (r *Registry) MustRegister(op Operation) {
	if err := r.Register(op); err != nil {
		panic(err)
	}
}

// Lookup returns the operation registered under name.
func (r *Registry) Lookup(name string) (Operation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	op, ok := r.ops[name]
	return op, ok
}

// Names returns the registered operation names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
