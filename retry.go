// Copyright (C) 2024-2026, Tetherflow, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package isorpc

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultMaxAttempts = 10
	retryBaseWait      = 1 * time.Second
	retryMaxWait       = 60 * time.Second
)

// RetryPolicy controls how a transport re-attempts failed requests.
// Retryable decides whether an error is worth another attempt; Backoff
// returns the sleep before attempt n+1 given that attempt n failed.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Retryable   func(error) bool
}

// DefaultRetryPolicy retries connection-establishment failures up to 10 total
// attempts with exponential backoff starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: defaultMaxAttempts,
		Backoff:     ExponentialBackoff(retryBaseWait),
		Retryable:   IsConnectionError,
	}
}

// ExponentialBackoff doubles the wait after every failed attempt: base,
// 2*base, 4*base, ... capped at retryMaxWait.
func ExponentialBackoff(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		wait := base << (attempt - 1)
		if wait <= 0 || wait > retryMaxWait {
			wait = retryMaxWait
		}
		return wait
	}
}

// Do runs fn until it succeeds, fails terminally, or attempts run out. Each
// retry is logged at warn level before the backoff sleep, which honors ctx
// cancellation. Exhaustion surfaces the last transient failure wrapped in a
// TransientError; non-retryable errors are returned as-is immediately.
func (p RetryPolicy) Do(ctx context.Context, logger zerolog.Logger, method string, fn func() ([]byte, error)) ([]byte, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		if p.Retryable == nil || !p.Retryable(err) {
			return nil, err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		var wait time.Duration
		if p.Backoff != nil {
			wait = p.Backoff(attempt)
		}
		logger.Warn().
			Str("method", method).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Err(err).
			Msg("internal api request failed, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, &TransientError{Attempts: attempts, Err: lastErr}
}

// IsConnectionError reports whether err is a connection-establishment
// failure: a refused or unreachable peer, or a DNS resolution error. Errors
// on an established connection (resets, truncated bodies) and HTTP-level
// failures are not retried.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	// Fallback for transports that flatten dial failures into strings.
	msg := err.Error()
	if urlErr := (*url.Error)(nil); errors.As(err, &urlErr) {
		msg = urlErr.Err.Error()
	}
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host")
}
