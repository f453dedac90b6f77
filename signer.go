// Copyright (C) 2024-2026, Tetherflow, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package isorpc

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// tokenAudience scopes tokens to the internal API.
const tokenAudience = "api"

// TokenSigner produces the credential carried with every outbound request.
// Claims are bound to the target operation, so a token issued for one method
// cannot be replayed against another.
type TokenSigner interface {
	Sign(claims map[string]any) (string, error)
}

// JWTSigner signs and verifies short-lived HS512 tokens. The same type serves
// both sides: callers sign, the endpoint verifies.
type JWTSigner struct {
	secret   []byte
	audience string
	ttl      time.Duration
	leeway   time.Duration
	now      func() time.Time
}

// SignerOption configures a JWTSigner.
type SignerOption func(*JWTSigner)

// WithAudience overrides the token audience.
func WithAudience(aud string) SignerOption {
	return func(s *JWTSigner) { s.audience = aud }
}

// WithTTL sets the token validity window.
func WithTTL(d time.Duration) SignerOption {
	return func(s *JWTSigner) { s.ttl = d }
}

// WithLeeway sets the clock-skew grace applied during verification.
func WithLeeway(d time.Duration) SignerOption {
	return func(s *JWTSigner) { s.leeway = d }
}

// withClock pins the signer's clock; tests use it to move time.
func withClock(now func() time.Time) SignerOption {
	return func(s *JWTSigner) { s.now = now }
}

// NewJWTSigner returns a signer over the shared secret with the default
// audience and a validity window of DefaultClockGraceSeconds.
func NewJWTSigner(secret string, opts ...SignerOption) *JWTSigner {
	s := &JWTSigner{
		secret:   []byte(secret),
		audience: tokenAudience,
		ttl:      DefaultClockGraceSeconds * time.Second,
		leeway:   DefaultClockGraceSeconds * time.Second,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignerFromConfig builds a signer from the configured secret and clock grace.
func SignerFromConfig(cfg Config) *JWTSigner {
	grace := time.Duration(cfg.ClockGraceSeconds) * time.Second
	if grace <= 0 {
		grace = DefaultClockGraceSeconds * time.Second
	}
	return NewJWTSigner(cfg.SecretKey, WithTTL(grace), WithLeeway(grace))
}

// Sign issues a fresh token carrying the standard time claims plus the given
// extended claims.
func (s *JWTSigner) Sign(claims map[string]any) (string, error) {
	if len(s.secret) == 0 {
		return "", &ConfigError{Reason: "internal api secret key is empty"}
	}
	now := s.now()
	mapClaims := jwt.MapClaims{
		"aud": s.audience,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	for k, v := range claims {
		mapClaims[k] = v
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS512, mapClaims).SignedString(s.secret)
}

// Verify checks the token signature, audience and validity window (with
// leeway), and that the token was issued for method.
func (s *JWTSigner) Verify(token, method string) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}),
		jwt.WithAudience(s.audience),
		jwt.WithLeeway(s.leeway),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	parsed, err := parser.Parse(token, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return fmt.Errorf("verify token: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return errors.New("isorpc: unexpected token claims")
	}
	if m, _ := claims["method"].(string); m != method {
		return fmt.Errorf("isorpc: token is not valid for method %s", method)
	}
	return nil
}
