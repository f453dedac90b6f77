// Copyright (C) 2024-2026, Tetherflow, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package isorpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const jsonrpcVersion = "2.0"

// rpcRequest is the wire envelope. Params carries the already-serialized
// argument payload as an opaque string; the transport never looks inside it.
type rpcRequest struct {
	Jsonrpc string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  string `json:"params"`
}

// Client sends signed internal API calls to one configured endpoint over
// HTTP. It implements CallTransport and is safe for concurrent use.
type Client struct {
	endpoint string
	signer   TokenSigner
	http     *http.Client
	retry    RetryPolicy
	log      zerolog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithRetryPolicy replaces the retry policy.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) { c.retry = p }
}

// WithClientLogger overrides the client's logger.
func WithClientLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) { c.log = l }
}

// NewClient returns a client bound to endpoint. The signer produces one fresh
// token per physical attempt; tokens are never cached.
func NewClient(endpoint string, signer TokenSigner, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		signer:   signer,
		http:     newHTTPClient(),
		retry:    DefaultRetryPolicy(),
		log:      log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// newHTTPClient disables keep-alives so every attempt opens a fresh
// authenticated connection; the transport holds no shared state across calls.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DisableKeepAlives: true,
		},
	}
}

// Invoke posts one signed request and returns the raw response body.
// Connection-establishment failures are retried per the client's RetryPolicy;
// any response with a status other than 200 is terminal.
func (c *Client) Invoke(ctx context.Context, method, params string) ([]byte, error) {
	body, err := json.Marshal(rpcRequest{Jsonrpc: jsonrpcVersion, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return c.retry.Do(ctx, c.log, method, func() ([]byte, error) {
		return c.post(ctx, method, body)
	})
}

func (c *Client) post(ctx context.Context, method string, body []byte) ([]byte, error) {
	token, err := c.signer.Sign(map[string]any{"method": method})
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer drainBody(resp.Body)

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &RemoteError{
			StatusCode: resp.StatusCode,
			Reason:     http.StatusText(resp.StatusCode),
			Body:       payload,
		}
	}
	return payload, nil
}

// Close releases idle connections. The client may still be used afterwards.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// drainBody reads a response body to completion before closing it, so the
// underlying connection can be reused when keep-alives are enabled.
func drainBody(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
