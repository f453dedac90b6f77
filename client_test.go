// Copyright (C) 2024-2026, Tetherflow, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package isorpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func zerologTo(w io.Writer) zerolog.Logger {
	return zerolog.New(w)
}

// fakeRoundTripper scripts one outcome per attempt.
type fakeRoundTripper struct {
	calls int
	fn    func(attempt int, req *http.Request) (*http.Response, error)
}

func (f *fakeRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	return f.fn(f.calls, req)
}

func okResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(rt *fakeRoundTripper, opts ...ClientOption) *Client {
	opts = append([]ClientOption{
		WithHTTPClient(&http.Client{Transport: rt}),
		WithRetryPolicy(noBackoff()),
	}, opts...)
	return NewClient("http://localhost:8080"+DefaultRPCPath, NewJWTSigner("secret"), opts...)
}

func TestClientSendsSignedRequest(t *testing.T) {
	var captured *http.Request
	var capturedBody []byte
	rt := &fakeRoundTripper{fn: func(attempt int, req *http.Request) (*http.Response, error) {
		captured = req
		capturedBody, _ = io.ReadAll(req.Body)
		return okResponse(`"42"`), nil
	}}

	client := newTestClient(rt)
	resp, err := client.Invoke(context.Background(), "jobs/state.SetJobState", `{"job_id":"run-7"}`)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if string(resp) != `"42"` {
		t.Errorf("got body %q", resp)
	}

	if ct := captured.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	token := captured.Header.Get("Authorization")
	if token == "" {
		t.Fatal("missing Authorization header")
	}
	verifier := NewJWTSigner("secret")
	if err := verifier.Verify(token, "jobs/state.SetJobState"); err != nil {
		t.Errorf("token does not verify: %v", err)
	}
	if err := verifier.Verify(token, "jobs/state.OtherOp"); err == nil {
		t.Error("token verified for a different method")
	}

	var envelope rpcRequest
	if err := json.Unmarshal(capturedBody, &envelope); err != nil {
		t.Fatalf("decode request body: %v", err)
	}
	want := rpcRequest{Jsonrpc: "2.0", Method: "jobs/state.SetJobState", Params: `{"job_id":"run-7"}`}
	if envelope != want {
		t.Errorf("got envelope %+v, want %+v", envelope, want)
	}
}

func TestClientRetriesConnectionErrors(t *testing.T) {
	rt := &fakeRoundTripper{fn: func(attempt int, req *http.Request) (*http.Response, error) {
		if attempt < 10 {
			return nil, dialError()
		}
		return okResponse(`"42"`), nil
	}}

	var logBuf bytes.Buffer
	client := newTestClient(rt, WithClientLogger(zerologTo(&logBuf)))

	resp, err := client.Invoke(context.Background(), "a.Op", "{}")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if string(resp) != `"42"` {
		t.Errorf("got body %q", resp)
	}
	if rt.calls != 10 {
		t.Errorf("got %d attempts, want 10", rt.calls)
	}
	if warns := strings.Count(logBuf.String(), "retrying"); warns != 9 {
		t.Errorf("got %d retry logs, want 9", warns)
	}
}

func TestClientRetryExhaustion(t *testing.T) {
	rt := &fakeRoundTripper{fn: func(attempt int, req *http.Request) (*http.Response, error) {
		return nil, dialError()
	}}

	client := newTestClient(rt)
	_, err := client.Invoke(context.Background(), "a.Op", "{}")

	var transient *TransientError
	if !errors.As(err, &transient) {
		t.Fatalf("expected TransientError, got %v", err)
	}
	if rt.calls != 10 {
		t.Errorf("got %d attempts, want 10", rt.calls)
	}
	if !IsConnectionError(transient.Err) {
		t.Errorf("wrapped error is not the last connection failure: %v", transient.Err)
	}
}

func TestClientDoesNotRetryHTTPErrors(t *testing.T) {
	rt := &fakeRoundTripper{fn: func(attempt int, req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Header:     make(http.Header),
			Body:       io.NopCloser(strings.NewReader("not found")),
		}, nil
	}}

	client := newTestClient(rt)
	_, err := client.Invoke(context.Background(), "a.Op", "{}")

	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.StatusCode != http.StatusNotFound {
		t.Errorf("got status %d, want 404", remote.StatusCode)
	}
	if string(remote.Body) != "not found" {
		t.Errorf("got body %q", remote.Body)
	}
	if remote.Reason == "" {
		t.Error("missing reason phrase")
	}
	if rt.calls != 1 {
		t.Errorf("got %d attempts, want 1", rt.calls)
	}
}

func TestClientEmptyBodySuccess(t *testing.T) {
	rt := &fakeRoundTripper{fn: func(attempt int, req *http.Request) (*http.Response, error) {
		return okResponse(""), nil
	}}

	client := newTestClient(rt)
	resp, err := client.Invoke(context.Background(), "a.Op", "{}")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if len(resp) != 0 {
		t.Errorf("got body %q, want empty", resp)
	}
}

func TestClientSignerFailureIsTerminal(t *testing.T) {
	rt := &fakeRoundTripper{fn: func(attempt int, req *http.Request) (*http.Response, error) {
		t.Fatal("request should never be sent without a token")
		return nil, nil
	}}
	client := NewClient("http://localhost:8080", NewJWTSigner(""),
		WithHTTPClient(&http.Client{Transport: rt}),
		WithRetryPolicy(noBackoff()),
	)

	_, err := client.Invoke(context.Background(), "a.Op", "{}")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError from empty secret, got %v", err)
	}
	if rt.calls != 0 {
		t.Errorf("got %d attempts, want 0", rt.calls)
	}
}
