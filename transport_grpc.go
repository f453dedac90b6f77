//go:build grpc

// Copyright (C) 2024-2026, Tetherflow, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package isorpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

// grpcFullMethod is the single full method the internal API service exposes
// when served over gRPC; the logical operation name travels in the envelope,
// as it does over HTTP.
const grpcFullMethod = "/internalapi.v1.InternalAPI/Invoke"

func init() {
	// Register gRPC transport when build tag is enabled
	registerTransport(TransportGRPC, newGRPCTransport)
}

func newGRPCTransport(endpoint string, o *invokerOptions) (CallTransport, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("grpc endpoint: %w", err)
	}
	conn, err := grpc.NewClient(u.Host,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("grpc dial: %w", err)
	}
	return &grpcTransport{conn: conn, signer: o.signer}, nil
}

// grpcTransport implements CallTransport over a shared gRPC connection. The
// token rides in outgoing metadata instead of an HTTP header.
type grpcTransport struct {
	conn   *grpc.ClientConn
	signer TokenSigner
}

func (t *grpcTransport) Invoke(ctx context.Context, method, params string) ([]byte, error) {
	token, err := t.signer.Sign(map[string]any{"method": method})
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}
	ctx = metadata.AppendToOutgoingContext(ctx, "authorization", token)

	payload, err := json.Marshal(rpcRequest{Jsonrpc: jsonrpcVersion, Method: method, Params: params})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	var resp []byte
	if err := t.conn.Invoke(ctx, grpcFullMethod, payload, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (t *grpcTransport) Close() error {
	return t.conn.Close()
}
