// Copyright (C) 2024-2026, Tetherflow, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package isorpc

import (
	"encoding/json"
)

// Serializer is the lossless round-trip encoding for call arguments and
// results, structured domain objects included. The transport moves opaque
// strings; implementations own the representation, and both sides of a
// deployment must agree on one.
type Serializer interface {
	Serialize(v any) (string, error)
	Deserialize(s string) (any, error)
}

// JSONSerializer is a JSON-based serializer
type JSONSerializer struct{}

func (JSONSerializer) Serialize(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (JSONSerializer) Deserialize(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// defaultSerializer is used when no serializer is specified
var defaultSerializer Serializer = JSONSerializer{}
