//go:build !noisolation

// Copyright (C) 2024-2026, Tetherflow, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package isorpc

// isolationSupported reports whether this build can route calls through the
// internal API. Compile with -tags noisolation for binaries that must always
// access the database directly; enabling isolation in such a build is a
// configuration error.
const isolationSupported = true
