// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Lockstep packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback). They
// are the only place the test suite touches the real clock; everything
// timed goes through lib/clock's fake.
//
// [SocketDir] creates a short-pathed temporary directory for Unix
// domain sockets, which a nested t.TempDir() can push past the
// 108-byte sun_path limit.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no Lockstep-internal dependencies.
package testutil
