// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

// Package graph connects the sync engine to an audio-graph transport
// service.
//
// [Client] implements [transport.Conn] against a running
// lockstep-graphd over its Unix socket: a subscribe stream mirrors the
// daemon's timeline into local atomics for non-blocking Query, and a
// command queue pushes start/stop/locate requests out without ever
// blocking the caller. [MemoryTransport] is the same state machine
// in-process, for tests and for embedding the daemon timeline without
// a daemon.
//
// The wire schema in this package (action names, request and response
// bodies, stream frames) is shared by the daemon, the client, and the
// lockstep CLI.
package graph
