// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the Unix socket protocol shared by the
// lockstep graph daemon and its clients.
//
// The protocol is CBOR over a Unix domain socket. A request is a
// single CBOR map with an "action" field naming the operation.
// Request-response actions answer with a Response envelope and close
// the connection; stream actions keep the connection open and push
// CBOR frames until the client disconnects or the server shuts down.
// CBOR values are self-delimiting, so no outer framing is needed.
//
// There is no token or credential exchange. The daemon controls a
// single user's transport, so the server verifies through SO_PEERCRED
// that the peer process runs as the same uid and rejects everything
// else.
//
// Daemons compose SocketServer in their own main() rather than
// subclassing a framework; the package provides building blocks, not
// a runtime.
package service
