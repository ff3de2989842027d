// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

// Lockstep is the operator CLI for the graph transport daemon. It
// provides subcommands for inspecting the shared timeline (status),
// driving it (start, stop, locate), and following it live in a
// terminal view (watch).
package main
