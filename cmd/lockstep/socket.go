// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"
	"time"

	"github.com/lockstep-audio/lockstep/cmd/lockstep/cli"
	"github.com/lockstep-audio/lockstep/lib/config"
)

// requestTimeout bounds one-shot daemon requests. Commands talk to a
// local Unix socket; anything slower than this means the daemon is
// wedged.
const requestTimeout = 10 * time.Second

// defaultSocketPath resolves the daemon socket used as the --socket
// default: $LOCKSTEP_SOCKET when set, otherwise the configured socket
// ($LOCKSTEP_CONFIG or built-in defaults).
func defaultSocketPath() string {
	if path := os.Getenv("LOCKSTEP_SOCKET"); path != "" {
		return path
	}
	cfg, err := config.Load()
	if err != nil {
		// A broken LOCKSTEP_CONFIG should not be silent: the command
		// would otherwise target a socket the user did not choose.
		cli.NewCommandLogger().Warn("config unreadable, using default socket", "error", err)
		return config.Default().Socket
	}
	return cfg.Socket
}
