// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the graph
// daemon.
//
// Configuration comes from a single file named by either the
// LOCKSTEP_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no ~/.config discovery and no
// automatic file search; a daemon started without a config file runs
// on [Default] values.
//
// Variable expansion is performed on path fields after loading:
// ${VAR} and ${VAR:-default} patterns are expanded. No other
// environment variables override config values, which keeps a
// daemon's effective configuration auditable from the file alone.
//
// This package depends on no other Lockstep packages.
package config
