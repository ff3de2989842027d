// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

// Command lockstep-graphd is the graph transport daemon: the shared
// playback timeline that sequencers and other audio-graph clients
// synchronize against.
//
// The daemon keeps one timeline (state, frame position) and advances
// it on a fixed tick derived from the configured sample rate. A start
// request enters a one-tick Starting grace before Rolling, giving
// clients time to seek; locate while rolling re-enters the same
// grace. Every state transition is broadcast to subscribers and,
// when enabled, appended to an on-disk journal (CBOR records,
// zstd-compressed segments with BLAKE3 digests).
//
// Clients connect over a Unix domain socket restricted to the
// daemon's own UID. The protocol is one CBOR request per connection
// with a {ok, error, data} response, except subscribe, which holds
// the connection open and streams state transitions and heartbeats.
//
// Actions:
//
//   - status: daemon version, uptime, timeline snapshot, subscriber
//     count
//   - query: timeline state and frame
//   - start, stop: transport control
//   - locate {frame}: move the playhead
//   - subscribe: stream of state/heartbeat/resync frames
//
// Configuration comes from $LOCKSTEP_CONFIG or --config (YAML), with
// --socket and --log-level overriding individual settings.
package main
