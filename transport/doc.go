// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport keeps a sequencer's play/stop state and timeline
// position in lockstep with an external transport service, in either
// or both directions.
//
// Three pieces cooperate:
//
//   - Bridge owns the connection handle to the external service. It
//     pushes start/stop/locate requests outward, edge-detects the
//     external stop by polling, and runs the callback that fans
//     inbound state changes into the sequencer.
//   - Controller owns the sync mode (Leader, Follower, Duplex), the
//     master on/off switch, and the hooks the sequencer's lifecycle
//     calls (OnJump, OnStart, OnStop, OnPulse). It implements the
//     inbound Adapter the bridge delivers to.
//   - Pulse drives Controller.OnPulse on a fixed interval from a
//     background goroutine.
//
// Wiring order: create the bridge, create the controller against it,
// attach a connection, start the pulse. Teardown reverses it: stop the
// pulse (which joins the goroutine), then detach. The join-then-detach
// order is what guarantees no pulse ever polls a dead connection.
//
//	bridge := transport.NewBridge(logger)
//	ctrl := transport.NewController(bridge, seq, graph, logger)
//	bridge.Attach(conn)
//	pulse := transport.NewPulse(ctrl, transport.DefaultPulseInterval, clock.Real())
//	pulse.Start(ctx)
//	defer func() {
//		pulse.Stop()
//		bridge.Detach()
//	}()
//
// Everything here is a silent no-op when its precondition fails: no
// connection, master switch off, export in progress, redundant state.
// Transport sync is a best-effort convenience and a missed tick must
// never interrupt playback. The single hard rule is that the master
// switch cannot be enabled while the service is unreachable.
//
// The hot paths (the inbound callback and OnPulse) run on whatever
// context the service and the pulse task provide, concurrently with
// the sequencer thread. All shared state is single-word atomics;
// those paths take no locks, allocate nothing, and never block.
package transport
