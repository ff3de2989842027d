// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"log/slog"
	"sync/atomic"
)

// Bridge owns the connection handle to the external transport service.
// It pushes start/stop/locate requests outward, polls for the stop
// edge the callback path can miss, and runs the low-level callback
// that fans external state changes into the inbound adapter.
//
// Every operation is a silent no-op while no connection is attached.
// All state is single-word atomics; nothing here blocks or allocates.
type Bridge struct {
	logger *slog.Logger

	conn   atomic.Pointer[connSlot]
	follow atomic.Bool

	// adapter receives inbound events. Installed by NewController
	// before any callback can be registered.
	adapter Adapter

	// lastState is the raw state seen by the previous JustStopped
	// poll, compared against the current poll to edge-detect the
	// transition into Stopped.
	lastState atomic.Int32
}

// connSlot wraps the interface value so the handle can live in an
// atomic pointer.
type connSlot struct {
	conn Conn
}

// NewBridge creates a detached bridge. Attach a connection with Attach
// and wire a Controller with NewController before use.
func NewBridge(logger *slog.Logger) *Bridge {
	b := &Bridge{logger: logger}
	b.lastState.Store(int32(Stopped))
	return b
}

// Attach installs the connection handle. Called from the audio-graph
// attach path; re-apply the controller mode afterwards to re-establish
// callback registration on the new connection.
func (b *Bridge) Attach(conn Conn) {
	if conn == nil {
		b.Detach()
		return
	}
	b.conn.Store(&connSlot{conn: conn})
	b.logger.Info("transport service attached")
}

// Detach clears the connection handle and unregisters the callback.
// The pulse task must be joined first: no poll or inbound invocation
// may race the teardown.
func (b *Bridge) Detach() {
	if slot := b.conn.Swap(nil); slot != nil {
		b.follow.Store(false)
		slot.conn.SetSyncCallback(nil)
		b.logger.Info("transport service detached")
	}
	b.lastState.Store(int32(Stopped))
}

// Available reports whether a connection handle is set.
func (b *Bridge) Available() bool {
	return b.conn.Load() != nil
}

// Start requests the external transport to begin rolling.
// Fire-and-forget; the service is authoritative and silently ignores
// illegal requests.
func (b *Bridge) Start() {
	if slot := b.conn.Load(); slot != nil {
		slot.conn.Start()
	}
}

// Stop requests the external transport to halt.
func (b *Bridge) Stop() {
	if slot := b.conn.Load(); slot != nil {
		slot.conn.Stop()
	}
}

// Locate requests relocation of the external transport to frame.
func (b *Bridge) Locate(frame Frame) {
	if slot := b.conn.Load(); slot != nil {
		slot.conn.Locate(frame)
	}
}

// JustStopped polls the external transport state and returns true
// exactly once per transition into Stopped. When unavailable, the
// observed state resets to Stopped and the result is false.
//
// The poll exists because not every external implementation delivers
// a distinct stopped notification through the callback; the pulse task
// calls this every tick to catch the edge anyway.
func (b *Bridge) JustStopped() bool {
	slot := b.conn.Load()
	if slot == nil {
		b.lastState.Store(int32(Stopped))
		return false
	}
	state, _ := slot.conn.Query()
	previous := RawState(b.lastState.Swap(int32(state)))
	return state == Stopped && previous != Stopped
}

// SetFollow registers the inbound callback with the external service
// (true) or unregisters it (false). Symmetric and idempotent. The
// follow flag is re-checked inside the callback itself, closing the
// race where an unregistration overlaps an in-flight invocation.
func (b *Bridge) SetFollow(enabled bool) {
	slot := b.conn.Load()
	if slot == nil {
		b.follow.Store(false)
		return
	}
	b.follow.Store(enabled)
	if enabled {
		slot.conn.SetSyncCallback(b.sync)
	} else {
		slot.conn.SetSyncCallback(nil)
	}
}

// sync is the callback the external service invokes on state changes.
// It may run on the service's callback context, possibly a
// realtime-priority thread: atomic loads only, no allocation, no
// blocking.
func (b *Bridge) sync(state RawState, frame Frame) bool {
	if b.adapter == nil || !b.follow.Load() {
		return true
	}
	switch state {
	case Stopped:
		b.adapter.SetPlaying(false)
		b.adapter.SetPosition(frame)
	case Starting:
		b.adapter.SetPlaying(true)
		b.adapter.SetPosition(frame)
	case Rolling:
		// Services usually announce Starting and promote silently;
		// handle Rolling anyway for those that report it.
		b.adapter.SetPlaying(true)
		b.adapter.SetPosition(frame)
	default:
		// Unknown states from newer services are ignored.
	}
	return true
}
