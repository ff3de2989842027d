// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"sync"

	"github.com/lockstep-audio/lockstep/transport"
)

// Compile-time interface checks.
var (
	_ transport.Conn = (*Client)(nil)
	_ transport.Conn = (*MemoryTransport)(nil)
)

// MemoryTransport is an in-process [transport.Conn] for tests and
// embedding: the daemon timeline's state machine without the daemon.
// Time does not flow on its own; each Tick call advances it one step.
//
// Start enters Starting and the next Tick promotes it to Rolling,
// matching the daemon's one-tick client-catch-up grace. Locate while
// rolling re-enters Starting at the new frame for the same reason.
// The callback fires on every state change and on relocations; the
// ready value it returns is accepted and ignored, the one-tick grace
// standing in for readiness negotiation.
//
// The callback is invoked without the internal lock held, so it may
// call back into the transport (a follower reacting to Starting by
// starting its sequencer, whose start hook pushes Start right back).
type MemoryTransport struct {
	mu       sync.Mutex
	state    transport.RawState
	frame    transport.Frame
	callback transport.SyncFunc
}

// NewMemoryTransport creates a stopped transport at frame zero.
func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{state: transport.Stopped}
}

// Start implements [transport.Conn]. No-op unless stopped.
func (m *MemoryTransport) Start() {
	m.mu.Lock()
	if m.state != transport.Stopped {
		m.mu.Unlock()
		return
	}
	m.state = transport.Starting
	cb, state, frame := m.callback, m.state, m.frame
	m.mu.Unlock()
	invoke(cb, state, frame)
}

// Stop implements [transport.Conn]. Freezes the frame where it is.
func (m *MemoryTransport) Stop() {
	m.mu.Lock()
	if m.state == transport.Stopped {
		m.mu.Unlock()
		return
	}
	m.state = transport.Stopped
	cb, state, frame := m.callback, m.state, m.frame
	m.mu.Unlock()
	invoke(cb, state, frame)
}

// Locate implements [transport.Conn]. Moves the frame in any state;
// while rolling, playback re-enters Starting at the new position.
func (m *MemoryTransport) Locate(frame transport.Frame) {
	m.mu.Lock()
	m.frame = frame
	if m.state == transport.Rolling {
		m.state = transport.Starting
	}
	cb, state := m.callback, m.state
	m.mu.Unlock()
	invoke(cb, state, frame)
}

// Query implements [transport.Conn]. Holds the lock for two field
// reads; nothing here can block behind a callback.
func (m *MemoryTransport) Query() (transport.RawState, transport.Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.frame
}

// SetSyncCallback implements [transport.Conn]. Registering a non-nil
// callback delivers one immediate snapshot invocation, mirroring the
// subscribe stream's snapshot-then-live contract.
func (m *MemoryTransport) SetSyncCallback(fn transport.SyncFunc) {
	m.mu.Lock()
	m.callback = fn
	state, frame := m.state, m.frame
	m.mu.Unlock()
	invoke(fn, state, frame)
}

// Tick advances the timeline one step: Starting promotes to Rolling,
// and Rolling advances the frame by the given count.
func (m *MemoryTransport) Tick(frames transport.Frame) {
	m.mu.Lock()
	switch m.state {
	case transport.Starting:
		m.state = transport.Rolling
		cb, state, frame := m.callback, m.state, m.frame
		m.mu.Unlock()
		invoke(cb, state, frame)
	case transport.Rolling:
		// Steady advance is not a state change; followers pick the
		// position up from Query, not the callback.
		m.frame += frames
		m.mu.Unlock()
	default:
		m.mu.Unlock()
	}
}

func invoke(cb transport.SyncFunc, state transport.RawState, frame transport.Frame) {
	if cb != nil {
		cb(state, frame)
	}
}
