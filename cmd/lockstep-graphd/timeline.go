// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lockstep-audio/lockstep/graph"
	"github.com/lockstep-audio/lockstep/lib/clock"
	"github.com/lockstep-audio/lockstep/transport"
)

// heartbeatInterval is the time between heartbeat frames on the
// subscribe streams. Heartbeats carry a position snapshot, so this is
// also the position granularity watchers see while rolling. Clients
// should consider a stream dead after 2x this interval with no frame.
const heartbeatInterval = 500 * time.Millisecond

// timeline owns the daemon's shared transport state: the raw state
// machine and the frame counter. Commands mutate it; the run loop
// advances it while rolling and promotes Starting to Rolling after
// one tick of client-catch-up grace.
//
// Every transition is journaled and broadcast while the lock is held,
// so subscribers observe transitions in a single total order. The
// broadcast itself is non-blocking channel sends; see registry.
type timeline struct {
	logger     *slog.Logger
	clock      clock.Clock
	sampleRate uint32
	interval   time.Duration

	// events and journal are wired once before the run loop starts.
	// Either may be nil in tests.
	events  *registry
	journal *journal

	mu       sync.Mutex
	state    transport.RawState
	frame    transport.Frame
	lastTick time.Time
}

func newTimeline(sampleRate uint32, interval time.Duration, clk clock.Clock, logger *slog.Logger) *timeline {
	return &timeline{
		logger:     logger,
		clock:      clk,
		sampleRate: sampleRate,
		interval:   interval,
		state:      transport.Stopped,
		lastTick:   clk.Now(),
	}
}

// run advances the timeline until ctx is cancelled.
func (t *timeline) run(ctx context.Context) {
	tick := t.clock.NewTicker(t.interval)
	defer tick.Stop()
	heartbeat := t.clock.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			t.advance(now)
		case <-heartbeat.C:
			t.emitHeartbeat()
		}
	}
}

// start requests playback. No-op unless stopped; the service silently
// absorbs redundant requests, including the one a duplex follower
// pushes back while reacting to this very start.
func (t *timeline) start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != transport.Stopped {
		return
	}
	t.state = transport.Starting
	t.lastTick = t.clock.Now()
	t.logger.Info("transport starting", "frame", t.frame)
	t.announceLocked()
}

// stop halts playback, freezing the frame where it is.
func (t *timeline) stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == transport.Stopped {
		return
	}
	t.state = transport.Stopped
	t.logger.Info("transport stopped", "frame", t.frame)
	t.announceLocked()
}

// locate moves the playhead. While rolling, playback re-enters
// Starting so clients get the same catch-up grace as a fresh start.
func (t *timeline) locate(frame transport.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frame = frame
	if t.state == transport.Rolling {
		t.state = transport.Starting
	}
	t.logger.Info("transport located", "frame", frame, "state", t.state)
	t.announceLocked()
}

// snapshot returns the current state and frame.
func (t *timeline) snapshot() (transport.RawState, transport.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.frame
}

// advance is one tick of the run loop: promote Starting to Rolling,
// or move the frame forward by rate x elapsed. Elapsed time is
// measured between tick values rather than assumed from the interval,
// so dropped or delayed ticks never lose timeline progress.
func (t *timeline) advance(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := now.Sub(t.lastTick)
	if elapsed < 0 {
		elapsed = 0
	}
	t.lastTick = now

	switch t.state {
	case transport.Starting:
		t.state = transport.Rolling
		t.logger.Info("transport rolling", "frame", t.frame)
		t.announceLocked()
	case transport.Rolling:
		t.frame += transport.Frame(float64(t.sampleRate) * elapsed.Seconds())
	}
}

// emitHeartbeat broadcasts a liveness frame with the current
// position. Taken under the lock so heartbeats cannot reorder with
// transitions and deliver a stale state.
func (t *timeline) emitHeartbeat() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.events == nil {
		return
	}
	t.events.broadcast(graph.StreamFrame{
		Type:  graph.FrameHeartbeat,
		State: t.state,
		Frame: t.frame,
	})
}

// announceLocked journals and broadcasts a transition. Caller holds
// mu.
func (t *timeline) announceLocked() {
	if t.journal != nil {
		t.journal.recordTransition(t.state, t.frame)
	}
	if t.events != nil {
		t.events.broadcast(graph.StreamFrame{
			Type:  graph.FrameState,
			State: t.state,
			Frame: t.frame,
		})
	}
}
