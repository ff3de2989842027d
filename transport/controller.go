// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"log/slog"
	"sync/atomic"
)

// Controller owns the sync mode, the master on/off switch, and the
// event hooks the sequencer's lifecycle calls into. Per mode and per
// event it decides whether sequencer state is pushed out through the
// bridge; as the bridge's Adapter it decides whether external state is
// accepted into the sequencer.
//
// The mode and the lead/follow flags it derives are separate
// single-word atomics. A mode change writes them one by one; the hook
// paths tolerate the transient disagreement because every path is an
// idempotent no-op when its own flag says so.
type Controller struct {
	bridge *Bridge
	seq    Sequencer
	graph  AudioGraph
	logger *slog.Logger

	mode   atomic.Int32
	lead   atomic.Bool
	follow atomic.Bool
	on     atomic.Bool

	// lastObservedFrame is the sequencer position seen by the previous
	// pulse while stopped. A differing frame on the next pulse means
	// the playhead moved without a jump hook firing.
	lastObservedFrame atomic.Int64
}

// NewController creates a controller bound to bridge and installs
// itself as the bridge's inbound adapter. Initial state: Leader mode
// with the master switch off.
func NewController(bridge *Bridge, seq Sequencer, graph AudioGraph, logger *slog.Logger) *Controller {
	c := &Controller{
		bridge: bridge,
		seq:    seq,
		graph:  graph,
		logger: logger,
	}
	c.mode.Store(int32(Leader))
	c.lead.Store(true)
	bridge.adapter = c
	return c
}

// ToggleMode advances the mode in the fixed cycle Leader → Follower →
// Duplex → Leader and applies the new mode's side effects. Returns the
// mode in effect after the call; while the bridge is unavailable the
// mode is returned unchanged.
func (c *Controller) ToggleMode() Mode {
	if !c.bridge.Available() {
		return Mode(c.mode.Load())
	}
	var next Mode
	switch Mode(c.mode.Load()) {
	case Leader:
		next = Follower
	case Follower:
		next = Duplex
	case Duplex:
		next = Leader
	default:
		// Unreachable: only defined modes are ever stored.
		next = Leader
	}
	c.SetMode(next)
	return next
}

// SetMode applies the given role: stores the mode, derives the
// lead/follow flags, and registers or unregisters the bridge's inbound
// callback. Passing Off (or any undefined value) turns the master
// switch off and leaves the stored mode alone, so re-enabling restores
// the last selected role. No-op while the bridge is unavailable.
func (c *Controller) SetMode(mode Mode) {
	if !c.bridge.Available() {
		return
	}
	switch mode {
	case Leader:
		c.mode.Store(int32(Leader))
		c.follow.Store(false)
		c.lead.Store(true)
		c.bridge.SetFollow(false)
	case Follower:
		c.mode.Store(int32(Follower))
		c.follow.Store(true)
		c.lead.Store(false)
		c.bridge.SetFollow(true)
	case Duplex:
		c.mode.Store(int32(Duplex))
		c.follow.Store(true)
		c.lead.Store(true)
		c.bridge.SetFollow(true)
	default:
		c.on.Store(false)
	}
	c.logger.Debug("sync mode applied",
		"mode", Mode(c.mode.Load()),
		"on", c.on.Load(),
	)
}

// Mode returns the active mode.
func (c *Controller) Mode() Mode {
	return Mode(c.mode.Load())
}

// ToggleEnabled flips the master switch and returns the new value.
// While the bridge is unavailable the switch is forced off: external
// sync can never be enabled without a live connection.
func (c *Controller) ToggleEnabled() bool {
	if !c.bridge.Available() {
		c.on.Store(false)
		return false
	}
	enabled := !c.on.Load()
	c.on.Store(enabled)
	return enabled
}

// Enabled reports the master switch.
func (c *Controller) Enabled() bool {
	return c.on.Load()
}

// Available reports whether the external service can be reached. The
// control surface uses it to decide whether to show sync controls as
// usable.
func (c *Controller) Available() bool {
	return c.bridge.Available()
}

// OnJump is called whenever the playhead moves outside of normal
// playback advance. Pushes the new position out when leading; no-op
// while off or exporting.
func (c *Controller) OnJump() {
	if c.seq.IsExporting() || !c.lead.Load() || !c.on.Load() {
		return
	}
	c.bridge.Locate(c.seq.CurrentFrame())
}

// OnStart is called when the sequencer begins playback. In Leader mode
// the position is re-asserted with a jump right after the start:
// starting the external transport can make the external side snap to a
// stale position, and the leader must win that race.
func (c *Controller) OnStart() {
	if !c.on.Load() {
		return
	}
	c.bridge.Start()
	if Mode(c.mode.Load()) == Leader {
		c.OnJump()
	}
}

// OnStop is called when the sequencer ends playback. Mirrors OnStart,
// including the Leader re-assertion.
func (c *Controller) OnStop() {
	if !c.on.Load() {
		return
	}
	c.bridge.Stop()
	if Mode(c.mode.Load()) == Leader {
		c.OnJump()
	}
}

// OnPulse runs on every pulse-task tick, in any sequencer state. Two
// duties: catch the external stop edge that the callback path can
// miss, and catch playhead moves made while the sequencer is stopped
// (no jump hook fires for those). Called from the pulse goroutine;
// atomic loads only, no allocation.
func (c *Controller) OnPulse() {
	if c.follow.Load() && c.bridge.JustStopped() {
		// Deliver the pause directly; the adapter's own gates
		// (exporting, on, redundancy) still apply.
		c.SetPlaying(false)
	}
	if c.seq.IsStopped() {
		frame := c.seq.CurrentFrame()
		if c.lead.Load() && c.on.Load() && int64(frame) != c.lastObservedFrame.Load() {
			c.lastObservedFrame.Store(int64(frame))
			c.OnJump()
		}
	}
}

// SetPlaying implements Adapter. Redundant requests (already playing,
// already paused) are dropped; a stopped sequencer is started rather
// than un-paused.
func (c *Controller) SetPlaying(playing bool) {
	if c.seq.IsExporting() || !c.on.Load() || c.seq.IsPlaying() == playing {
		return
	}
	if c.seq.IsStopped() {
		c.seq.Play()
	} else {
		c.seq.TogglePause()
	}
}

// SetPosition implements Adapter. Applies only on the song timeline;
// pattern and clip previews keep their own positions.
func (c *Controller) SetPosition(frame Frame) {
	if c.seq.IsExporting() || !c.on.Load() || c.seq.PlayMode() != PlaySong {
		return
	}
	c.seq.SeekTo(TimePos(float64(frame) / c.graph.FramesPerTick()))
}

// SampleRate implements Adapter.
func (c *Controller) SampleRate() uint32 {
	return c.graph.OutputSampleRate()
}
