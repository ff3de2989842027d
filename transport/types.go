// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "fmt"

// Frame is a position on the shared timeline, counted in audio samples
// from the start of the song.
type Frame int64

// TimePos is a position in the sequencer's native tick unit. Frames
// convert to ticks through the audio graph's frames-per-tick ratio.
type TimePos int64

// PlayMode is what the sequencer is currently playing. The engine only
// distinguishes the song timeline from everything else: inbound
// position changes apply in PlaySong and nowhere else.
type PlayMode int

const (
	// PlaySong is the primary song-timeline mode.
	PlaySong PlayMode = iota
	// PlayPattern covers the pattern and clip preview modes.
	PlayPattern
)

// RawState is the transport state reported by the external service.
type RawState int32

const (
	// Stopped means the transport is halted.
	Stopped RawState = iota
	// Starting means a start was requested and the service is holding
	// until slow clients catch up.
	Starting
	// Rolling means the transport is running and the frame advances.
	Rolling
)

func (s RawState) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Rolling:
		return "rolling"
	default:
		return fmt.Sprintf("rawstate(%d)", int32(s))
	}
}

// MarshalText encodes the state as its lowercase name. Wire frames and
// journal records carry states as text.
func (s RawState) MarshalText() ([]byte, error) {
	switch s {
	case Stopped, Starting, Rolling:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("unknown transport state %d", int32(s))
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *RawState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "stopped":
		*s = Stopped
	case "starting":
		*s = Starting
	case "rolling":
		*s = Rolling
	default:
		return fmt.Errorf("unknown transport state %q", text)
	}
	return nil
}

// Mode selects which directions transport state flows between the
// sequencer and the external service.
type Mode int32

const (
	// Leader: the sequencer pushes state out and ignores inbound
	// events.
	Leader Mode = iota
	// Follower: the sequencer accepts inbound state and never pushes.
	Follower
	// Duplex: both directions active.
	Duplex
)

// Off is a control-surface sentinel accepted by Controller.SetMode: it
// turns the master switch off. It is never stored as the active mode.
const Off Mode = -1

func (m Mode) String() string {
	switch m {
	case Leader:
		return "leader"
	case Follower:
		return "follower"
	case Duplex:
		return "duplex"
	case Off:
		return "off"
	default:
		return fmt.Sprintf("mode(%d)", int32(m))
	}
}

// MarshalText encodes the mode as its lowercase name.
func (m Mode) MarshalText() ([]byte, error) {
	switch m {
	case Leader, Follower, Duplex, Off:
		return []byte(m.String()), nil
	}
	return nil, fmt.Errorf("unknown sync mode %d", int32(m))
}

// UnmarshalText decodes a mode name produced by MarshalText.
func (m *Mode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "leader":
		*m = Leader
	case "follower":
		*m = Follower
	case "duplex":
		*m = Duplex
	case "off":
		*m = Off
	default:
		return fmt.Errorf("unknown sync mode %q", text)
	}
	return nil
}

// SyncFunc receives external transport state changes: the new raw
// state and the position it applies to. The return value reports
// whether the receiver is ready for the transport to roll; a service
// holding in Starting may wait on it. The bridge's callback always
// reports ready.
type SyncFunc func(state RawState, frame Frame) bool

// Sequencer is the local player the engine keeps in lockstep with the
// external transport service. The engine calls these methods from both
// the sequencer thread and the service's callback context, so
// implementations must tolerate either.
type Sequencer interface {
	IsPlaying() bool
	IsStopped() bool
	IsExporting() bool

	// CurrentFrame is the playhead position in frames.
	CurrentFrame() Frame

	// Play starts playback from the current position.
	Play()

	// TogglePause flips between playing and paused without moving the
	// playhead.
	TogglePause()

	// SeekTo moves the playhead.
	SeekTo(pos TimePos)

	// PlayMode reports what is being played.
	PlayMode() PlayMode
}

// AudioGraph exposes the audio-graph quantities the engine needs for
// unit conversion.
type AudioGraph interface {
	// OutputSampleRate is the graph's current output rate in Hz.
	OutputSampleRate() uint32

	// FramesPerTick is the current frames-per-sequencer-tick ratio.
	FramesPerTick() float64
}

// Conn is a live connection to the external transport service. The
// graph package provides implementations; anything satisfying this
// interface can be attached to a Bridge.
//
// Start, Stop, and Locate are fire-and-forget requests. Query and
// SetSyncCallback must not block: the pulse task calls them on every
// tick and the callback context may be a realtime thread.
type Conn interface {
	// Start requests the transport to begin rolling.
	Start()

	// Stop requests the transport to halt.
	Stop()

	// Locate requests relocation to frame.
	Locate(frame Frame)

	// Query returns the current transport state and position.
	Query() (RawState, Frame)

	// SetSyncCallback registers fn to be invoked on state changes.
	// A nil fn unregisters. Registration is idempotent.
	SetSyncCallback(fn SyncFunc)
}

// Adapter is the inbound half of the engine: the bridge maps external
// state changes onto these three calls. Controller implements it; the
// indirection keeps mode logic out of the bridge.
type Adapter interface {
	// SetPlaying asks the sequencer to play (true) or pause (false).
	SetPlaying(playing bool)

	// SetPosition asks the sequencer to seek to frame.
	SetPosition(frame Frame)

	// SampleRate reports the sequencer side's sample rate, for
	// services that convert wall time to frames.
	SampleRate() uint32
}
