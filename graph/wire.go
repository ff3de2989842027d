// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import "github.com/lockstep-audio/lockstep/transport"

// Socket actions accepted by lockstep-graphd. start, stop, and locate
// are fire-and-forget transport requests; status and query are reads;
// subscribe switches the connection to a one-way stream of
// [StreamFrame] values.
const (
	ActionStatus    = "status"
	ActionQuery     = "query"
	ActionStart     = "start"
	ActionStop      = "stop"
	ActionLocate    = "locate"
	ActionSubscribe = "subscribe"
)

// Stream frame types. Every frame carries the current state and frame
// position; the type says why it was sent.
const (
	// FrameState announces a transport state change or relocation.
	FrameState = "state"
	// FrameHeartbeat is periodic liveness carrying a fresh position
	// snapshot. Not a state change.
	FrameHeartbeat = "heartbeat"
	// FrameResync re-delivers a full snapshot after the subscriber
	// fell behind and frames were dropped.
	FrameResync = "resync"
	// FrameError reports a fatal stream error; the server closes the
	// connection after sending it.
	FrameError = "error"
)

// StreamFrame is one frame on the subscribe stream.
type StreamFrame struct {
	Type    string             `cbor:"type"`
	State   transport.RawState `cbor:"state"`
	Frame   transport.Frame    `cbor:"frame"`
	Message string             `cbor:"message,omitempty"`
}

// StatusResponse is the reply to the status action.
type StatusResponse struct {
	Version       string             `cbor:"version"`
	UptimeSeconds int64              `cbor:"uptime_seconds"`
	State         transport.RawState `cbor:"state"`
	Frame         transport.Frame    `cbor:"frame"`
	SampleRate    uint32             `cbor:"sample_rate"`
	FramesPerTick float64            `cbor:"frames_per_tick"`
	Subscribers   int                `cbor:"subscribers"`
}

// QueryResponse is the reply to the query action.
type QueryResponse struct {
	State transport.RawState `cbor:"state"`
	Frame transport.Frame    `cbor:"frame"`
}

// LocateRequest is the body of the locate action.
type LocateRequest struct {
	Frame transport.Frame `cbor:"frame"`
}
