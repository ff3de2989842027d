// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/lockstep-audio/lockstep/graph"
	"github.com/lockstep-audio/lockstep/lib/codec"
	"github.com/lockstep-audio/lockstep/lib/service"
	"github.com/lockstep-audio/lockstep/lib/version"
	"github.com/lockstep-audio/lockstep/transport"
)

// registerActions wires the daemon's socket actions. Everything
// except subscribe is request-response; subscribe takes over the
// connection for streaming.
func (d *Daemon) registerActions(server *service.SocketServer) {
	server.Handle(graph.ActionStatus, d.handleStatus)
	server.Handle(graph.ActionQuery, d.handleQuery)
	server.Handle(graph.ActionStart, d.handleStart)
	server.Handle(graph.ActionStop, d.handleStop)
	server.Handle(graph.ActionLocate, d.handleLocate)
	server.HandleStream(graph.ActionSubscribe, d.handleSubscribe)
}

func (d *Daemon) handleStatus(ctx context.Context, raw []byte) (any, error) {
	state, frame := d.timeline.snapshot()
	return graph.StatusResponse{
		Version:       version.Info(),
		UptimeSeconds: int64(d.clock.Now().Sub(d.startedAt).Seconds()),
		State:         state,
		Frame:         frame,
		SampleRate:    d.sampleRate,
		FramesPerTick: d.framesPerTick,
		Subscribers:   d.registry.count(),
	}, nil
}

func (d *Daemon) handleQuery(ctx context.Context, raw []byte) (any, error) {
	state, frame := d.timeline.snapshot()
	return graph.QueryResponse{State: state, Frame: frame}, nil
}

func (d *Daemon) handleStart(ctx context.Context, raw []byte) (any, error) {
	_, frame := d.timeline.snapshot()
	d.journalCommand(graph.ActionStart, frame)
	d.timeline.start()
	return d.handleQuery(ctx, raw)
}

func (d *Daemon) handleStop(ctx context.Context, raw []byte) (any, error) {
	_, frame := d.timeline.snapshot()
	d.journalCommand(graph.ActionStop, frame)
	d.timeline.stop()
	return d.handleQuery(ctx, raw)
}

func (d *Daemon) handleLocate(ctx context.Context, raw []byte) (any, error) {
	var request graph.LocateRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("decoding locate request: %w", err)
	}
	if request.Frame < 0 {
		return nil, fmt.Errorf("locate frame must be non-negative, got %d", request.Frame)
	}
	d.journalCommand(graph.ActionLocate, request.Frame)
	d.timeline.locate(request.Frame)
	return d.handleQuery(ctx, raw)
}

func (d *Daemon) journalCommand(action string, frame transport.Frame) {
	if d.journal != nil {
		d.journal.recordCommand(action, frame)
	}
}
