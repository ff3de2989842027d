// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"github.com/lockstep-audio/lockstep/graph"
	"github.com/lockstep-audio/lockstep/lib/codec"
)

// subscriber is a single connected subscribe stream. The channel
// receives frames from the timeline's broadcast path; the done
// channel is closed by the stream handler when the connection ends,
// letting the fan-out reap dead subscribers without waiting for the
// handler's own deregistration.
type subscriber struct {
	channel chan graph.StreamFrame
	resync  atomic.Bool
	done    <-chan struct{}
}

// subscriberChannelSize is the per-subscriber frame buffer. Transport
// events are human-scale, so overflow means the subscriber stopped
// reading; the frame is dropped and the subscriber marked for resync.
const subscriberChannelSize = 64

// registry tracks live subscribe streams for the fan-out.
type registry struct {
	logger *slog.Logger

	mu          sync.Mutex
	subscribers []*subscriber
}

func newRegistry(logger *slog.Logger) *registry {
	return &registry{logger: logger}
}

func (r *registry) add(sub *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, sub)
}

func (r *registry) remove(sub *subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.subscribers {
		if existing == sub {
			r.subscribers = append(r.subscribers[:i], r.subscribers[i+1:]...)
			return
		}
	}
}

func (r *registry) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subscribers)
}

// broadcast sends a frame to every live subscriber. Non-blocking
// sends only: a full channel marks the subscriber for resync, and a
// closed done channel drops the subscriber. Called with the timeline
// lock held, so it must never block.
func (r *registry) broadcast(frame graph.StreamFrame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	live := r.subscribers[:0]
	for _, sub := range r.subscribers {
		select {
		case <-sub.done:
			continue
		default:
		}
		live = append(live, sub)

		select {
		case sub.channel <- frame:
		default:
			sub.resync.Store(true)
		}
	}
	r.subscribers = live
}

// handleSubscribe is the stream handler for the subscribe action. It
// registers the subscriber, writes one snapshot frame, and forwards
// live frames until the connection or the daemon goes away.
//
// Registration happens before the snapshot is collected: a transition
// in the gap reaches the channel and is also reflected in the
// snapshot. Frames carry absolute state, so the duplicate is
// harmless, and the broadcast ordering under the timeline lock keeps
// everything after the snapshot in transition order.
func (d *Daemon) handleSubscribe(ctx context.Context, raw []byte, conn net.Conn) {
	encoder := codec.NewEncoder(conn)

	done := make(chan struct{})
	sub := &subscriber{
		channel: make(chan graph.StreamFrame, subscriberChannelSize),
		done:    done,
	}
	d.registry.add(sub)
	state, frame := d.timeline.snapshot()

	d.logger.Info("subscribe stream started", "state", state, "frame", frame)
	defer func() {
		close(done)
		d.registry.remove(sub)
		d.logger.Info("subscribe stream ended")
	}()

	if err := encoder.Encode(graph.StreamFrame{
		Type:  graph.FrameState,
		State: state,
		Frame: frame,
	}); err != nil {
		return
	}

	d.streamFrames(ctx, encoder, sub)
}

// streamFrames forwards frames from the subscriber channel to the
// connection. On overflow (resync flag set) the buffered frames are
// stale: drain them and send one resync frame carrying a fresh
// snapshot instead.
func (d *Daemon) streamFrames(ctx context.Context, encoder *codec.Encoder, sub *subscriber) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-sub.channel:
			if sub.resync.CompareAndSwap(true, false) {
				for len(sub.channel) > 0 {
					<-sub.channel
				}
				state, tlFrame := d.timeline.snapshot()
				frame = graph.StreamFrame{
					Type:  graph.FrameResync,
					State: state,
					Frame: tlFrame,
				}
			}
			if err := encoder.Encode(frame); err != nil {
				d.logger.Debug("subscribe stream write error", "error", err)
				return
			}
		}
	}
}
