// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"time"

	"github.com/lockstep-audio/lockstep/lib/clock"
)

// DefaultPulseInterval is the pulse rate used when nothing else is
// configured. The pulse only has to beat human-scale edits (playhead
// drags, stop buttons), not audio-rate events.
const DefaultPulseInterval = 50 * time.Millisecond

// Pulse periodically drives Controller.OnPulse from a background
// goroutine. It exists because two of the engine's duties are not
// event-driven: the external stop edge must be polled for, and a
// playhead move on a stopped sequencer fires no hook.
type Pulse struct {
	ctrl     *Controller
	interval time.Duration
	clock    clock.Clock

	cancel context.CancelFunc
	done   chan struct{}
}

// NewPulse creates a pulse task driving ctrl every interval. The clock
// is injected so tests advance ticks explicitly.
func NewPulse(ctrl *Controller, interval time.Duration, clk clock.Clock) *Pulse {
	return &Pulse{
		ctrl:     ctrl,
		interval: interval,
		clock:    clk,
	}
}

// Start launches the pulse goroutine and returns immediately. The
// goroutine runs until Stop is called or ctx is cancelled. Start must
// be called at most once.
func (p *Pulse) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.run(ctx)
}

func (p *Pulse) run(ctx context.Context) {
	defer close(p.done)
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.ctrl.OnPulse()
		}
	}
}

// Stop cancels the pulse task and waits for the goroutine to exit.
// Detach the bridge only after Stop returns: the join guarantees no
// pulse invocation races a torn-down connection. Safe to call without
// a prior Start, and more than once.
func (p *Pulse) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}
