// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package graph

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"github.com/lockstep-audio/lockstep/lib/codec"
	"github.com/lockstep-audio/lockstep/lib/service"
	"github.com/lockstep-audio/lockstep/transport"
)

// Backoff parameters for reconnection after stream disconnects.
const (
	initialBackoff = 1 * time.Second
	maxBackoff     = 30 * time.Second
)

// commandQueueSize bounds the outbound command channel. Transport
// commands are human-scale (play button, playhead drags); a full
// queue means the daemon is unreachable and dropping is the right
// call.
const commandQueueSize = 64

// Client is a [transport.Conn] backed by a running lockstep-graphd.
//
// A background stream goroutine holds a subscribe connection to the
// daemon, mirrors every received frame into atomics, and invokes the
// registered sync callback on state changes. Query reads the atomics,
// so it never blocks regardless of daemon health. Outbound commands
// are enqueued to a sender goroutine issuing one-shot socket calls;
// Start, Stop, and Locate therefore never block either.
//
// The stream reconnects with exponential backoff. While disconnected,
// Query keeps returning the last mirrored state.
type Client struct {
	socketPath string
	logger     *slog.Logger

	state     atomic.Int32
	frame     atomic.Int64
	connected atomic.Bool

	// callback holds the registered transport.SyncFunc. A pointer so
	// the swap is a single atomic word; nil means unregistered.
	callback atomic.Pointer[transport.SyncFunc]

	commands   chan command
	cancel     context.CancelFunc
	streamDone chan struct{}
	senderDone chan struct{}
}

// command is one queued outbound transport request.
type command struct {
	action string
	frame  transport.Frame
}

// Dial creates a client for the daemon at socketPath and starts its
// background goroutines. Dial itself does not touch the network: the
// first connection attempt happens on the stream goroutine, and
// failures surface as reconnection backoff, not as a Dial error. Call
// Close to shut down.
func Dial(socketPath string, logger *slog.Logger) *Client {
	c := &Client{
		socketPath: socketPath,
		logger:     logger,
		commands:   make(chan command, commandQueueSize),
		streamDone: make(chan struct{}),
		senderDone: make(chan struct{}),
	}
	c.state.Store(int32(transport.Stopped))

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	go c.streamLoop(ctx)
	go c.senderLoop(ctx)
	return c
}

// Close shuts down the stream and sender goroutines and waits for
// both. Safe to call more than once.
func (c *Client) Close() {
	c.cancel()
	<-c.streamDone
	<-c.senderDone
}

// Connected reports whether the subscribe stream is currently up.
// Diagnostic only; the engine decides availability by attachment, not
// by connection health.
func (c *Client) Connected() bool {
	return c.connected.Load()
}

// Start implements [transport.Conn].
func (c *Client) Start() {
	c.enqueue(command{action: ActionStart})
}

// Stop implements [transport.Conn].
func (c *Client) Stop() {
	c.enqueue(command{action: ActionStop})
}

// Locate implements [transport.Conn].
func (c *Client) Locate(frame transport.Frame) {
	c.enqueue(command{action: ActionLocate, frame: frame})
}

// Query implements [transport.Conn]: the last state mirrored from the
// stream. Atomic loads only.
func (c *Client) Query() (transport.RawState, transport.Frame) {
	return transport.RawState(c.state.Load()), transport.Frame(c.frame.Load())
}

// SetSyncCallback implements [transport.Conn].
func (c *Client) SetSyncCallback(fn transport.SyncFunc) {
	if fn == nil {
		c.callback.Store(nil)
		return
	}
	c.callback.Store(&fn)
}

func (c *Client) enqueue(cmd command) {
	select {
	case c.commands <- cmd:
	default:
		c.logger.Warn("command queue full, dropping", "action", cmd.action)
	}
}

// senderLoop drains the command queue, issuing one socket call per
// command. Command failures are logged and dropped: the daemon is the
// authority, and a lost request is indistinguishable from a rejected
// one.
func (c *Client) senderLoop(ctx context.Context) {
	defer close(c.senderDone)
	client := service.NewClient(c.socketPath)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-c.commands:
			fields := map[string]any{}
			if cmd.action == ActionLocate {
				fields["frame"] = int64(cmd.frame)
			}
			if err := client.Call(ctx, cmd.action, fields, nil); err != nil {
				c.logger.Warn("transport command failed",
					"action", cmd.action,
					"error", err,
				)
			}
		}
	}
}

// streamLoop manages the subscribe connection lifecycle with
// exponential backoff reconnection. Runs until the context is
// cancelled.
func (c *Client) streamLoop(ctx context.Context) {
	defer close(c.streamDone)
	backoff := initialBackoff
	for {
		err := c.runStream(ctx)
		if ctx.Err() != nil {
			return
		}
		c.connected.Store(false)
		c.logger.Warn("state stream disconnected",
			"error", err,
			"backoff", backoff,
		)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

// runStream establishes a single subscribe connection, sends the
// handshake, and processes frames until the connection ends or the
// context is cancelled. Returns the error that ended the stream.
func (c *Client) runStream(ctx context.Context) error {
	conn, err := net.DialTimeout("unix", c.socketPath, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	// Close the connection when the context is cancelled. This
	// unblocks the decoder's Read call in processFrames.
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	request := map[string]any{"action": ActionSubscribe}
	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return fmt.Errorf("sending subscribe request: %w", err)
	}

	c.connected.Store(true)
	c.logger.Info("state stream connected", "socket", c.socketPath)

	return c.processFrames(codec.NewDecoder(conn))
}

// processFrames reads stream frames and mirrors them into the atomics.
// State and resync frames additionally invoke the sync callback;
// heartbeats only refresh the position. Returns when the connection
// closes, an error frame arrives, or a decode error occurs.
func (c *Client) processFrames(decoder *codec.Decoder) error {
	for {
		var frame StreamFrame
		if err := decoder.Decode(&frame); err != nil {
			return fmt.Errorf("reading frame: %w", err)
		}

		switch frame.Type {
		case FrameState, FrameResync:
			c.apply(frame, true)
		case FrameHeartbeat:
			c.apply(frame, false)
		case FrameError:
			return fmt.Errorf("server error: %s", frame.Message)
		default:
			// Forward compatibility: ignore unknown frame types.
			c.logger.Debug("unknown stream frame type", "type", frame.Type)
		}
	}
}

// apply mirrors a frame into the atomics and, for state changes,
// invokes the registered callback.
func (c *Client) apply(frame StreamFrame, change bool) {
	c.state.Store(int32(frame.State))
	c.frame.Store(int64(frame.Frame))
	if !change {
		return
	}
	if fn := c.callback.Load(); fn != nil {
		(*fn)(frame.State, frame.Frame)
	}
}
