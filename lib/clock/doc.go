// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction.
//
// Components that poll, tick, or time out take a [Clock] field instead
// of calling the time package directly. Production wiring passes
// [Real]; tests pass [Fake] and drive time by hand:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	p := transport.NewPulse(ctrl, interval, c)
//	p.Start(ctx)
//	c.WaitForTimers(1)       // pulse loop has registered its ticker
//	c.Advance(interval)      // fire exactly one tick
//
// WaitForTimers is the synchronization half of the fake: it blocks
// until the goroutine under test has registered its timer, removing
// the need for real sleeps in tests.
package clock
