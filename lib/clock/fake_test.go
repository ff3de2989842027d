// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sync"
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	c := Fake(epoch)
	if got := c.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	c.Advance(5 * time.Second)
	want := epoch.Add(5 * time.Second)
	if got := c.Now(); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockAfterFiresOnAdvance(t *testing.T) {
	c := Fake(epoch)
	ch := c.After(3 * time.Second)

	select {
	case <-ch:
		t.Fatal("After fired before Advance")
	default:
	}

	c.Advance(3 * time.Second)

	select {
	case <-ch:
	default:
		t.Fatal("After did not fire after Advance")
	}
}

func TestFakeClockAfterNonPositiveDuration(t *testing.T) {
	c := Fake(epoch)
	for _, d := range []time.Duration{0, -time.Second} {
		select {
		case <-c.After(d):
		default:
			t.Fatalf("After(%v) should fire immediately", d)
		}
	}
}

func TestFakeClockAfterPartialAdvance(t *testing.T) {
	c := Fake(epoch)
	ch := c.After(5 * time.Second)

	c.Advance(3 * time.Second)
	select {
	case <-ch:
		t.Fatal("After fired before deadline")
	default:
	}

	c.Advance(2 * time.Second)
	select {
	case <-ch:
	default:
		t.Fatal("After did not fire at exact deadline")
	}
}

func TestFakeClockNewTicker(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(1 * time.Second)
	defer ticker.Stop()

	select {
	case <-ticker.C:
		t.Fatal("ticker fired before first interval")
	default:
	}

	for i := 0; i < 2; i++ {
		c.Advance(1 * time.Second)
		select {
		case <-ticker.C:
		default:
			t.Fatalf("ticker did not fire after interval %d", i+1)
		}
	}
}

func TestFakeClockTickerStop(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(1 * time.Second)

	ticker.Stop()
	c.Advance(5 * time.Second)

	select {
	case <-ticker.C:
		t.Fatal("ticker fired after Stop()")
	default:
	}
}

func TestFakeClockTickerReset(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(5 * time.Second)
	defer ticker.Stop()

	ticker.Reset(1 * time.Second)

	c.Advance(1 * time.Second)
	select {
	case <-ticker.C:
	default:
		t.Fatal("ticker did not fire after Reset to shorter interval")
	}
}

func TestFakeClockTickerPanicsOnNonPositive(t *testing.T) {
	c := Fake(epoch)
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("NewTicker(0) should panic")
		}
	}()
	c.NewTicker(0)
}

func TestFakeClockTickerDropsTicks(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(1 * time.Second)
	defer ticker.Stop()

	// Five periods pass without a read; buffer capacity is 1.
	c.Advance(5 * time.Second)

	select {
	case <-ticker.C:
	default:
		t.Fatal("expected one buffered tick")
	}
	select {
	case <-ticker.C:
		t.Fatal("expected overflow ticks to be dropped")
	default:
	}
}

func TestFakeClockSleep(t *testing.T) {
	c := Fake(epoch)

	done := make(chan struct{})
	go func() {
		c.Sleep(3 * time.Second)
		close(done)
	}()

	c.WaitForTimers(1)
	c.Advance(3 * time.Second)

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Sleep did not return after Advance")
	}
}

func TestFakeClockSleepNonPositive(t *testing.T) {
	c := Fake(epoch)
	c.Sleep(0)
	c.Sleep(-1 * time.Second)
}

func TestFakeClockWaitForTimers(t *testing.T) {
	c := Fake(epoch)

	for i := 0; i < 3; i++ {
		go func() {
			c.Sleep(5 * time.Second)
		}()
	}

	c.WaitForTimers(3)

	if got := c.PendingCount(); got != 3 {
		t.Fatalf("PendingCount() = %d, want 3", got)
	}
}

func TestFakeClockPendingCountExcludesStopped(t *testing.T) {
	c := Fake(epoch)
	ticker := c.NewTicker(1 * time.Second)
	c.After(2 * time.Second)

	if got := c.PendingCount(); got != 2 {
		t.Fatalf("PendingCount() = %d, want 2", got)
	}

	ticker.Stop()
	if got := c.PendingCount(); got != 1 {
		t.Fatalf("PendingCount() after ticker stop = %d, want 1", got)
	}
}

func TestFakeClockPendingCountExcludesFired(t *testing.T) {
	c := Fake(epoch)
	c.After(1 * time.Second)
	c.After(3 * time.Second)

	c.Advance(2 * time.Second)
	if got := c.PendingCount(); got != 1 {
		t.Fatalf("PendingCount() after first fires = %d, want 1", got)
	}
}

func TestClockImplementations(t *testing.T) {
	var _ Clock = (*FakeClock)(nil)
	var _ Clock = Real()
}

func TestFakeClockConcurrentAccess(t *testing.T) {
	c := Fake(epoch)
	const goroutines = 10

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			c.After(1 * time.Second)
			c.Now()
		}()
	}
	wg.Wait()

	c.WaitForTimers(goroutines)
	c.Advance(1 * time.Second)
}
