// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"slices"
	"testing"
)

func TestControllerInitialState(t *testing.T) {
	h := newHarness(t)

	if got := h.ctrl.Mode(); got != Leader {
		t.Errorf("initial mode = %v, want %v", got, Leader)
	}
	if h.ctrl.Enabled() {
		t.Error("sync enabled before any toggle")
	}
	if !h.ctrl.Available() {
		t.Error("controller unavailable with a connection attached")
	}
	if !h.ctrl.lead.Load() || h.ctrl.follow.Load() {
		t.Error("initial flags should be lead without follow")
	}
}

func TestControllerSetModeFlags(t *testing.T) {
	tests := []struct {
		mode       Mode
		lead       bool
		follow     bool
		registered bool
	}{
		{Leader, true, false, false},
		{Follower, false, true, true},
		{Duplex, true, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			h := newHarness(t)
			h.ctrl.SetMode(tt.mode)

			if got := h.ctrl.Mode(); got != tt.mode {
				t.Errorf("Mode() = %v, want %v", got, tt.mode)
			}
			if got := h.ctrl.lead.Load(); got != tt.lead {
				t.Errorf("lead = %v, want %v", got, tt.lead)
			}
			if got := h.ctrl.follow.Load(); got != tt.follow {
				t.Errorf("follow = %v, want %v", got, tt.follow)
			}
			if got := h.conn.syncCallback() != nil; got != tt.registered {
				t.Errorf("callback registered = %v, want %v", got, tt.registered)
			}
		})
	}
}

func TestControllerToggleModeCycle(t *testing.T) {
	h := newHarness(t)

	want := []Mode{Follower, Duplex, Leader}
	for i, w := range want {
		if got := h.ctrl.ToggleMode(); got != w {
			t.Fatalf("toggle %d returned %v, want %v", i+1, got, w)
		}
		if got := h.ctrl.Mode(); got != w {
			t.Fatalf("toggle %d left mode %v, want %v", i+1, got, w)
		}
	}
}

func TestControllerUnavailable(t *testing.T) {
	b := NewBridge(testLogger())
	seq := &fakeSequencer{stopped: true}
	ctrl := NewController(b, seq, &fakeGraph{sampleRate: 48000, framesPerTick: 480}, testLogger())

	if ctrl.Available() {
		t.Fatal("controller reports available without a connection")
	}
	if got := ctrl.ToggleMode(); got != Leader {
		t.Errorf("ToggleMode() = %v, want unchanged %v", got, Leader)
	}
	ctrl.SetMode(Duplex)
	if got := ctrl.Mode(); got != Leader {
		t.Errorf("SetMode changed the mode to %v while unavailable", got)
	}
	if ctrl.ToggleEnabled() {
		t.Error("ToggleEnabled() = true while unavailable")
	}
	if ctrl.Enabled() {
		t.Error("sync ended up enabled while unavailable")
	}
}

func TestControllerSetModeOff(t *testing.T) {
	h := newHarness(t)
	h.ctrl.SetMode(Duplex)
	if !h.ctrl.ToggleEnabled() {
		t.Fatal("enabling sync failed")
	}

	h.ctrl.SetMode(Off)

	if h.ctrl.Enabled() {
		t.Error("Off must clear the master switch")
	}
	if got := h.ctrl.Mode(); got != Duplex {
		t.Errorf("Off changed the stored mode to %v", got)
	}
	if !h.ctrl.follow.Load() || !h.ctrl.lead.Load() {
		t.Error("Off must leave the direction flags alone")
	}
	// Re-enabling restores the previous role without another SetMode.
	if !h.ctrl.ToggleEnabled() {
		t.Error("re-enabling after Off failed")
	}
}

func TestControllerToggleEnabled(t *testing.T) {
	h := newHarness(t)

	if !h.ctrl.ToggleEnabled() {
		t.Fatal("first toggle should enable")
	}
	if h.ctrl.ToggleEnabled() {
		t.Fatal("second toggle should disable")
	}

	// A connection loss forces the switch off, even mid-toggle.
	if !h.ctrl.ToggleEnabled() {
		t.Fatal("third toggle should enable")
	}
	h.bridge.Detach()
	if h.ctrl.ToggleEnabled() {
		t.Error("toggle while unavailable must force off")
	}
	if h.ctrl.Enabled() {
		t.Error("sync still enabled after forced off")
	}
}

func TestControllerOnJump(t *testing.T) {
	t.Run("leader pushes position", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.ToggleEnabled()
		h.seq.setFrame(960)

		h.ctrl.OnJump()

		want := []string{"locate(960)"}
		if got := h.conn.opLog(); !slices.Equal(got, want) {
			t.Errorf("ops = %v, want %v", got, want)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		h := newHarness(t)
		h.seq.setFrame(960)
		h.ctrl.OnJump()
		if got := h.conn.opLog(); len(got) != 0 {
			t.Errorf("ops = %v, want none", got)
		}
	})

	t.Run("exporting", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.ToggleEnabled()
		h.seq.setExporting(true)
		h.ctrl.OnJump()
		if got := h.conn.opLog(); len(got) != 0 {
			t.Errorf("ops = %v, want none", got)
		}
	})

	t.Run("follower", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.SetMode(Follower)
		h.ctrl.ToggleEnabled()
		h.ctrl.OnJump()
		if got := h.conn.opLog(); len(got) != 0 {
			t.Errorf("ops = %v, want none", got)
		}
	})
}

func TestControllerOnStart(t *testing.T) {
	t.Run("leader reasserts position", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.ToggleEnabled()
		h.seq.setFrame(960)

		h.ctrl.OnStart()

		want := []string{"start", "locate(960)"}
		if got := h.conn.opLog(); !slices.Equal(got, want) {
			t.Errorf("ops = %v, want %v", got, want)
		}
	})

	t.Run("follower starts without locate", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.SetMode(Follower)
		h.ctrl.ToggleEnabled()
		h.seq.setFrame(960)

		h.ctrl.OnStart()

		want := []string{"start"}
		if got := h.conn.opLog(); !slices.Equal(got, want) {
			t.Errorf("ops = %v, want %v", got, want)
		}
	})

	t.Run("duplex starts without locate", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.SetMode(Duplex)
		h.ctrl.ToggleEnabled()
		h.seq.setFrame(960)

		h.ctrl.OnStart()

		want := []string{"start"}
		if got := h.conn.opLog(); !slices.Equal(got, want) {
			t.Errorf("ops = %v, want %v", got, want)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.OnStart()
		if got := h.conn.opLog(); len(got) != 0 {
			t.Errorf("ops = %v, want none", got)
		}
	})
}

func TestControllerOnStop(t *testing.T) {
	t.Run("leader reasserts position", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.ToggleEnabled()
		h.seq.setFrame(960)

		h.ctrl.OnStop()

		want := []string{"stop", "locate(960)"}
		if got := h.conn.opLog(); !slices.Equal(got, want) {
			t.Errorf("ops = %v, want %v", got, want)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.OnStop()
		if got := h.conn.opLog(); len(got) != 0 {
			t.Errorf("ops = %v, want none", got)
		}
	})
}

func TestControllerSetPlaying(t *testing.T) {
	t.Run("stopped starts playback", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.ToggleEnabled()

		h.ctrl.SetPlaying(true)

		if got := h.seq.playCount(); got != 1 {
			t.Errorf("Play called %d times, want 1", got)
		}
		if got := h.seq.pauseToggleCount(); got != 0 {
			t.Errorf("TogglePause called %d times, want 0", got)
		}
	})

	t.Run("paused resumes with toggle", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.ToggleEnabled()
		h.seq.setStopped(false)

		h.ctrl.SetPlaying(true)

		if got := h.seq.playCount(); got != 0 {
			t.Errorf("Play called %d times, want 0", got)
		}
		if got := h.seq.pauseToggleCount(); got != 1 {
			t.Errorf("TogglePause called %d times, want 1", got)
		}
	})

	t.Run("playing pauses with toggle", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.ToggleEnabled()
		h.seq.setPlaying(true)

		h.ctrl.SetPlaying(false)

		if h.seq.IsPlaying() {
			t.Error("sequencer still playing")
		}
		if got := h.seq.pauseToggleCount(); got != 1 {
			t.Errorf("TogglePause called %d times, want 1", got)
		}
	})

	t.Run("redundant play ignored", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.ToggleEnabled()
		h.seq.setPlaying(true)

		h.ctrl.SetPlaying(true)

		if h.seq.playCount() != 0 || h.seq.pauseToggleCount() != 0 {
			t.Error("redundant play request reached the sequencer")
		}
	})

	t.Run("redundant pause ignored", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.ToggleEnabled()

		h.ctrl.SetPlaying(false)

		if h.seq.playCount() != 0 || h.seq.pauseToggleCount() != 0 {
			t.Error("redundant pause request reached the sequencer")
		}
	})

	t.Run("disabled ignored", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.SetPlaying(true)
		if h.seq.playCount() != 0 || h.seq.pauseToggleCount() != 0 {
			t.Error("request applied with sync off")
		}
	})

	t.Run("exporting ignored", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.ToggleEnabled()
		h.seq.setExporting(true)
		h.ctrl.SetPlaying(true)
		if h.seq.playCount() != 0 || h.seq.pauseToggleCount() != 0 {
			t.Error("request applied while exporting")
		}
	})
}

func TestControllerSetPosition(t *testing.T) {
	t.Run("song mode seeks", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.ToggleEnabled()

		h.ctrl.SetPosition(4800)

		if got, want := h.seq.seekLog(), []TimePos{10}; !slices.Equal(got, want) {
			t.Errorf("seeks = %v, want %v", got, want)
		}
	})

	t.Run("pattern mode ignored", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.ToggleEnabled()
		h.seq.setPlayMode(PlayPattern)

		h.ctrl.SetPosition(4800)

		if got := h.seq.seekLog(); len(got) != 0 {
			t.Errorf("seeks = %v, want none", got)
		}
	})

	t.Run("disabled ignored", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.SetPosition(4800)
		if got := h.seq.seekLog(); len(got) != 0 {
			t.Errorf("seeks = %v, want none", got)
		}
	})

	t.Run("exporting ignored", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.ToggleEnabled()
		h.seq.setExporting(true)
		h.ctrl.SetPosition(4800)
		if got := h.seq.seekLog(); len(got) != 0 {
			t.Errorf("seeks = %v, want none", got)
		}
	})
}

func TestControllerSampleRate(t *testing.T) {
	h := newHarness(t)
	if got := h.ctrl.SampleRate(); got != 48000 {
		t.Errorf("SampleRate() = %d, want 48000", got)
	}
}

func TestControllerOnPulseStopEdge(t *testing.T) {
	h := newHarness(t)
	h.ctrl.SetMode(Duplex)
	if !h.ctrl.ToggleEnabled() {
		t.Fatal("enabling sync failed")
	}
	h.seq.setPlaying(true)
	h.conn.setState(Rolling, 0)

	h.ctrl.OnPulse()
	if got := h.seq.pauseToggleCount(); got != 0 {
		t.Fatalf("pause delivered with the service rolling (%d toggles)", got)
	}

	h.conn.setState(Stopped, 0)
	h.ctrl.OnPulse()
	if got := h.seq.pauseToggleCount(); got != 1 {
		t.Fatalf("TogglePause called %d times after stop edge, want 1", got)
	}
	if h.seq.IsPlaying() {
		t.Error("sequencer still playing after stop edge")
	}

	// The edge fires once; further stopped polls are quiet.
	h.ctrl.OnPulse()
	if got := h.seq.pauseToggleCount(); got != 1 {
		t.Errorf("TogglePause called %d times after repeat poll, want 1", got)
	}
}

func TestControllerOnPulseSkipsPollUnlessFollowing(t *testing.T) {
	h := newHarness(t)
	h.ctrl.ToggleEnabled()

	h.ctrl.OnPulse()

	if got := h.conn.queryCount(); got != 0 {
		t.Errorf("leader pulse polled the service %d times", got)
	}
}

func TestControllerOnPulseStopEdgeKeepsGates(t *testing.T) {
	h := newHarness(t)
	h.ctrl.SetMode(Duplex)
	h.seq.setPlaying(true)
	h.conn.setState(Rolling, 0)
	h.ctrl.OnPulse()
	h.conn.setState(Stopped, 0)

	// Master switch is off: the edge is observed but the pause is
	// dropped by the adapter gate.
	h.ctrl.OnPulse()

	if got := h.seq.pauseToggleCount(); got != 0 {
		t.Errorf("pause applied with sync off (%d toggles)", got)
	}
}

func TestControllerOnPulseJumpDetection(t *testing.T) {
	h := newHarness(t)
	h.ctrl.ToggleEnabled()

	// Frame zero matches the initial observation: quiet.
	h.ctrl.OnPulse()
	if got := h.conn.opLog(); len(got) != 0 {
		t.Fatalf("ops = %v, want none", got)
	}

	h.seq.setFrame(777)
	h.ctrl.OnPulse()
	want := []string{"locate(777)"}
	if got := h.conn.opLog(); !slices.Equal(got, want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}

	// Unchanged position: exactly one locate per move.
	h.ctrl.OnPulse()
	if got := h.conn.opLog(); !slices.Equal(got, want) {
		t.Fatalf("ops = %v, want %v", got, want)
	}

	h.seq.setFrame(960)
	h.ctrl.OnPulse()
	want = []string{"locate(777)", "locate(960)"}
	if got := h.conn.opLog(); !slices.Equal(got, want) {
		t.Errorf("ops = %v, want %v", got, want)
	}
}

func TestControllerOnPulseJumpGates(t *testing.T) {
	t.Run("playing", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.ToggleEnabled()
		h.seq.setPlaying(true)
		h.seq.setFrame(777)

		h.ctrl.OnPulse()

		if got := h.conn.opLog(); len(got) != 0 {
			t.Errorf("ops = %v, want none while playing", got)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		h := newHarness(t)
		h.seq.setFrame(777)
		h.ctrl.OnPulse()
		if got := h.conn.opLog(); len(got) != 0 {
			t.Errorf("ops = %v, want none with sync off", got)
		}
	})

	t.Run("follower", func(t *testing.T) {
		h := newHarness(t)
		h.ctrl.SetMode(Follower)
		h.ctrl.ToggleEnabled()
		h.seq.setFrame(777)
		h.ctrl.OnPulse()
		if got := h.conn.opLog(); len(got) != 0 {
			t.Errorf("ops = %v, want none in follower mode", got)
		}
	})
}

func TestControllerModeReappliedAfterReattach(t *testing.T) {
	h := newHarness(t)
	h.ctrl.SetMode(Follower)

	h.bridge.Detach()
	if got := h.ctrl.Mode(); got != Follower {
		t.Fatalf("mode = %v after detach, want %v", got, Follower)
	}

	h.bridge.Attach(h.conn)
	if h.conn.syncCallback() != nil {
		t.Fatal("reattach must not register the callback on its own")
	}

	h.ctrl.SetMode(h.ctrl.Mode())
	if h.conn.syncCallback() == nil {
		t.Error("re-applying the mode should register the callback")
	}
}
