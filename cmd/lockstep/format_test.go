// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"testing"

	"github.com/lockstep-audio/lockstep/transport"
)

func TestFormatFrameTime(t *testing.T) {
	tests := []struct {
		name       string
		frame      transport.Frame
		sampleRate uint32
		want       string
	}{
		{"zero", 0, 48000, "00:00.000"},
		{"one second", 48000, 48000, "00:01.000"},
		{"one millisecond", 48, 48000, "00:00.001"},
		{"half second", 24000, 48000, "00:00.500"},
		{"minute and a half", 4344000, 48000, "01:30.500"},
		{"minutes past two digits", 360000000, 48000, "125:00.000"},
		{"different rate", 44100, 44100, "00:01.000"},
		{"unknown rate", 48000, 0, "--:--.---"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := formatFrameTime(test.frame, test.sampleRate)
			if got != test.want {
				t.Errorf("formatFrameTime(%d, %d) = %q, want %q",
					test.frame, test.sampleRate, got, test.want)
			}
		})
	}
}

func TestParsePosition(t *testing.T) {
	tests := []struct {
		input string
		want  transport.Frame
	}{
		{"0", 0},
		{"48000", 48000},
		{"007", 7},
		{"1:00", 2880000},
		{"01:30", 4320000},
		{"01:30.5", 4344000},
		{"01:30.500", 4344000},
		{"00:00.001", 48},
		{"02:03.045", 5906160},
		{"125:00", 360000000},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got, err := parsePosition(test.input, 48000)
			if err != nil {
				t.Fatalf("parsePosition(%q) failed: %v", test.input, err)
			}
			if got != test.want {
				t.Errorf("parsePosition(%q) = %d, want %d", test.input, got, test.want)
			}
		})
	}
}

func TestParsePositionErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"negative frame", "-5"},
		{"not a number", "abc"},
		{"seconds out of range", "1:60"},
		{"negative seconds", "1:-5"},
		{"missing minutes", ":30"},
		{"garbage minutes", "x:30"},
		{"garbage seconds", "1:2x"},
		{"fraction too long", "1:30.1234"},
		{"empty fraction", "1:30."},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := parsePosition(test.input, 48000); err == nil {
				t.Errorf("parsePosition(%q) succeeded, want error", test.input)
			}
		})
	}
}
