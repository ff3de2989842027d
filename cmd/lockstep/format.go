// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lockstep-audio/lockstep/transport"
)

// formatFrameTime renders a frame count as MM:SS.mmm wall-clock time
// at the given sample rate. Minutes grow past two digits rather than
// rolling into hours.
func formatFrameTime(frame transport.Frame, sampleRate uint32) string {
	if sampleRate == 0 {
		return "--:--.---"
	}
	totalMillis := int64(frame) * 1000 / int64(sampleRate)
	minutes := totalMillis / 60000
	seconds := (totalMillis % 60000) / 1000
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d.%03d", minutes, seconds, millis)
}

// parsePosition converts a position argument into a frame count. Two
// forms are accepted: a bare non-negative integer is a frame count,
// and MM:SS or MM:SS.mmm is wall-clock time converted at the given
// sample rate.
func parsePosition(arg string, sampleRate uint32) (transport.Frame, error) {
	if arg == "" {
		return 0, fmt.Errorf("empty position")
	}

	if !strings.Contains(arg, ":") {
		frame, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("position %q is neither a frame count nor MM:SS.mmm", arg)
		}
		if frame < 0 {
			return 0, fmt.Errorf("frame count must be non-negative, got %d", frame)
		}
		return transport.Frame(frame), nil
	}

	minutesText, secondsPart, _ := strings.Cut(arg, ":")
	minutes, err := strconv.ParseInt(minutesText, 10, 64)
	if err != nil || minutes < 0 {
		return 0, fmt.Errorf("invalid minutes in %q", arg)
	}

	secondsText, fractionText, hasFraction := strings.Cut(secondsPart, ".")
	seconds, err := strconv.ParseInt(secondsText, 10, 64)
	if err != nil || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("invalid seconds in %q (want 00-59)", arg)
	}

	var millis int64
	if hasFraction {
		if len(fractionText) == 0 || len(fractionText) > 3 {
			return 0, fmt.Errorf("invalid fraction in %q (want 1-3 digits)", arg)
		}
		fraction, err := strconv.ParseInt(fractionText, 10, 64)
		if err != nil || fraction < 0 {
			return 0, fmt.Errorf("invalid fraction in %q", arg)
		}
		// Fractions are decimal: "…30.5" is half a second.
		millis = fraction
		for i := len(fractionText); i < 3; i++ {
			millis *= 10
		}
	}

	totalMillis := (minutes*60+seconds)*1000 + millis
	return transport.Frame(totalMillis * int64(sampleRate) / 1000), nil
}
