// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/tidwall/jsonc"

	"github.com/lockstep-audio/lockstep/transport"
)

// watchTheme defines the color palette for the watch TUI. All colors
// use lipgloss ANSI 256-color codes for broad terminal compatibility.
type watchTheme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Transport state colors.
	StateStopped  lipgloss.Color
	StateStarting lipgloss.Color
	StateRolling  lipgloss.Color

	// Playhead position readout.
	Position lipgloss.Color

	// Key hints at the bottom of the screen.
	HelpText lipgloss.Color

	// Log notices surfaced in place of the help line.
	NoticeWarn  lipgloss.Color
	NoticeError lipgloss.Color

	// Connecting spinner and socket path accent.
	Accent lipgloss.Color
}

// StateColor returns the color for a transport state. Unknown states
// render as FaintText.
func (theme watchTheme) StateColor(state transport.RawState) lipgloss.Color {
	switch state {
	case transport.Stopped:
		return theme.StateStopped
	case transport.Starting:
		return theme.StateStarting
	case transport.Rolling:
		return theme.StateRolling
	default:
		return theme.FaintText
	}
}

// defaultWatchTheme is the built-in dark-terminal color scheme.
// Designed for 256-color terminals with a dark background.
var defaultWatchTheme = watchTheme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	StateStopped:  lipgloss.Color("245"), // gray
	StateStarting: lipgloss.Color("220"), // amber
	StateRolling:  lipgloss.Color("114"), // green

	Position: lipgloss.Color("255"),

	HelpText: lipgloss.Color("241"),

	NoticeWarn:  lipgloss.Color("220"),
	NoticeError: lipgloss.Color("196"),

	Accent: lipgloss.Color("75"), // blue
}

// themeOverrides is the on-disk theme file shape. Every field is
// optional; absent fields keep their defaultWatchTheme value.
type themeOverrides struct {
	NormalText    *string `json:"normal_text"`
	FaintText     *string `json:"faint_text"`
	StateStopped  *string `json:"state_stopped"`
	StateStarting *string `json:"state_starting"`
	StateRolling  *string `json:"state_rolling"`
	Position      *string `json:"position"`
	HelpText      *string `json:"help_text"`
	NoticeWarn    *string `json:"notice_warn"`
	NoticeError   *string `json:"notice_error"`
	Accent        *string `json:"accent"`
}

// loadWatchTheme reads a theme file and applies its overrides on top
// of the default palette. The file is JSON extended with // line
// comments, /* block comments */, and trailing commas; it is stripped
// to strict JSON before decoding.
func loadWatchTheme(path string) (watchTheme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return watchTheme{}, fmt.Errorf("reading theme file: %w", err)
	}

	stripped := jsonc.ToJSON(data)

	var overrides themeOverrides
	if err := json.Unmarshal(stripped, &overrides); err != nil {
		return watchTheme{}, fmt.Errorf("parsing theme file %s: %w", path, err)
	}

	theme := defaultWatchTheme
	apply := func(target *lipgloss.Color, value *string) {
		if value != nil {
			*target = lipgloss.Color(*value)
		}
	}
	apply(&theme.NormalText, overrides.NormalText)
	apply(&theme.FaintText, overrides.FaintText)
	apply(&theme.StateStopped, overrides.StateStopped)
	apply(&theme.StateStarting, overrides.StateStarting)
	apply(&theme.StateRolling, overrides.StateRolling)
	apply(&theme.Position, overrides.Position)
	apply(&theme.HelpText, overrides.HelpText)
	apply(&theme.NoticeWarn, overrides.NoticeWarn)
	apply(&theme.NoticeError, overrides.NoticeError)
	apply(&theme.Accent, overrides.Accent)
	return theme, nil
}
