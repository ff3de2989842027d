// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// logNoticeMsg delivers a slog record to the watch model for display
// in the notice line. Only records at or above the handler's
// configured level are delivered.
type logNoticeMsg struct {
	// Summary is the human-readable one-line message.
	Summary string

	// Level is the slog level for styling (warn vs error).
	Level slog.Level
}

// logNoticeFadeMsg is sent after a delay to clear the notice and
// restore the key-hint line.
type logNoticeFadeMsg struct{}

// logNoticeFadeDelay is how long notices stay visible before fading
// back to the key hints.
const logNoticeFadeDelay = 5 * time.Second

// watchLogHandler is a slog.Handler that routes log records into the
// watch TUI as messages instead of writing to stderr, which would
// corrupt the alternate screen. Records below the configured level
// are silently dropped.
//
// The handler must be created before the program starts. Call
// SetProgram once the tea.Program is created to enable delivery;
// records arriving before then are dropped. Handlers derived via
// WithAttrs/WithGroup share the same program pointer, so a single
// SetProgram call propagates to every derived handler.
type watchLogHandler struct {
	level   slog.Level
	program *atomic.Pointer[tea.Program]
	attrs   []slog.Attr
}

// newWatchLogHandler creates a handler that delivers log records at
// or above the given level to the watch program.
func newWatchLogHandler(level slog.Level) *watchLogHandler {
	return &watchLogHandler{
		level:   level,
		program: &atomic.Pointer[tea.Program]{},
	}
}

// SetProgram sets the bubbletea program that receives notices. Safe
// to call from any goroutine.
func (handler *watchLogHandler) SetProgram(program *tea.Program) {
	handler.program.Store(program)
}

func (handler *watchLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= handler.level
}

// Handle formats the record as a one-line summary and sends it to the
// program. If the program has not been set yet, the record is dropped.
func (handler *watchLogHandler) Handle(_ context.Context, record slog.Record) error {
	program := handler.program.Load()
	if program == nil {
		return nil
	}

	summary := record.Message
	var attrParts []string
	for _, attr := range handler.attrs {
		attrParts = append(attrParts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
	}
	record.Attrs(func(attr slog.Attr) bool {
		attrParts = append(attrParts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
		return true
	})
	if len(attrParts) > 0 {
		summary += " ("
		for index, part := range attrParts {
			if index > 0 {
				summary += ", "
			}
			summary += part
		}
		summary += ")"
	}

	program.Send(logNoticeMsg{
		Summary: summary,
		Level:   record.Level,
	})
	return nil
}

// WithAttrs returns a derived handler with the attributes appended.
// The derived handler shares the same atomic program pointer.
func (handler *watchLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(handler.attrs)+len(attrs))
	merged = append(merged, handler.attrs...)
	merged = append(merged, attrs...)
	return &watchLogHandler{
		level:   handler.level,
		program: handler.program,
		attrs:   merged,
	}
}

// WithGroup returns the handler unchanged. The notice line flattens
// attributes, so group nesting adds nothing for this surface.
func (handler *watchLogHandler) WithGroup(string) slog.Handler {
	return handler
}
