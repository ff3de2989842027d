// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/lockstep-audio/lockstep/cmd/lockstep/cli"
	"github.com/lockstep-audio/lockstep/graph"
	"github.com/lockstep-audio/lockstep/lib/service"
	"github.com/lockstep-audio/lockstep/transport"
)

// watchRefreshInterval is how often the view re-reads the client's
// position mirror. The daemon heartbeats every 500ms, so refreshing
// faster than this only reduces display latency, not granularity.
const watchRefreshInterval = 250 * time.Millisecond

// watchEventBuffer sizes the channel between the stream callback and
// the bubbletea loop. Transitions are rare; the buffer only has to
// absorb a burst while a frame renders.
const watchEventBuffer = 16

func watchCommand() *cli.Command {
	var socketPath string
	var themePath string

	return &cli.Command{
		Name:    "watch",
		Summary: "Live transport view",
		Description: `Follow the graph daemon's state stream in a full-screen terminal view:
transport state, playhead position, sample rate, and stream health,
updating live. Space toggles start/stop, 0 rewinds to frame zero.

Colors can be overridden with a theme file: JSON with comments and
trailing commas allowed, mapping color names to 256-color terminal
codes (for example {"state_rolling": "82"}).`,
		Usage: "lockstep watch [flags]",
		Examples: []cli.Example{
			{
				Description: "Watch the default daemon",
				Command:     "lockstep watch",
			},
			{
				Description: "Watch with a custom palette",
				Command:     "lockstep watch --theme ~/.config/lockstep/theme.jsonc",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("watch", pflag.ContinueOnError)
			flags.StringVar(&socketPath, "socket", defaultSocketPath(), "graph daemon socket")
			flags.StringVar(&themePath, "theme", "", "JSONC theme file overriding the default colors")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("watch takes no arguments, got %d", len(args))
			}
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.New("watch needs a terminal; use `lockstep status --json` for scripted output")
			}

			theme := defaultWatchTheme
			if themePath != "" {
				loaded, err := loadWatchTheme(themePath)
				if err != nil {
					return err
				}
				theme = loaded
			}

			// Background logs go to the notice line, not stderr:
			// stderr writes would corrupt the alternate screen.
			handler := newWatchLogHandler(slog.LevelWarn)
			logger := slog.New(handler)

			client := graph.Dial(socketPath, logger)
			defer client.Close()

			events := make(chan watchEvent, watchEventBuffer)
			client.SetSyncCallback(func(state transport.RawState, frame transport.Frame) bool {
				select {
				case events <- watchEvent{state: state, frame: frame}:
				default:
					// The refresh tick re-reads the mirror, so a
					// dropped transition only delays the display.
				}
				return true
			})

			model := newWatchModel(client, events, socketPath, theme)
			program := tea.NewProgram(model, tea.WithAltScreen())
			handler.SetProgram(program)
			_, err := program.Run()
			return err
		},
	}
}

// watchEvent carries one state transition from the stream callback
// into the bubbletea message loop.
type watchEvent struct {
	state transport.RawState
	frame transport.Frame
}

// frameEventMsg wraps a watchEvent for delivery through Update.
type frameEventMsg struct {
	event watchEvent
}

// refreshTickMsg drives the periodic re-read of the client mirror.
type refreshTickMsg time.Time

// daemonStatusMsg carries the result of an async status call. Only
// the sample rate is kept; position comes from the stream mirror.
type daemonStatusMsg struct {
	sampleRate uint32
	err        error
}

// watchKeyMap defines the key bindings for the watch view.
type watchKeyMap struct {
	Toggle key.Binding
	Rewind key.Binding
	Quit   key.Binding
}

// defaultWatchKeys is the standard binding set.
var defaultWatchKeys = watchKeyMap{
	Toggle: key.NewBinding(
		key.WithKeys(" ", "space"),
		key.WithHelp("space", "start/stop"),
	),
	Rewind: key.NewBinding(
		key.WithKeys("0"),
		key.WithHelp("0", "rewind"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// helpLine renders the bindings as a one-line hint.
func (keys watchKeyMap) helpLine() string {
	bindings := []key.Binding{keys.Toggle, keys.Rewind, keys.Quit}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return strings.Join(parts, " • ")
}

// watchModel is the bubbletea model for the watch view. The client's
// atomics are the source of truth for position; the model holds a
// copy refreshed by stream transitions and the periodic tick.
type watchModel struct {
	client     *graph.Client
	events     <-chan watchEvent
	socketPath string
	theme      watchTheme
	keys       watchKeyMap
	spin       spinner.Model

	connected bool
	state     transport.RawState
	frame     transport.Frame

	// sampleRate converts frames to wall-clock time. Zero until the
	// first status call succeeds; the position renders as unknown
	// until then.
	sampleRate  uint32
	rateFetch   bool
	spinRunning bool

	notice      string
	noticeLevel slog.Level

	width int
}

func newWatchModel(client *graph.Client, events <-chan watchEvent, socketPath string, theme watchTheme) watchModel {
	spin := spinner.New(
		spinner.WithSpinner(spinner.Dot),
		spinner.WithStyle(lipgloss.NewStyle().Foreground(theme.Accent)),
	)
	return watchModel{
		client:      client,
		events:      events,
		socketPath:  socketPath,
		theme:       theme,
		keys:        defaultWatchKeys,
		spin:        spin,
		spinRunning: true,
	}
}

func (model watchModel) Init() tea.Cmd {
	return tea.Batch(
		listenForFrameEvent(model.events),
		scheduleRefresh(),
		model.spin.Tick,
		fetchDaemonRate(model.socketPath),
	)
}

// listenForFrameEvent returns a tea.Cmd that blocks until a transition
// arrives on the callback channel, then delivers it as a frameEventMsg.
func listenForFrameEvent(events <-chan watchEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return frameEventMsg{event: event}
	}
}

// scheduleRefresh arms the next periodic mirror re-read.
func scheduleRefresh() tea.Cmd {
	return tea.Tick(watchRefreshInterval, func(at time.Time) tea.Msg {
		return refreshTickMsg(at)
	})
}

// fetchDaemonRate asks the daemon for its status to learn the sample
// rate. Runs in a bubbletea command goroutine, off the render path.
func fetchDaemonRate(socketPath string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		var status graph.StatusResponse
		if err := service.NewClient(socketPath).Call(ctx, graph.ActionStatus, nil, &status); err != nil {
			return daemonStatusMsg{err: err}
		}
		return daemonStatusMsg{sampleRate: status.SampleRate}
	}
}

func (model watchModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(message, model.keys.Quit):
			return model, tea.Quit
		case key.Matches(message, model.keys.Toggle):
			if model.state == transport.Stopped {
				model.client.Start()
			} else {
				model.client.Stop()
			}
		case key.Matches(message, model.keys.Rewind):
			model.client.Locate(0)
		}
		return model, nil

	case frameEventMsg:
		model.state = message.event.state
		model.frame = message.event.frame
		return model, listenForFrameEvent(model.events)

	case refreshTickMsg:
		model.connected = model.client.Connected()
		model.state, model.frame = model.client.Query()

		commands := []tea.Cmd{scheduleRefresh()}
		if model.connected && model.sampleRate == 0 && !model.rateFetch {
			model.rateFetch = true
			commands = append(commands, fetchDaemonRate(model.socketPath))
		}
		if !model.connected && !model.spinRunning {
			model.spinRunning = true
			commands = append(commands, model.spin.Tick)
		}
		return model, tea.Batch(commands...)

	case daemonStatusMsg:
		model.rateFetch = false
		if message.err == nil {
			model.sampleRate = message.sampleRate
		}
		return model, nil

	case spinner.TickMsg:
		// Tick the spinner only while disconnected; the chain is
		// restarted by the refresh tick when the stream drops again.
		if model.connected {
			model.spinRunning = false
			return model, nil
		}
		var command tea.Cmd
		model.spin, command = model.spin.Update(message)
		return model, command

	case logNoticeMsg:
		model.notice = message.Summary
		model.noticeLevel = message.Level
		return model, scheduleNoticeFade()

	case logNoticeFadeMsg:
		model.notice = ""
		return model, nil

	case tea.WindowSizeMsg:
		model.width = message.Width
		return model, nil
	}

	return model, nil
}

// scheduleNoticeFade clears the notice line after a delay.
func scheduleNoticeFade() tea.Cmd {
	return tea.Tick(logNoticeFadeDelay, func(time.Time) tea.Msg {
		return logNoticeFadeMsg{}
	})
}

func (model watchModel) View() string {
	faint := lipgloss.NewStyle().Foreground(model.theme.FaintText)

	header := faint.Render("lockstep · " + model.socketPath)

	var body string
	if model.connected {
		stateStyle := lipgloss.NewStyle().
			Foreground(model.theme.StateColor(model.state)).
			Bold(true)
		positionStyle := lipgloss.NewStyle().
			Foreground(model.theme.Position).
			Bold(true)

		rate := "rate unknown"
		if model.sampleRate > 0 {
			rate = fmt.Sprintf("%d Hz", model.sampleRate)
		}

		body = strings.Join([]string{
			stateStyle.Render("● " + model.state.String()),
			positionStyle.Render(formatFrameTime(model.frame, model.sampleRate)),
			faint.Render(fmt.Sprintf("frame %d", model.frame)),
			faint.Render(rate),
		}, "   ")
	} else {
		body = model.spin.View() + faint.Render("connecting to the graph daemon")
	}

	var footer string
	if model.notice != "" {
		color := model.theme.NoticeWarn
		if model.noticeLevel >= slog.LevelError {
			color = model.theme.NoticeError
		}
		footer = lipgloss.NewStyle().Foreground(color).Render(model.notice)
	} else {
		footer = lipgloss.NewStyle().
			Foreground(model.theme.HelpText).
			Render(model.keys.helpLine())
	}

	view := "\n  " + header + "\n\n  " + body + "\n\n  " + footer + "\n"
	if model.width > 0 {
		return lipgloss.NewStyle().MaxWidth(model.width).Render(view)
	}
	return view
}
