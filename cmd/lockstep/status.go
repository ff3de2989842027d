// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/lockstep-audio/lockstep/cmd/lockstep/cli"
	"github.com/lockstep-audio/lockstep/graph"
	"github.com/lockstep-audio/lockstep/lib/service"
)

// statusResult is the JSON output shape for the status command. A
// separate type from the wire response so the CLI's JSON contract is
// stable against daemon protocol changes.
type statusResult struct {
	Version       string  `json:"version"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	State         string  `json:"state"`
	Frame         int64   `json:"frame"`
	Position      string  `json:"position"`
	SampleRate    uint32  `json:"sample_rate"`
	FramesPerTick float64 `json:"frames_per_tick"`
	Subscribers   int     `json:"subscribers"`
}

func statusCommand() *cli.Command {
	var socketPath string
	var jsonOutput bool

	return &cli.Command{
		Name:    "status",
		Summary: "Show daemon and transport status",
		Description: `Display the graph daemon's version and uptime alongside the current
transport state: playback state, playhead position, sample rate, and
the number of connected subscribers.`,
		Usage: "lockstep status [flags]",
		Examples: []cli.Example{
			{
				Description: "Human-readable status",
				Command:     "lockstep status",
			},
			{
				Description: "JSON output for scripting",
				Command:     "lockstep status --json",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("status", pflag.ContinueOnError)
			flags.StringVar(&socketPath, "socket", defaultSocketPath(), "graph daemon socket")
			flags.BoolVar(&jsonOutput, "json", false, "output as JSON")
			return flags
		},
		Run: func(args []string) error {
			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()

			var status graph.StatusResponse
			client := service.NewClient(socketPath)
			if err := client.Call(ctx, graph.ActionStatus, nil, &status); err != nil {
				return err
			}

			result := statusResult{
				Version:       status.Version,
				UptimeSeconds: status.UptimeSeconds,
				State:         status.State.String(),
				Frame:         int64(status.Frame),
				Position:      formatFrameTime(status.Frame, status.SampleRate),
				SampleRate:    status.SampleRate,
				FramesPerTick: status.FramesPerTick,
				Subscribers:   status.Subscribers,
			}

			if jsonOutput {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(result)
			}
			printStatus(os.Stdout, result)
			return nil
		},
	}
}

func printStatus(w io.Writer, result statusResult) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "version:\t%s\n", result.Version)
	fmt.Fprintf(tw, "uptime:\t%s\n", time.Duration(result.UptimeSeconds)*time.Second)
	fmt.Fprintf(tw, "state:\t%s\n", result.State)
	fmt.Fprintf(tw, "position:\t%s (frame %d)\n", result.Position, result.Frame)
	fmt.Fprintf(tw, "sample rate:\t%d Hz\n", result.SampleRate)
	fmt.Fprintf(tw, "frames per tick:\t%.1f\n", result.FramesPerTick)
	fmt.Fprintf(tw, "subscribers:\t%d\n", result.Subscribers)
	tw.Flush()
}
