// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/lockstep-audio/lockstep/cmd/lockstep/cli"
	"github.com/lockstep-audio/lockstep/graph"
	"github.com/lockstep-audio/lockstep/lib/service"
)

func startCommand() *cli.Command {
	var socketPath string

	return &cli.Command{
		Name:    "start",
		Summary: "Start playback",
		Description: `Request transport start. The daemon holds in the starting state for
one tick before rolling, giving attached clients time to seek. A
start while already starting or rolling is absorbed silently.`,
		Usage: "lockstep start [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("start", pflag.ContinueOnError)
			flags.StringVar(&socketPath, "socket", defaultSocketPath(), "graph daemon socket")
			return flags
		},
		Run: func(args []string) error {
			return transportCommand(socketPath, graph.ActionStart, nil)
		},
	}
}

func stopCommand() *cli.Command {
	var socketPath string

	return &cli.Command{
		Name:    "stop",
		Summary: "Stop playback",
		Description: `Request transport stop. The playhead freezes where it is; a
following start resumes from the same position.`,
		Usage: "lockstep stop [flags]",
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("stop", pflag.ContinueOnError)
			flags.StringVar(&socketPath, "socket", defaultSocketPath(), "graph daemon socket")
			return flags
		},
		Run: func(args []string) error {
			return transportCommand(socketPath, graph.ActionStop, nil)
		},
	}
}

func locateCommand() *cli.Command {
	var socketPath string

	return &cli.Command{
		Name:    "locate",
		Summary: "Move the playhead",
		Description: `Move the playhead to a new position. The position is either an
absolute frame count or wall-clock time as MM:SS or MM:SS.mmm,
converted at the daemon's sample rate. Locating while rolling
re-enters the starting grace so clients can catch up.`,
		Usage: "lockstep locate <frame|MM:SS.mmm> [flags]",
		Examples: []cli.Example{
			{
				Description: "Jump to the ninety-second mark",
				Command:     "lockstep locate 01:30.000",
			},
			{
				Description: "Jump to an absolute frame",
				Command:     "lockstep locate 4233600",
			},
			{
				Description: "Rewind to the top",
				Command:     "lockstep locate 0",
			},
		},
		Flags: func() *pflag.FlagSet {
			flags := pflag.NewFlagSet("locate", pflag.ContinueOnError)
			flags.StringVar(&socketPath, "socket", defaultSocketPath(), "graph daemon socket")
			return flags
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("locate takes exactly one position argument")
			}

			ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
			defer cancel()
			client := service.NewClient(socketPath)

			// Time positions convert at the daemon's sample rate, and
			// the result line formats with it either way.
			var status graph.StatusResponse
			if err := client.Call(ctx, graph.ActionStatus, nil, &status); err != nil {
				return err
			}

			frame, err := parsePosition(args[0], status.SampleRate)
			if err != nil {
				return err
			}

			var after graph.QueryResponse
			if err := client.Call(ctx, graph.ActionLocate, map[string]any{"frame": int64(frame)}, &after); err != nil {
				return err
			}
			fmt.Printf("transport %s at %s (frame %d)\n",
				after.State, formatFrameTime(after.Frame, status.SampleRate), after.Frame)
			return nil
		},
	}
}

// transportCommand sends a bare transport action and prints the
// resulting state.
func transportCommand(socketPath, action string, fields map[string]any) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	var after graph.QueryResponse
	client := service.NewClient(socketPath)
	if err := client.Call(ctx, action, fields, &after); err != nil {
		return err
	}
	fmt.Printf("transport %s (frame %d)\n", after.State, after.Frame)
	return nil
}
