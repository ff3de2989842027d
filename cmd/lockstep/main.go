// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"os"

	"github.com/lockstep-audio/lockstep/cmd/lockstep/cli"
	"github.com/lockstep-audio/lockstep/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	return rootCommand().Execute(os.Args[1:])
}

// rootCommand builds the complete lockstep CLI command tree.
func rootCommand() *cli.Command {
	return &cli.Command{
		Name: "lockstep",
		Description: `Lockstep: transport control for the graph daemon.

Inspect and drive the shared playback timeline that sequencers and
other audio-graph clients synchronize against.`,
		Subcommands: []*cli.Command{
			statusCommand(),
			startCommand(),
			stopCommand(),
			locateCommand(),
			watchCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(args []string) error {
					fmt.Printf("lockstep %s\n", version.Full())
					return nil
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Show daemon and transport status",
				Command:     "lockstep status",
			},
			{
				Description: "Start playback",
				Command:     "lockstep start",
			},
			{
				Description: "Jump to the ninety-second mark",
				Command:     "lockstep locate 01:30.000",
			},
			{
				Description: "Jump to an absolute frame",
				Command:     "lockstep locate 4233600",
			},
			{
				Description: "Watch the transport live",
				Command:     "lockstep watch",
			},
		},
	}
}
