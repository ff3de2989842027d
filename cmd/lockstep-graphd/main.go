// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lockstep-audio/lockstep/lib/clock"
	"github.com/lockstep-audio/lockstep/lib/config"
	"github.com/lockstep-audio/lockstep/lib/service"
	"github.com/lockstep-audio/lockstep/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		socketPath  string
		logLevel    string
		showVersion bool
	)

	flag.StringVar(&configPath, "config", "", "configuration file (overrides $LOCKSTEP_CONFIG)")
	flag.StringVar(&socketPath, "socket", "", "Unix socket path (overrides configuration)")
	flag.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides configuration)")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("lockstep-graphd %s\n", version.Info())
		return nil
	}

	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if socketPath != "" {
		cfg.Socket = socketPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	tick, err := cfg.Timeline.Tick()
	if err != nil {
		return err
	}

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.Real()
	events := newRegistry(logger)
	tl := newTimeline(cfg.Timeline.SampleRate, tick, clk, logger)
	tl.events = events

	var jnl *journal
	if cfg.Journal.Enabled {
		jnl, err = openJournal(cfg.Journal, clk, logger)
		if err != nil {
			return fmt.Errorf("opening journal: %w", err)
		}
		tl.journal = jnl
	}

	daemon := &Daemon{
		logger:        logger,
		clock:         clk,
		timeline:      tl,
		registry:      events,
		journal:       jnl,
		startedAt:     clk.Now(),
		sampleRate:    cfg.Timeline.SampleRate,
		framesPerTick: cfg.Timeline.FramesPerTick,
	}

	socketServer := service.NewSocketServer(cfg.Socket, logger)
	daemon.registerActions(socketServer)

	socketDone := make(chan error, 1)
	go func() {
		socketDone <- socketServer.Serve(ctx)
	}()

	timelineDone := make(chan struct{})
	go func() {
		defer close(timelineDone)
		tl.run(ctx)
	}()

	logger.Info("graph transport daemon running",
		"socket", cfg.Socket,
		"sample_rate", cfg.Timeline.SampleRate,
		"tick", tick,
		"journal", cfg.Journal.Enabled,
	)

	// Wait for shutdown signal.
	<-ctx.Done()
	logger.Info("shutting down")

	// Drain the socket server first so no handler can touch the
	// timeline or journal mid-shutdown, then stop the timeline, then
	// flush the journal.
	if err := <-socketDone; err != nil {
		logger.Error("socket server error", "error", err)
	}
	<-timelineDone
	if jnl != nil {
		jnl.Close()
	}

	return nil
}

// Daemon ties the timeline, subscriber registry, and journal to the
// socket actions.
type Daemon struct {
	logger *slog.Logger
	clock  clock.Clock

	timeline *timeline
	registry *registry

	// journal is nil when journaling is disabled.
	journal *journal

	startedAt     time.Time
	sampleRate    uint32
	framesPerTick float64
}
