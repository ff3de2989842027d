// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/lockstep-audio/lockstep/graph"
	"github.com/lockstep-audio/lockstep/lib/clock"
	"github.com/lockstep-audio/lockstep/lib/codec"
	"github.com/lockstep-audio/lockstep/lib/config"
	"github.com/lockstep-audio/lockstep/transport"
)

func testJournalConfig(t *testing.T, rotateBytes int64, keepSegments int) config.JournalConfig {
	t.Helper()
	return config.JournalConfig{
		Enabled:      true,
		Directory:    t.TempDir(),
		RotateBytes:  rotateBytes,
		KeepSegments: keepSegments,
	}
}

func decodeRecords(t *testing.T, raw []byte) []journalRecord {
	t.Helper()
	decoder := codec.NewDecoder(bytes.NewReader(raw))
	var records []journalRecord
	for {
		var record journalRecord
		if err := decoder.Decode(&record); err != nil {
			if errors.Is(err, io.EOF) {
				return records
			}
			t.Fatalf("decoding journal record %d: %v", len(records), err)
		}
		records = append(records, record)
	}
}

// readActiveRecords decodes the uncompressed active segment.
func readActiveRecords(t *testing.T, directory string) []journalRecord {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join(directory, activeSegmentName))
	if err != nil {
		t.Fatalf("reading active segment: %v", err)
	}
	return decodeRecords(t, raw)
}

// readSegmentRecords decompresses and decodes one rotated segment.
func readSegmentRecords(t *testing.T, path string) []journalRecord {
	t.Helper()
	compressed, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading segment: %v", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		t.Fatalf("creating zstd decoder: %v", err)
	}
	defer decoder.Close()
	raw, err := decoder.DecodeAll(compressed, nil)
	if err != nil {
		t.Fatalf("decompressing segment: %v", err)
	}
	return decodeRecords(t, raw)
}

func TestJournalRecords(t *testing.T) {
	cfg := testJournalConfig(t, 1<<20, 0)
	clk := clock.Fake(time.Unix(5000, 0))
	j, err := openJournal(cfg, clk, testLogger())
	if err != nil {
		t.Fatalf("openJournal: %v", err)
	}

	j.recordCommand(graph.ActionStart, 0)
	clk.Advance(time.Second)
	j.recordTransition(transport.Starting, 0)
	clk.Advance(time.Second)
	j.recordCommand(graph.ActionLocate, 96000)
	j.Close()

	records := readActiveRecords(t, cfg.Directory)
	if len(records) != 3 {
		t.Fatalf("decoded %d records, want 3", len(records))
	}

	want := []journalRecord{
		{At: time.Unix(5000, 0).UnixNano(), Kind: journalRecordKindCommand, Action: graph.ActionStart, Frame: 0},
		{At: time.Unix(5001, 0).UnixNano(), Kind: journalRecordKindTransition, State: "starting", Frame: 0},
		{At: time.Unix(5002, 0).UnixNano(), Kind: journalRecordKindCommand, Action: graph.ActionLocate, Frame: 96000},
	}
	for i, record := range records {
		if record != want[i] {
			t.Errorf("record %d = %+v, want %+v", i, record, want[i])
		}
	}
}

func TestJournalRotation(t *testing.T) {
	// A one-byte threshold rotates after every record.
	cfg := testJournalConfig(t, 1, 0)
	clk := clock.Fake(time.Unix(5000, 0))
	j, err := openJournal(cfg, clk, testLogger())
	if err != nil {
		t.Fatalf("openJournal: %v", err)
	}

	j.recordCommand(graph.ActionStart, 0)
	j.recordCommand(graph.ActionStop, 480)
	j.Close()

	segments, err := sortedSegments(cfg.Directory)
	if err != nil {
		t.Fatalf("listing segments: %v", err)
	}
	if len(segments) != 2 {
		t.Fatalf("found %d segments, want 2: %v", len(segments), segments)
	}
	if base := filepath.Base(segments[0]); base != "segment-000001.cbor.zst" {
		t.Errorf("first segment named %s", base)
	}

	first := readSegmentRecords(t, segments[0])
	if len(first) != 1 || first[0].Action != graph.ActionStart {
		t.Errorf("first segment records = %+v, want one start command", first)
	}
	second := readSegmentRecords(t, segments[1])
	if len(second) != 1 || second[0].Action != graph.ActionStop || second[0].Frame != 480 {
		t.Errorf("second segment records = %+v, want one stop command at 480", second)
	}

	// The active segment starts over after rotation.
	if records := readActiveRecords(t, cfg.Directory); len(records) != 0 {
		t.Errorf("active segment holds %d records after rotation, want 0", len(records))
	}
}

func TestJournalDigests(t *testing.T) {
	cfg := testJournalConfig(t, 1, 0)
	clk := clock.Fake(time.Unix(5000, 0))
	j, err := openJournal(cfg, clk, testLogger())
	if err != nil {
		t.Fatalf("openJournal: %v", err)
	}
	j.recordCommand(graph.ActionStart, 0)
	j.Close()

	segments, err := sortedSegments(cfg.Directory)
	if err != nil || len(segments) != 1 {
		t.Fatalf("segments = %v (err %v), want exactly one", segments, err)
	}

	compressed, err := os.ReadFile(segments[0])
	if err != nil {
		t.Fatalf("reading segment: %v", err)
	}
	digestData, err := os.ReadFile(segments[0] + ".b3")
	if err != nil {
		t.Fatalf("reading digest: %v", err)
	}

	sum := blake3.Sum256(compressed)
	want := fmt.Sprintf("%x  %s\n", sum, filepath.Base(segments[0]))
	if string(digestData) != want {
		t.Errorf("digest file = %q, want %q", digestData, want)
	}
}

func TestJournalPrune(t *testing.T) {
	cfg := testJournalConfig(t, 1, 2)
	clk := clock.Fake(time.Unix(5000, 0))
	j, err := openJournal(cfg, clk, testLogger())
	if err != nil {
		t.Fatalf("openJournal: %v", err)
	}

	for i := 0; i < 5; i++ {
		j.recordCommand(graph.ActionStart, transport.Frame(i))
	}
	j.Close()

	segments, err := sortedSegments(cfg.Directory)
	if err != nil {
		t.Fatalf("listing segments: %v", err)
	}
	var names []string
	for _, segment := range segments {
		names = append(names, filepath.Base(segment))
	}
	wantNames := []string{"segment-000004.cbor.zst", "segment-000005.cbor.zst"}
	if len(names) != 2 || names[0] != wantNames[0] || names[1] != wantNames[1] {
		t.Fatalf("segments after prune = %v, want %v", names, wantNames)
	}

	// Digests for pruned segments are removed with them.
	digests, err := filepath.Glob(filepath.Join(cfg.Directory, "*.b3"))
	if err != nil {
		t.Fatalf("listing digests: %v", err)
	}
	if len(digests) != 2 {
		t.Fatalf("found %d digest files after prune, want 2: %v", len(digests), digests)
	}
}

func TestJournalPruneDisabled(t *testing.T) {
	// Zero retention keeps every segment.
	cfg := testJournalConfig(t, 1, 0)
	clk := clock.Fake(time.Unix(5000, 0))
	j, err := openJournal(cfg, clk, testLogger())
	if err != nil {
		t.Fatalf("openJournal: %v", err)
	}
	for i := 0; i < 4; i++ {
		j.recordCommand(graph.ActionStart, transport.Frame(i))
	}
	j.Close()

	segments, err := sortedSegments(cfg.Directory)
	if err != nil {
		t.Fatalf("listing segments: %v", err)
	}
	if len(segments) != 4 {
		t.Fatalf("found %d segments, want 4", len(segments))
	}
}

func TestJournalSequenceResumesAcrossReopen(t *testing.T) {
	cfg := testJournalConfig(t, 1, 0)
	clk := clock.Fake(time.Unix(5000, 0))

	j, err := openJournal(cfg, clk, testLogger())
	if err != nil {
		t.Fatalf("openJournal: %v", err)
	}
	j.recordCommand(graph.ActionStart, 0)
	j.recordCommand(graph.ActionStop, 0)
	j.Close()

	reopened, err := openJournal(cfg, clk, testLogger())
	if err != nil {
		t.Fatalf("reopening journal: %v", err)
	}
	reopened.recordCommand(graph.ActionStart, 100)
	reopened.Close()

	segments, err := sortedSegments(cfg.Directory)
	if err != nil {
		t.Fatalf("listing segments: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("found %d segments, want 3", len(segments))
	}
	if base := filepath.Base(segments[2]); base != "segment-000003.cbor.zst" {
		t.Errorf("segment numbering restarted: %s", base)
	}
}

func TestJournalTimelineTransitions(t *testing.T) {
	cfg := testJournalConfig(t, 1<<20, 0)
	clk := clock.Fake(time.Unix(5000, 0))
	j, err := openJournal(cfg, clk, testLogger())
	if err != nil {
		t.Fatalf("openJournal: %v", err)
	}

	tl := newTimeline(testSampleRate, testTickInterval, clk, testLogger())
	tl.journal = j

	tl.start()
	tl.advance(clk.Now().Add(testTickInterval))
	tl.stop()
	j.Close()

	records := readActiveRecords(t, cfg.Directory)
	if len(records) != 3 {
		t.Fatalf("decoded %d records, want 3", len(records))
	}
	wantStates := []string{"starting", "rolling", "stopped"}
	for i, record := range records {
		if record.Kind != journalRecordKindTransition || record.State != wantStates[i] {
			t.Errorf("record %d = %+v, want %s transition", i, record, wantStates[i])
		}
	}
}
