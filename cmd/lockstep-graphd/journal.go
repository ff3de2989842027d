// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/lockstep-audio/lockstep/lib/clock"
	"github.com/lockstep-audio/lockstep/lib/codec"
	"github.com/lockstep-audio/lockstep/lib/config"
	"github.com/lockstep-audio/lockstep/transport"
)

// journalRecord is one entry in the transport journal: either a
// command received over the socket or a state transition the timeline
// performed. Records are CBOR-encoded back to back in the active
// segment, so the file is a plain CBOR sequence.
type journalRecord struct {
	// At is the record time in Unix nanoseconds.
	At int64 `cbor:"at"`

	// Kind is "command" or "transition".
	Kind string `cbor:"kind"`

	// Action is the socket action for command records: start, stop,
	// locate.
	Action string `cbor:"action,omitempty"`

	// State is the new state name for transition records.
	State string `cbor:"state,omitempty"`

	// Frame is the timeline position the record applies to: the
	// requested frame for locate commands, the current frame for
	// everything else.
	Frame transport.Frame `cbor:"frame"`
}

const (
	journalRecordKindCommand    = "command"
	journalRecordKindTransition = "transition"

	// activeSegmentName is the segment currently being appended to.
	// Rotation renames its contents into a numbered compressed
	// segment and starts this file over.
	activeSegmentName = "current.cbor"

	// journalQueueSize bounds the record queue between the recording
	// paths and the writer goroutine. Transport events are
	// human-scale; a full queue means the disk has stalled for a long
	// time, and dropping diagnostics beats blocking the timeline.
	journalQueueSize = 256
)

// journal is the daemon's on-disk record of transport commands and
// state transitions, kept for post-mortem diagnostics.
//
// Recording never blocks: records are queued to a writer goroutine
// and dropped with a warning if the queue is full. The writer appends
// each record to the active segment and, once the segment exceeds the
// configured size, rotates it: the raw CBOR is compressed with zstd
// into segment-NNNNNN.cbor.zst, a BLAKE3 digest of the compressed
// bytes is written alongside (b3sum format), and segments beyond the
// retention count are removed, oldest first.
type journal struct {
	logger    *slog.Logger
	clock     clock.Clock
	directory string

	rotateBytes  int64
	keepSegments int

	records chan journalRecord
	stop    chan struct{}
	done    chan struct{}

	// Writer-goroutine state. Nothing below is touched from other
	// goroutines once runWriter starts.
	active      *os.File
	activeSize  int64
	nextSegment int
	compressor  *zstd.Encoder
}

// openJournal opens (or creates) the journal in cfg.Directory and
// starts the writer goroutine. An existing active segment is appended
// to; segment numbering resumes after the highest rotated segment on
// disk.
func openJournal(cfg config.JournalConfig, clk clock.Clock, logger *slog.Logger) (*journal, error) {
	activePath := filepath.Join(cfg.Directory, activeSegmentName)
	active, err := os.OpenFile(activePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening active segment: %w", err)
	}
	info, err := active.Stat()
	if err != nil {
		active.Close()
		return nil, fmt.Errorf("inspecting active segment: %w", err)
	}

	next, err := nextSegmentNumber(cfg.Directory)
	if err != nil {
		active.Close()
		return nil, err
	}

	compressor, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		active.Close()
		return nil, fmt.Errorf("initializing zstd encoder: %w", err)
	}

	j := &journal{
		logger:       logger,
		clock:        clk,
		directory:    cfg.Directory,
		rotateBytes:  cfg.RotateBytes,
		keepSegments: cfg.KeepSegments,
		records:      make(chan journalRecord, journalQueueSize),
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		active:       active,
		activeSize:   info.Size(),
		nextSegment:  next,
		compressor:   compressor,
	}
	go j.runWriter()
	return j, nil
}

// recordCommand journals a socket command. Safe to call from any
// goroutine; never blocks.
func (j *journal) recordCommand(action string, frame transport.Frame) {
	j.enqueue(journalRecord{
		At:     j.clock.Now().UnixNano(),
		Kind:   journalRecordKindCommand,
		Action: action,
		Frame:  frame,
	})
}

// recordTransition journals a timeline state transition. Called with
// the timeline lock held, which is why this must never block.
func (j *journal) recordTransition(state transport.RawState, frame transport.Frame) {
	j.enqueue(journalRecord{
		At:    j.clock.Now().UnixNano(),
		Kind:  journalRecordKindTransition,
		State: state.String(),
		Frame: frame,
	})
}

func (j *journal) enqueue(record journalRecord) {
	select {
	case j.records <- record:
	default:
		j.logger.Warn("journal queue full, dropping record", "kind", record.Kind)
	}
}

// Close stops the writer after it has drained every queued record,
// then closes the active segment. Call only after all recording paths
// have quiesced.
func (j *journal) Close() {
	close(j.stop)
	<-j.done
}

func (j *journal) runWriter() {
	defer close(j.done)
	defer func() {
		if j.active != nil {
			j.active.Close()
		}
	}()
	for {
		select {
		case record := <-j.records:
			j.append(record)
		case <-j.stop:
			for {
				select {
				case record := <-j.records:
					j.append(record)
				default:
					return
				}
			}
		}
	}
}

// append encodes and writes one record, rotating afterwards if the
// active segment has grown past the limit. Write failures are logged
// and the record is lost; the journal is diagnostics, not state, and
// a full disk must not take the transport down.
func (j *journal) append(record journalRecord) {
	data, err := codec.Marshal(record)
	if err != nil {
		j.logger.Error("journal record encoding failed", "error", err)
		return
	}
	if j.active == nil {
		j.reopenActive(os.O_APPEND)
		if j.active == nil {
			return
		}
	}
	if _, err := j.active.Write(data); err != nil {
		j.logger.Error("journal write failed", "error", err)
		return
	}
	j.activeSize += int64(len(data))

	if j.activeSize >= j.rotateBytes {
		if err := j.rotate(); err != nil {
			j.logger.Error("journal rotation failed", "error", err)
		}
	}
}

// rotate compresses the active segment into the next numbered
// segment, writes its digest, restarts the active segment, and prunes
// old segments past the retention count.
//
// The active segment is truncated only once the compressed segment is
// on disk. On failure it is reopened in append mode instead, keeping
// the records for a retry at the next threshold crossing.
func (j *journal) rotate() error {
	if err := j.active.Close(); err != nil {
		return fmt.Errorf("closing active segment: %w", err)
	}

	activePath := filepath.Join(j.directory, activeSegmentName)
	raw, err := os.ReadFile(activePath)
	if err != nil {
		j.reopenActive(os.O_APPEND)
		return fmt.Errorf("reading active segment: %w", err)
	}

	name := fmt.Sprintf("segment-%06d.cbor.zst", j.nextSegment)
	compressed := j.compressor.EncodeAll(raw, nil)
	if err := os.WriteFile(filepath.Join(j.directory, name), compressed, 0o644); err != nil {
		j.reopenActive(os.O_APPEND)
		return fmt.Errorf("writing %s: %w", name, err)
	}
	j.nextSegment++

	// Digest of the compressed bytes in b3sum's output format, so
	// `b3sum --check segment-NNNNNN.cbor.zst.b3` verifies the segment.
	digest := blake3.Sum256(compressed)
	digestLine := fmt.Sprintf("%x  %s\n", digest, name)
	if err := os.WriteFile(filepath.Join(j.directory, name+".b3"), []byte(digestLine), 0o644); err != nil {
		j.logger.Error("journal digest write failed", "segment", name, "error", err)
	}

	j.reopenActive(os.O_TRUNC)

	j.logger.Info("journal segment rotated",
		"segment", name,
		"raw_bytes", len(raw),
		"compressed_bytes", len(compressed),
	)
	return j.prune()
}

// reopenActive reopens the active segment with the given disposition
// flag (os.O_TRUNC after a successful rotation, os.O_APPEND to keep
// records after a failed one). On reopen failure the handle is left
// nil and appends surface the error until a later rotation succeeds.
func (j *journal) reopenActive(disposition int) {
	activePath := filepath.Join(j.directory, activeSegmentName)
	active, err := os.OpenFile(activePath, os.O_CREATE|os.O_WRONLY|disposition, 0o644)
	if err != nil {
		j.logger.Error("reopening active segment failed", "error", err)
		j.active = nil
		return
	}
	j.active = active
	if disposition == os.O_TRUNC {
		j.activeSize = 0
		return
	}
	if info, err := active.Stat(); err == nil {
		j.activeSize = info.Size()
	}
}

// prune removes the oldest rotated segments (and their digests) until
// at most keepSegments remain. A retention of zero keeps everything.
func (j *journal) prune() error {
	if j.keepSegments <= 0 {
		return nil
	}
	segments, err := sortedSegments(j.directory)
	if err != nil {
		return err
	}
	for len(segments) > j.keepSegments {
		oldest := segments[0]
		segments = segments[1:]
		if err := os.Remove(oldest); err != nil {
			return fmt.Errorf("removing %s: %w", oldest, err)
		}
		if err := os.Remove(oldest + ".b3"); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing %s.b3: %w", oldest, err)
		}
		j.logger.Info("journal segment pruned", "segment", filepath.Base(oldest))
	}
	return nil
}

// sortedSegments lists rotated segment paths in ascending sequence
// order. The fixed-width numbering makes lexical order sequence
// order.
func sortedSegments(directory string) ([]string, error) {
	segments, err := filepath.Glob(filepath.Join(directory, "segment-*.cbor.zst"))
	if err != nil {
		return nil, fmt.Errorf("listing journal segments: %w", err)
	}
	sort.Strings(segments)
	return segments, nil
}

// nextSegmentNumber returns one past the highest rotated segment
// number on disk, so numbering continues across daemon restarts.
func nextSegmentNumber(directory string) (int, error) {
	segments, err := sortedSegments(directory)
	if err != nil {
		return 0, err
	}
	next := 1
	for _, segment := range segments {
		var n int
		if _, err := fmt.Sscanf(filepath.Base(segment), "segment-%06d.cbor.zst", &n); err == nil && n >= next {
			next = n + 1
		}
	}
	return next, nil
}
