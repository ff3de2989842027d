// Copyright 2026 The Lockstep Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Lockstep's standard CBOR encoding
// configuration.
//
// Lockstep uses two serialization formats with a clear boundary:
//
//   - CBOR for everything on the graph socket (requests, responses,
//     subscribe stream frames) and for journal records on disk.
//   - JSON for CLI --json output and for watch theme files.
//
// This package holds the shared CBOR modes so every package encodes
// identically. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items.
//
// Buffer-oriented use (journal records, raw data fields):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// Stream-oriented use (sockets):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization contract:
//
//   - `cbor` tag: the type only ever crosses a CBOR boundary
//     (stream frames, journal records).
//   - `json` tag: the type serves both formats. fxamacker/cbor reads
//     `json` tags as fallback when `cbor` tags are absent, so one tag
//     controls naming and omitempty for both. Used for socket
//     responses that the CLI also prints as --json output.
//
// Never put both tags on one field; the choice of tag is what records
// the contract.
package codec
