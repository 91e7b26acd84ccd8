// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the binary record format of bureau-dstat's cbor
// outputs: a CBOR sequence (RFC 8742) of deterministic items, optionally
// wrapped in a zstd or lz4 frame.
//
// bureau-dstat uses two serialization formats with a clear boundary:
//
//   - JSON for everything a human or a generic tool reads: the
//     configuration file (as JSONC), the jsonl outputs, the status
//     server and the sampler state file.
//   - CBOR for the cbor outputs, where record volume makes the smaller
//     encoding and optional compression worth a binary format.
//
// Items are encoded with Core Deterministic Encoding (RFC 8949 §4.2):
// sorted map keys, smallest integer encoding, no indefinite-length
// items. Two records with the same content produce the same bytes, so
// compressed archives deduplicate well and tests can compare encodings
// directly.
//
// Times are RFC 3339 text rather than CBOR epoch tags. An event's time
// then reads identically in the jsonl and cbor outputs, and downstream
// tools that only understand JSON types can convert a decoded item
// without special cases. For the same reason the decoder yields
// map[string]any for untyped maps: the fxamacker default of
// map[any]any cannot be passed to encoding/json, and record
// consumers index by string key anyway.
//
// # Streams
//
// [StreamWriter] flushes the compressor after every item. A file being
// written by a running collector can therefore be read by
// [StreamReader] up to the last complete item, and a crash loses at
// most the item in flight. [Compression] selects the framing:
//
//   - "" writes plain CBOR items back to back.
//   - "zstd" favors ratio; suited to long-lived archives.
//   - "lz4" favors speed; suited to outputs shipped off-host quickly.
//
// The compression is not recorded in the stream. Readers must be told
// which one the writer used, normally from the same output config.
//
// # Struct Tags
//
// Types written through this package carry `json` tags only.
// fxamacker/cbor falls back to `json` tags when `cbor` tags are absent,
// so one tag controls field naming and omitempty in both formats.
// Never put both tags on the same field.
package codec
