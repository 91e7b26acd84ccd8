// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sink delivers decoded dstat records.
//
// The collector hands every data row to a [Sink] as an [Event]: the
// configured tag, the emit time, and the record itself. What happens
// next is the sink's business. [JSONLines] writes one JSON object per
// event, [CBOR] writes a deterministic CBOR sequence (optionally zstd or
// lz4 compressed), [Prometheus] keeps the latest sample of every column
// for scraping, and [Multi] fans out to several sinks.
//
// [Injector] copies the tag and time into the record body under
// configurable keys before the event reaches the next sink.
//
// The JSON form of an event is
//
//	{"tag":"dstat","time":"2026-01-01T00:00:00Z","record":{"hostname":"web-1","dstat":{...}}}
//
// Sinks must be safe for use from one goroutine at a time; the
// collector only emits from its reactor goroutine. Prometheus is also
// read concurrently by scrapes and locks accordingly.
package sink
