// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package collector supervises a dstat sampler and turns its CSV output
// into records.
//
// A [Collector] owns one sampler process, one [tail.Tailer] following
// the sampler's output file, the [dstatcsv.Decoder] state, and a
// staleness monitor, all driven by a single [reactor.Reactor]
// goroutine. Nothing in that state is locked: every mutation happens in
// a reactor callback, and host calls ([Collector.Restart],
// [Collector.Status], [Collector.Shutdown]) are marshalled onto the
// reactor with [reactor.Reactor.Do].
//
// Three events change the pipeline:
//
//   - Rotation. After every max_lines lines the output file is
//     truncated and a fresh tailer starts at offset zero. The decoder
//     keeps its line counter and key table, so the rows that follow
//     are decoded as data.
//   - Restart. When no line has been decoded for longer than the
//     staleness threshold, the tailer is detached, the sampler is sent
//     SIGTERM (an already-dead sampler is logged and ignored) and
//     reaped, the line counter is reset, the file is truncated, a new
//     sampler is spawned and a new tailer attached. A failed restart is retried on the
//     next staleness check.
//   - Shutdown. Runs once: terminate the sampler, detach everything,
//     stop the reactor, then delete the output file.
//
// Replacing a sampler waits for the old process to be reaped, bounded
// by a short timeout, before the output file is truncated. Without the
// wait a final row flushed by the old sampler could land at offset zero
// of the new run and be decoded as its first banner line, shifting
// header detection for the whole run.
//
// Host calls that read state ([Collector.Status], [Collector.Restart])
// return results through channels owned by the posted function, so a
// caller that times out while the reactor is busy never shares memory
// with the work it abandoned.
//
// A panic escaping the tailer or a sink stops the reactor. [Collector.Done]
// closes and [Collector.Err] returns the [reactor.Fault]; the binary
// treats that as fatal.
package collector
