// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package reactor is a minimal single-goroutine event loop.
//
// A [Reactor] owns a set of periodic [Watcher] registrations and a
// queue of functions posted from other goroutines. All callbacks run
// on the goroutine that called [Reactor.Run], one at a time, so the
// state they touch needs no locking. The collector uses one reactor to
// multiplex the file tailer's poll timer and the staleness monitor.
//
// Ordering rules:
//
//   - Watchers due at the same instant fire in deadline order.
//   - Before a posted function runs, every watcher already due fires.
//     With a fake clock this makes Do a barrier: advance the clock,
//     then Do(noop) returns after the resulting ticks have run.
//   - A watcher detached by a callback receives no further ticks, even
//     within the dispatch round that detached it.
//
// Host calls reach the reactor through [Reactor.Post] (fire and forget,
// blocks while the queue is full), [Reactor.TryPost] (drops when full,
// for wake-ups that coalesce anyway) and [Reactor.Do] (waits for the
// result). A posted function is never cancelled once queued: a caller
// whose context expires abandons the result, not the work.
//
// Errors returned by a [Task] are logged and the watcher keeps
// ticking. A panic escaping a callback is not swallowed: Run returns a
// [*Fault] and the reactor stops, so the host can treat it as fatal.
package reactor
