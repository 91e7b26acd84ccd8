// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Components that schedule work take a Clock instead of calling
// time.Now, time.After or time.NewTimer directly. Real() wraps the
// standard library. Fake() returns a FakeClock that stands still until
// Advance is called, which makes timer-driven behavior such as "restart
// after three missed samples" or "give up on a sampler that ignores
// SIGTERM" testable without sleeping.
//
// The interface is deliberately narrow: Now, After and a resettable
// NewTimer. The reactor keeps exactly one timer armed for its nearest
// watcher deadline and re-arms it with Reset after every dispatch, so
// tickers and AfterFunc callbacks have no users here. A smaller surface
// also keeps FakeClock's ordering rules easy to state.
//
// # Wiring Pattern
//
// Add a Clock field to structs that use time and default it to Real():
//
//	type Collector struct {
//	    clock clock.Clock
//	    // ...
//	}
//
// In tests, share one FakeClock between the component and the test:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go loop(c)
//	c.WaitForTimers(1) // wait for loop to arm its timer
//	c.Advance(time.Second)
//
// # FakeClock Semantics
//
// Advance fires every timer whose deadline is at or before the new
// time, in deadline order. Sends never block; a timer whose channel
// still holds an unread value keeps the old value, matching the
// capacity-one channels of time.Timer. Arming a timer with a duration
// of zero or less fires it immediately. WaitForTimers closes the race
// between a goroutine registering a timer and the test advancing past
// it, which is what tests built on time.Sleep get wrong.
package clock
