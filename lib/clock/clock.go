// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the time operations the collector depends on.
// Production code injects Real(); tests inject Fake() and move time
// forward explicitly with Advance.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d
	// has elapsed. If d <= 0 the channel is ready immediately.
	After(d time.Duration) <-chan time.Time

	// NewTimer returns a one-shot Timer that delivers on C after d.
	// The timer can be re-armed with Reset.
	NewTimer(d time.Duration) *Timer
}

// Timer is a resettable one-shot timer. C has capacity 1.
type Timer struct {
	// C receives the fire time.
	C <-chan time.Time

	stopFunc  func() bool
	resetFunc func(time.Duration) bool
}

// Stop prevents the Timer from firing. Returns false if the timer had
// already fired or been stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }

// Reset re-arms the timer to fire after d, discarding any fire value
// not yet received from C. Returns true if the timer was still
// pending before the call.
func (t *Timer) Reset(d time.Duration) bool { return t.resetFunc(d) }
