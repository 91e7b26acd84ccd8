// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/bureau-foundation/bureau-dstat/lib/clock"
)

// ErrStopped is returned by Post and Do once the reactor has stopped.
var ErrStopped = errors.New("reactor: stopped")

// idleWait is how long the loop sleeps when no watcher is attached.
// Posted functions and Stop still wake it immediately.
const idleWait = time.Hour

// postQueue is the capacity of the posted-function queue.
const postQueue = 64

// Task is a periodic unit of work dispatched on the reactor
// goroutine. A returned error is logged; it does not detach the
// watcher.
type Task interface {
	Tick(now time.Time) error
}

// TaskFunc adapts a function to Task.
type TaskFunc func(now time.Time) error

// Tick calls f.
func (f TaskFunc) Tick(now time.Time) error { return f(now) }

// Fault describes a panic that escaped a reactor callback. Run returns
// it and the reactor stops.
type Fault struct {
	Watcher string
	Value   any
	Stack   []byte
}

func (f *Fault) Error() string {
	if f.Watcher == "" {
		return fmt.Sprintf("reactor: panic in posted function: %v", f.Value)
	}
	return fmt.Sprintf("reactor: panic in watcher %q: %v", f.Watcher, f.Value)
}

// Reactor is a single-goroutine event loop multiplexing periodic
// watchers and functions posted from other goroutines.
//
// Attach, Detach, Reset and Fire must only be called from the reactor
// goroutine (from a Task or a posted function), or before Run starts.
// Post, Do, Stop, Done and Err are safe from any goroutine.
type Reactor struct {
	clock  clock.Clock
	logger *slog.Logger

	watchers []*Watcher

	posted   chan func()
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	err      error
}

// New creates a reactor. It does nothing until Run is called.
func New(clk clock.Clock, logger *slog.Logger) *Reactor {
	return &Reactor{
		clock:  clk,
		logger: logger.With("component", "reactor"),
		posted: make(chan func(), postQueue),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Watcher is the registration of a Task at a fixed interval.
type Watcher struct {
	reactor  *Reactor
	name     string
	interval time.Duration
	task     Task
	deadline time.Time
	attached bool
}

// Attach registers task to run every interval, first firing one
// interval from now. name identifies the watcher in logs.
func (r *Reactor) Attach(name string, interval time.Duration, task Task) *Watcher {
	if interval <= 0 {
		panic("reactor: non-positive watcher interval")
	}
	watcher := &Watcher{
		reactor:  r,
		name:     name,
		interval: interval,
		task:     task,
		deadline: r.clock.Now().Add(interval),
		attached: true,
	}
	r.watchers = append(r.watchers, watcher)
	return watcher
}

// Detach removes the watcher. Its task receives no further ticks, even
// when Detach is called while a dispatch round that included it is in
// progress. Detaching twice is a no-op.
func (w *Watcher) Detach() {
	if !w.attached {
		return
	}
	w.attached = false
	watchers := w.reactor.watchers
	for i, candidate := range watchers {
		if candidate == w {
			w.reactor.watchers = append(watchers[:i], watchers[i+1:]...)
			break
		}
	}
}

// Attached reports whether the watcher still receives ticks.
func (w *Watcher) Attached() bool { return w.attached }

// Reset re-arms the watcher so its next tick is one full interval
// from now.
func (w *Watcher) Reset() {
	w.deadline = w.reactor.clock.Now().Add(w.interval)
}

// Fire dispatches the task immediately, outside its schedule. The
// regular schedule is unchanged.
func (w *Watcher) Fire() {
	if !w.attached {
		return
	}
	w.reactor.dispatch(w, w.reactor.clock.Now())
}

// Post queues fn to run on the reactor goroutine. It never blocks
// once the reactor has stopped; it returns ErrStopped instead.
func (r *Reactor) Post(fn func()) error {
	select {
	case <-r.done:
		return ErrStopped
	case <-r.stop:
		return ErrStopped
	default:
	}
	select {
	case r.posted <- fn:
		return nil
	case <-r.done:
		return ErrStopped
	case <-r.stop:
		return ErrStopped
	}
}

// TryPost queues fn if there is room and reports whether it did. Used
// for advisory wake-ups that the periodic schedule would cover anyway.
func (r *Reactor) TryPost(fn func()) bool {
	select {
	case <-r.stop:
		return false
	default:
	}
	select {
	case r.posted <- fn:
		return true
	default:
		return false
	}
}

// Do runs fn on the reactor goroutine and waits for it to return.
// Every watcher already due at the time fn is dequeued runs first, so
// Do also serves as a barrier after advancing a fake clock.
//
// If ctx ends before fn has run, Do returns ctx.Err() but fn stays
// queued and still runs later. fn must therefore not write to variables
// the caller reads after Do returns; hand results back through a
// buffered channel instead.
func (r *Reactor) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	completed := false
	if err := r.Post(func() {
		defer close(finished)
		fn()
		completed = true
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		if !completed {
			return ErrStopped
		}
		return nil
	case <-r.done:
		select {
		case <-finished:
			if completed {
				return nil
			}
		default:
		}
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop asks the loop to exit after the current dispatch. Safe to call
// more than once and from any goroutine, including the reactor's own.
func (r *Reactor) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Done is closed when Run has returned.
func (r *Reactor) Done() <-chan struct{} { return r.done }

// Err returns the fault that terminated Run, or nil after a clean
// stop. Only meaningful once Done is closed.
func (r *Reactor) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// Run executes the loop on the calling goroutine until Stop is called,
// ctx is cancelled, or a callback panics. A panic is returned as a
// *Fault and is also available from Err.
func (r *Reactor) Run(ctx context.Context) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			fault, ok := recovered.(*Fault)
			if !ok {
				fault = &Fault{Value: recovered, Stack: debug.Stack()}
			}
			r.logger.Error("reactor stopped by unexpected fault",
				"watcher", fault.Watcher,
				"error", fmt.Sprint(fault.Value),
				"stack", string(fault.Stack),
			)
			err = fault
		}
		r.err = err
		r.Stop()
		close(r.done)
	}()

	timer := r.clock.NewTimer(r.untilNext())
	defer timer.Stop()

	for {
		r.fireDue()
		timer.Reset(r.untilNext())

		select {
		case <-ctx.Done():
			return nil
		case <-r.stop:
			return nil
		case fn := <-r.posted:
			r.fireDue()
			fn()
		case <-timer.C:
		}
	}
}

// untilNext returns the wait until the earliest watcher deadline.
func (r *Reactor) untilNext() time.Duration {
	if len(r.watchers) == 0 {
		return idleWait
	}
	next := r.watchers[0].deadline
	for _, watcher := range r.watchers[1:] {
		if watcher.deadline.Before(next) {
			next = watcher.deadline
		}
	}
	wait := next.Sub(r.clock.Now())
	if wait < 0 {
		return 0
	}
	return wait
}

// fireDue dispatches every attached watcher whose deadline has passed,
// in deadline order, exactly once each. Missed intervals are coalesced:
// the next deadline is one interval after now.
func (r *Reactor) fireDue() {
	now := r.clock.Now()

	var due []*Watcher
	for _, watcher := range r.watchers {
		if !watcher.deadline.After(now) {
			due = append(due, watcher)
		}
	}
	sort.SliceStable(due, func(i, j int) bool {
		return due[i].deadline.Before(due[j].deadline)
	})

	for _, watcher := range due {
		// A callback earlier in this round may have detached it.
		if !watcher.attached {
			continue
		}
		watcher.deadline = now.Add(watcher.interval)
		r.dispatch(watcher, now)
	}
}

// dispatch runs one tick. Errors are logged; panics are wrapped in a
// Fault naming the watcher and re-raised to terminate Run.
func (r *Reactor) dispatch(watcher *Watcher, now time.Time) {
	defer func() {
		if recovered := recover(); recovered != nil {
			if fault, ok := recovered.(*Fault); ok {
				panic(fault)
			}
			panic(&Fault{Watcher: watcher.name, Value: recovered, Stack: debug.Stack()})
		}
	}()
	if err := watcher.task.Tick(now); err != nil {
		r.logger.Warn("watcher tick failed", "watcher", watcher.name, "error", err)
	}
}
