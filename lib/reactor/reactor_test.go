// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reactor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/bureau-foundation/bureau-dstat/lib/clock"
	"github.com/bureau-foundation/bureau-dstat/lib/testutil"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// counter is a Task that records how often it ticked.
type counter struct {
	ticks []time.Time
	err   error
}

func (c *counter) Tick(now time.Time) error {
	c.ticks = append(c.ticks, now)
	return c.err
}

// startReactor runs r on its own goroutine and returns a channel
// carrying Run's result.
func startReactor(t *testing.T, r *Reactor) <-chan error {
	t.Helper()
	result := make(chan error, 1)
	go func() { result <- r.Run(context.Background()) }()
	t.Cleanup(func() {
		r.Stop()
		<-r.Done()
	})
	return result
}

func barrier(t *testing.T, r *Reactor) {
	t.Helper()
	if err := r.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func tickCount(t *testing.T, r *Reactor, task *counter) int {
	t.Helper()
	var count int
	if err := r.Do(context.Background(), func() { count = len(task.ticks) }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	return count
}

func TestWatcherTicksAtInterval(t *testing.T) {
	fake := clock.Fake(epoch)
	r := New(fake, testLogger())
	task := &counter{}
	r.Attach("poll", 500*time.Millisecond, task)
	startReactor(t, r)

	fake.Advance(400 * time.Millisecond)
	if got := tickCount(t, r, task); got != 0 {
		t.Fatalf("ticks after 400ms = %d, want 0", got)
	}

	fake.Advance(100 * time.Millisecond)
	if got := tickCount(t, r, task); got != 1 {
		t.Fatalf("ticks after 500ms = %d, want 1", got)
	}

	fake.Advance(500 * time.Millisecond)
	if got := tickCount(t, r, task); got != 2 {
		t.Fatalf("ticks after 1s = %d, want 2", got)
	}
	if want := epoch.Add(time.Second); !task.ticks[1].Equal(want) {
		t.Errorf("second tick at %v, want %v", task.ticks[1], want)
	}
}

func TestMissedIntervalsCoalesce(t *testing.T) {
	fake := clock.Fake(epoch)
	r := New(fake, testLogger())
	task := &counter{}
	r.Attach("monitor", time.Second, task)
	startReactor(t, r)

	fake.Advance(5 * time.Second)
	if got := tickCount(t, r, task); got != 1 {
		t.Fatalf("ticks after a 5s jump = %d, want 1", got)
	}

	// The schedule restarts from the time of the coalesced tick.
	fake.Advance(time.Second)
	if got := tickCount(t, r, task); got != 2 {
		t.Fatalf("ticks one interval later = %d, want 2", got)
	}
}

func TestDetachStopsTicks(t *testing.T) {
	fake := clock.Fake(epoch)
	r := New(fake, testLogger())
	task := &counter{}
	watcher := r.Attach("poll", time.Second, task)
	startReactor(t, r)

	fake.Advance(time.Second)
	barrier(t, r)

	if err := r.Do(context.Background(), watcher.Detach); err != nil {
		t.Fatalf("Do(Detach): %v", err)
	}

	fake.Advance(3 * time.Second)
	if got := tickCount(t, r, task); got != 1 {
		t.Fatalf("ticks after Detach = %d, want 1", got)
	}
}

func TestDetachWithinDispatchRound(t *testing.T) {
	fake := clock.Fake(epoch)
	r := New(fake, testLogger())

	victim := &counter{}
	var victimWatcher *Watcher
	r.Attach("detacher", time.Second, TaskFunc(func(time.Time) error {
		victimWatcher.Detach()
		return nil
	}))
	victimWatcher = r.Attach("victim", time.Second, victim)
	startReactor(t, r)

	fake.Advance(time.Second)
	if got := tickCount(t, r, victim); got != 0 {
		t.Fatalf("victim ticks = %d, want 0 (detached earlier in the same round)", got)
	}
}

func TestAttachFromCallback(t *testing.T) {
	fake := clock.Fake(epoch)
	r := New(fake, testLogger())

	replacement := &counter{}
	var original *Watcher
	original = r.Attach("original", time.Second, TaskFunc(func(time.Time) error {
		original.Detach()
		r.Attach("replacement", time.Second, replacement)
		return nil
	}))
	startReactor(t, r)

	fake.Advance(time.Second)
	if got := tickCount(t, r, replacement); got != 0 {
		t.Fatalf("replacement ticked in the round that created it")
	}
	fake.Advance(time.Second)
	if got := tickCount(t, r, replacement); got != 1 {
		t.Fatalf("replacement ticks = %d, want 1", got)
	}
}

func TestTaskErrorKeepsWatcher(t *testing.T) {
	fake := clock.Fake(epoch)
	r := New(fake, testLogger())
	task := &counter{err: errors.New("transient")}
	r.Attach("flaky", time.Second, task)
	startReactor(t, r)

	for range 3 {
		fake.Advance(time.Second)
		barrier(t, r)
	}
	if got := tickCount(t, r, task); got != 3 {
		t.Fatalf("ticks = %d, want 3", got)
	}
}

func TestWatcherResetDelaysNextTick(t *testing.T) {
	fake := clock.Fake(epoch)
	r := New(fake, testLogger())
	task := &counter{}
	watcher := r.Attach("monitor", time.Second, task)
	startReactor(t, r)

	fake.Advance(700 * time.Millisecond)
	if err := r.Do(context.Background(), watcher.Reset); err != nil {
		t.Fatalf("Do(Reset): %v", err)
	}

	fake.Advance(700 * time.Millisecond)
	if got := tickCount(t, r, task); got != 0 {
		t.Fatalf("ticks before the reset deadline = %d, want 0", got)
	}
	fake.Advance(300 * time.Millisecond)
	if got := tickCount(t, r, task); got != 1 {
		t.Fatalf("ticks at the reset deadline = %d, want 1", got)
	}
}

func TestFireRunsImmediately(t *testing.T) {
	fake := clock.Fake(epoch)
	r := New(fake, testLogger())
	task := &counter{}
	watcher := r.Attach("poll", time.Minute, task)
	startReactor(t, r)

	if err := r.Do(context.Background(), watcher.Fire); err != nil {
		t.Fatalf("Do(Fire): %v", err)
	}
	if got := tickCount(t, r, task); got != 1 {
		t.Fatalf("ticks after Fire = %d, want 1", got)
	}
}

func TestPanicStopsReactorWithFault(t *testing.T) {
	fake := clock.Fake(epoch)
	r := New(fake, testLogger())
	r.Attach("broken", time.Second, TaskFunc(func(time.Time) error {
		panic("decoder exploded")
	}))
	result := startReactor(t, r)

	fake.Advance(time.Second)
	err := testutil.RequireReceive(t, result, 5*time.Second, "Run to return after panic")

	var fault *Fault
	if !errors.As(err, &fault) {
		t.Fatalf("Run error = %v, want *Fault", err)
	}
	if fault.Watcher != "broken" {
		t.Errorf("Fault.Watcher = %q, want %q", fault.Watcher, "broken")
	}
	if len(fault.Stack) == 0 {
		t.Error("Fault.Stack is empty")
	}
	if !errors.Is(r.Err(), err) {
		t.Errorf("Err() = %v, want %v", r.Err(), err)
	}
	if err := r.Post(func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Post after fault = %v, want ErrStopped", err)
	}
}

func TestPanicInPostedFunction(t *testing.T) {
	r := New(clock.Fake(epoch), testLogger())
	result := startReactor(t, r)

	err := r.Do(context.Background(), func() { panic("boom") })
	if !errors.Is(err, ErrStopped) {
		t.Fatalf("Do with panicking fn = %v, want ErrStopped", err)
	}
	runErr := testutil.RequireReceive(t, result, 5*time.Second, "Run to return")
	var fault *Fault
	if !errors.As(runErr, &fault) || fault.Watcher != "" {
		t.Fatalf("Run error = %v, want *Fault without watcher", runErr)
	}
}

func TestStopIsCleanAndIdempotent(t *testing.T) {
	r := New(clock.Fake(epoch), testLogger())
	result := startReactor(t, r)

	barrier(t, r)
	r.Stop()
	r.Stop()

	if err := testutil.RequireReceive(t, result, 5*time.Second, "Run to return"); err != nil {
		t.Fatalf("Run after Stop = %v, want nil", err)
	}
	if err := r.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
	if err := r.Do(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("Do after Stop = %v, want ErrStopped", err)
	}
}

func TestRunReturnsOnContextCancel(t *testing.T) {
	r := New(clock.Fake(epoch), testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	result := make(chan error, 1)
	go func() { result <- r.Run(ctx) }()

	cancel()
	if err := testutil.RequireReceive(t, result, 5*time.Second, "Run to return"); err != nil {
		t.Fatalf("Run after cancel = %v, want nil", err)
	}
	testutil.RequireClosed(t, r.Done(), 5*time.Second, "Done after cancel")
}
