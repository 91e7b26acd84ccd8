// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/bureau-dstat/lib/clock"
	"github.com/bureau-foundation/bureau-dstat/lib/dstatcsv"
	"github.com/bureau-foundation/bureau-dstat/lib/pidstate"
	"github.com/bureau-foundation/bureau-dstat/lib/reactor"
	"github.com/bureau-foundation/bureau-dstat/lib/sampler"
	"github.com/bureau-foundation/bureau-dstat/lib/sink"
	"github.com/bureau-foundation/bureau-dstat/lib/tail"
)

// Watcher names, as they appear in logs and faults.
const (
	tailWatcherName      = "tail"
	stalenessWatcherName = "staleness"
)

// reapTimeout bounds the wait for a terminated sampler to exit. It is
// longer than the sampler's own stderr drain delay.
const reapTimeout = 2 * time.Second

// Config is the resolved collector configuration.
type Config struct {
	// Tag is attached to every emitted event.
	Tag string

	// Command is the sampler invocation. Command.OutputFile is the
	// tailed file.
	Command sampler.Command

	// Hostname is stamped on every record.
	Hostname string

	// MaxLines is the number of lines between output truncations.
	MaxLines int

	// PollInterval is how often the output file is checked.
	PollInterval time.Duration

	// CheckInterval is how often staleness is evaluated.
	CheckInterval time.Duration

	// StaleAfter is the silence that triggers a restart.
	StaleAfter time.Duration

	// Notify polls on filesystem write notifications as well.
	Notify bool

	// StateFile, when set, records the running sampler for orphan
	// recovery.
	StateFile string
}

// Options carries the collector's collaborators.
type Options struct {
	Clock   clock.Clock
	Logger  *slog.Logger
	Spawner sampler.Spawner
	Sink    sink.Sink

	// Registerer receives the collector's own metrics. Nil leaves them
	// unregistered.
	Registerer prometheus.Registerer
}

// Collector runs the sampling pipeline. Create with New, then Start.
type Collector struct {
	config  Config
	clock   clock.Clock
	logger  *slog.Logger
	spawner sampler.Spawner
	sink    sink.Sink
	metrics *metrics
	reactor *reactor.Reactor

	// Owned by the reactor goroutine once Start returns.
	decoder   dstatcsv.Decoder
	handle    sampler.Handle
	tailer    *tail.Tailer
	poll      *reactor.Watcher
	monitor   *reactor.Watcher
	lastLine  time.Time
	restarts  int
	rotations int
	spawns    int
	records   int

	notifier *tail.Notifier

	started      bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// New validates config and builds a collector. Nothing runs until
// Start.
func New(config Config, options Options) (*Collector, error) {
	var errs []error
	if err := config.Command.Validate(); err != nil {
		errs = append(errs, err)
	}
	if config.MaxLines < 1 {
		errs = append(errs, fmt.Errorf("max lines must be at least 1, got %d", config.MaxLines))
	}
	if config.PollInterval <= 0 || config.CheckInterval <= 0 {
		errs = append(errs, errors.New("poll and check intervals must be positive"))
	}
	if config.StaleAfter <= 0 {
		errs = append(errs, errors.New("staleness threshold must be positive"))
	}
	if options.Spawner == nil || options.Sink == nil || options.Logger == nil {
		errs = append(errs, errors.New("spawner, sink and logger are required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	clk := options.Clock
	if clk == nil {
		clk = clock.Real()
	}
	m, err := newMetrics(options.Registerer)
	if err != nil {
		return nil, err
	}
	logger := options.Logger.With("component", "collector", "output_file", config.Command.OutputFile)
	return &Collector{
		config:  config,
		clock:   clk,
		logger:  logger,
		spawner: options.Spawner,
		sink:    options.Sink,
		metrics: m,
		reactor: reactor.New(clk, options.Logger),
	}, nil
}

// Start prepares the output file, spawns the sampler, attaches the
// tailer and staleness monitor, and runs the reactor on its own
// goroutine until Shutdown or until ctx is cancelled. A sampler that
// cannot be started is returned as an error and nothing keeps running.
func (c *Collector) Start(ctx context.Context) error {
	if c.started {
		return errors.New("collector already started")
	}
	c.started = true

	if c.config.StateFile != "" {
		if _, err := pidstate.TerminateOrphan(c.config.StateFile, c.logger); err != nil {
			c.logger.Warn("orphaned sampler check failed", "state_file", c.config.StateFile, "error", err)
		}
	}

	if err := c.launch(); err != nil {
		c.started = false
		return err
	}
	c.monitor = c.reactor.Attach(stalenessWatcherName, c.config.CheckInterval, reactor.TaskFunc(c.checkStaleness))

	if c.config.Notify {
		notifier, err := tail.Watch(c.config.Command.OutputFile, c.wake, c.logger)
		if err != nil {
			c.logger.Warn("write notifications unavailable, polling only", "error", err)
		} else {
			c.notifier = notifier
		}
	}

	pid := c.handle.Pid()
	go c.reactor.Run(ctx)

	c.logger.Info("collector started",
		"pid", pid,
		"poll_interval", c.config.PollInterval,
		"stale_after", c.config.StaleAfter,
		"max_lines", c.config.MaxLines,
	)
	return nil
}

// launch truncates the output file, spawns a sampler, and attaches a
// tailer. It stamps lastLine so the staleness clock starts now. On
// error no sampler is left running.
func (c *Collector) launch() error {
	outputFile := c.config.Command.OutputFile
	if err := sampler.TouchOrTruncate(outputFile); err != nil {
		return err
	}

	handle, err := c.spawner.Spawn(c.config.Command)
	if err != nil {
		return err
	}
	c.spawns++
	c.metrics.spawns.Inc()

	if err := c.attachTailer(); err != nil {
		c.stopSampler(handle)
		return err
	}
	c.handle = handle
	c.lastLine = c.clock.Now()
	c.writeState()
	return nil
}

func (c *Collector) attachTailer() error {
	tailer, err := tail.Open(c.config.Command.OutputFile, c)
	if err != nil {
		return err
	}
	c.tailer = tailer
	c.poll = c.reactor.Attach(tailWatcherName, c.config.PollInterval, tailer)
	return nil
}

// detachTailer stops polling and closes the current tailer. Safe when
// none is attached.
func (c *Collector) detachTailer() {
	if c.poll != nil {
		c.poll.Detach()
		c.poll = nil
	}
	if c.tailer != nil {
		if err := c.tailer.Close(); err != nil {
			c.logger.Warn("closing tailer", "error", err)
		}
		c.tailer = nil
	}
}

// terminateSampler signals the current sampler. A sampler that already
// exited is logged and otherwise ignored; its handle reaps it either way.
func (c *Collector) terminateSampler() {
	if c.handle == nil {
		return
	}
	c.stopSampler(c.handle)
	c.handle = nil
}

// stopSampler signals handle and waits up to reapTimeout for it to be
// reaped, so a final row from the old sampler cannot land in the
// recreated output file.
func (c *Collector) stopSampler(handle sampler.Handle) {
	err := handle.Terminate()
	switch {
	case errors.Is(err, sampler.ErrProcessGone):
		c.logger.Error("unexpected death of a child process", "pid", handle.Pid(), "exit_code", handle.ExitCode())
		return
	case err != nil:
		c.logger.Warn("terminating sampler", "pid", handle.Pid(), "error", err)
		return
	}
	select {
	case <-handle.Done():
		return
	default:
	}
	timer := c.clock.NewTimer(reapTimeout)
	defer timer.Stop()
	select {
	case <-handle.Done():
	case <-timer.C:
		c.logger.Warn("sampler did not exit after SIGTERM", "pid", handle.Pid(), "timeout", reapTimeout)
	}
}

func (c *Collector) writeState() {
	if c.config.StateFile == "" || c.handle == nil {
		return
	}
	state := pidstate.State{
		Pid:        c.handle.Pid(),
		Argv:       c.config.Command.Argv(),
		OutputFile: c.config.Command.OutputFile,
		Started:    c.clock.Now(),
	}
	if err := pidstate.Write(c.config.StateFile, state); err != nil {
		c.logger.Warn("recording sampler pid", "state_file", c.config.StateFile, "error", err)
	}
}

// wake runs on the notifier goroutine.
func (c *Collector) wake() {
	c.reactor.TryPost(func() {
		if c.poll != nil {
			c.poll.Fire()
		}
	})
}

// HandleLines decodes one batch from the tailer. It implements
// tail.LineBatchHandler and runs on the reactor goroutine.
func (c *Collector) HandleLines(lines []string) {
	for _, raw := range lines {
		line, ok := c.decoder.Decode(raw)
		if !ok {
			continue
		}
		c.metrics.lines.WithLabelValues(lineKindLabel(line.Kind)).Inc()
		if line.Kind == dstatcsv.KindData {
			c.emit(line.Data)
		}
		c.lastLine = c.clock.Now()
		c.metrics.lastLineTime.Set(float64(c.lastLine.UnixNano()) / 1e9)
		c.onLineProcessed(line.Index)
	}
}

func (c *Collector) emit(data *dstatcsv.Data) {
	event := sink.Event{
		Tag:    c.config.Tag,
		Time:   c.clock.Now(),
		Record: dstatcsv.Record{Hostname: c.config.Hostname, Dstat: data},
	}
	if err := c.sink.Emit(event); err != nil {
		c.metrics.emitErrors.Inc()
		c.logger.Warn("emitting record", "error", err)
		return
	}
	c.records++
	c.metrics.records.Inc()
}

// Restart replaces the sampler and tailer now, regardless of
// staleness.
func (c *Collector) Restart(ctx context.Context) error {
	result := make(chan error, 1)
	if err := c.reactor.Do(ctx, func() { result <- c.restart() }); err != nil {
		return err
	}
	return <-result
}

// restart runs on the reactor goroutine. The order is fixed: detach the
// old tailer, terminate the old sampler, reset the counter, recreate
// the file, spawn, attach the new tailer. The key table survives until
// the new run's headers replace it.
func (c *Collector) restart() error {
	previous := 0
	if c.handle != nil {
		previous = c.handle.Pid()
	}
	c.detachTailer()
	c.terminateSampler()
	c.decoder.Reset()

	if err := c.launch(); err != nil {
		return fmt.Errorf("restarting sampler: %w", err)
	}
	if c.monitor != nil {
		c.monitor.Reset()
	}
	c.restarts++
	c.metrics.restarts.Inc()
	c.logger.Info("sampler restarted", "previous_pid", previous, "pid", c.handle.Pid())
	return nil
}

// Done is closed when the reactor stops, after Shutdown or a fault.
func (c *Collector) Done() <-chan struct{} { return c.reactor.Done() }

// Err returns the fault that stopped the reactor, or nil.
func (c *Collector) Err() error { return c.reactor.Err() }

// Shutdown terminates the sampler, detaches the tailer and monitor,
// stops the reactor, and deletes the output file. Only the first call
// does anything; later calls return its result. Shutdown also cleans
// up after a reactor that already stopped on a fault.
func (c *Collector) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() {
		c.shutdownErr = c.shutdown(ctx)
	})
	return c.shutdownErr
}

func (c *Collector) shutdown(ctx context.Context) error {
	if !c.started {
		return nil
	}
	if c.notifier != nil {
		c.notifier.Close()
	}

	if err := c.reactor.Do(ctx, c.teardown); err != nil {
		// The reactor is gone or wedged. Once its goroutine has exited
		// the state is safe to touch from here.
		c.reactor.Stop()
		select {
		case <-c.reactor.Done():
		case <-ctx.Done():
			return fmt.Errorf("waiting for reactor to stop: %w", ctx.Err())
		}
		c.teardown()
	}
	c.reactor.Stop()
	select {
	case <-c.reactor.Done():
	case <-ctx.Done():
		return fmt.Errorf("waiting for reactor to stop: %w", ctx.Err())
	}

	var errs []error
	if err := os.Remove(c.config.Command.OutputFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, fmt.Errorf("removing output file: %w", err))
	}
	if c.config.StateFile != "" {
		if err := pidstate.Clear(c.config.StateFile); err != nil {
			errs = append(errs, err)
		}
	}
	c.logger.Info("collector stopped", "records", c.records, "restarts", c.restarts, "rotations", c.rotations)
	return errors.Join(errs...)
}

// teardown is idempotent: a shutdown that timed out after posting it
// may run it a second time directly.
func (c *Collector) teardown() {
	c.terminateSampler()
	c.detachTailer()
	if c.monitor != nil {
		c.monitor.Detach()
		c.monitor = nil
	}
}
