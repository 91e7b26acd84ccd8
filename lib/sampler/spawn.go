// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// ErrProcessGone is returned by Handle.Terminate when the process had
// already exited.
var ErrProcessGone = errors.New("sampler process already exited")

// pipeDrainDelay bounds how long reaping waits for stderr to close
// after the process exits. Descendants that inherited stderr would
// otherwise hold the reaper open.
const pipeDrainDelay = time.Second

// Handle is a running sampler process.
type Handle interface {
	// Pid returns the process id.
	Pid() int

	// Terminate sends SIGTERM to the sampler's process group and
	// returns without waiting. It returns an error wrapping
	// ErrProcessGone when the process had already exited.
	Terminate() error

	// Done is closed once the process has exited and been reaped.
	Done() <-chan struct{}

	// ExitCode returns the exit status, -1 when killed by a signal.
	// Only meaningful after Done is closed.
	ExitCode() int
}

// Spawner starts sampler processes.
type Spawner interface {
	Spawn(command Command) (Handle, error)
}

// ExecSpawner starts samplers with os/exec.
type ExecSpawner struct {
	Logger *slog.Logger
}

// Spawn starts command. Failures to start, such as a missing
// executable, are returned; a process that starts and exits at once is
// reported through its Handle.
func (s ExecSpawner) Spawn(command Command) (Handle, error) {
	argv := command.Argv()
	logger := s.Logger.With("component", "sampler", "command", argv[0])

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = nil
	stderr := &lineLogger{logger: logger}
	cmd.Stderr = stderr
	cmd.SysProcAttr = sysProcAttr()
	cmd.WaitDelay = pipeDrainDelay

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", command, err)
	}

	handle := &execHandle{
		process: cmd.Process,
		done:    make(chan struct{}),
	}
	logger = logger.With("pid", handle.Pid())

	go func() {
		waitError := cmd.Wait()
		stderr.flush()
		exitCode := 0
		if waitError != nil {
			var exitErr *exec.ExitError
			if errors.As(waitError, &exitErr) {
				exitCode = exitErr.ExitCode()
			} else {
				exitCode = -1
			}
		}
		handle.exitCode = exitCode
		logger.Info("sampler process exited", "exit_code", exitCode, "error", waitError)
		close(handle.done)
	}()

	logger.Info("sampler started", "argv", argv)
	return handle, nil
}

type execHandle struct {
	process  *os.Process
	done     chan struct{}
	exitCode int
}

func (h *execHandle) Pid() int { return h.process.Pid }

func (h *execHandle) Done() <-chan struct{} { return h.done }

func (h *execHandle) ExitCode() int {
	select {
	case <-h.done:
		return h.exitCode
	default:
		return 0
	}
}

func (h *execHandle) Terminate() error {
	select {
	case <-h.done:
		return fmt.Errorf("terminating pid %d: %w", h.Pid(), ErrProcessGone)
	default:
	}
	// The sampler leads its own process group; signal all of it.
	err := unix.Kill(-h.Pid(), unix.SIGTERM)
	if errors.Is(err, unix.ESRCH) {
		err = h.process.Signal(unix.SIGTERM)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, unix.ESRCH) || errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("terminating pid %d: %w", h.Pid(), ErrProcessGone)
	}
	return fmt.Errorf("terminating pid %d: %w", h.Pid(), err)
}

// lineLogger is an io.Writer that logs each complete line at warn
// level.
type lineLogger struct {
	logger *slog.Logger

	mu      sync.Mutex
	partial []byte
}

func (l *lineLogger) Write(data []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.partial = append(l.partial, data...)
	for {
		index := bytes.IndexByte(l.partial, '\n')
		if index < 0 {
			break
		}
		l.emit(l.partial[:index])
		l.partial = l.partial[index+1:]
	}
	return len(data), nil
}

func (l *lineLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.partial) > 0 {
		l.emit(l.partial)
		l.partial = nil
	}
}

func (l *lineLogger) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(line) == 0 {
		return
	}
	l.logger.Warn("sampler stderr", "line", string(line))
}
