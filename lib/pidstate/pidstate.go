// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pidstate records the running sampler in a small state file so
// that a collector restarted after a crash can find and stop the
// sampler its predecessor left behind.
//
// The file is replaced atomically (temporary file, fsync, rename,
// directory fsync), so a reader sees either the previous state or the
// new one, never a torn write.
package pidstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// State describes the sampler a collector started.
type State struct {
	Pid        int       `json:"pid"`
	Argv       []string  `json:"argv"`
	OutputFile string    `json:"output_file"`
	Started    time.Time `json:"started"`
}

// Write atomically replaces the state file at path. The parent
// directory must exist.
func Write(path string, state State) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling pid state: %w", err)
	}
	data = append(data, '\n')

	temporaryPath := path + ".tmp"
	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating %s: %w", temporaryPath, err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing %s: %w", temporaryPath, err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing %s: %w", temporaryPath, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing %s: %w", temporaryPath, err)
	}
	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming pid state into place: %w", err)
	}

	if directory, err := os.Open(filepath.Dir(path)); err == nil {
		directory.Sync()
		directory.Close()
	}
	return nil
}

// Read parses the state file. A missing file yields an error wrapping
// os.ErrNotExist.
func Read(path string) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return State{}, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("parsing pid state %s: %w", path, err)
	}
	return state, nil
}

// Clear removes the state file. A missing file is not an error.
func Clear(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing pid state %s: %w", path, err)
	}
	return nil
}

// TerminateOrphan stops the sampler recorded at path if it is still
// running, then clears the file. The recorded pid is only signalled
// when its command line still ends with the recorded --output arguments;
// a pid reused by an unrelated process is left alone. Reports whether a
// process was signalled.
func TerminateOrphan(path string, logger *slog.Logger) (bool, error) {
	state, err := Read(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		// A corrupt file says nothing useful about any process.
		logger.Warn("discarding unreadable pid state", "path", path, "error", err)
		return false, Clear(path)
	}

	signalled, err := terminateIfSampler(state, logger)
	if err != nil {
		return false, err
	}
	return signalled, Clear(path)
}

func terminateIfSampler(state State, logger *slog.Logger) (bool, error) {
	if state.Pid <= 0 || state.Pid == os.Getpid() {
		return false, nil
	}
	running, err := process.PidExists(int32(state.Pid))
	if err != nil {
		return false, fmt.Errorf("checking pid %d: %w", state.Pid, err)
	}
	if !running {
		return false, nil
	}

	proc, err := process.NewProcess(int32(state.Pid))
	if err != nil {
		// Exited between the two checks.
		return false, nil
	}
	cmdline, err := proc.CmdlineSlice()
	if err != nil {
		return false, nil
	}
	if !matchesSampler(cmdline, state.Argv) {
		logger.Info("recorded sampler pid now belongs to another process",
			"pid", state.Pid, "cmdline", cmdline)
		return false, nil
	}

	logger.Warn("terminating sampler left by a previous collector",
		"pid", state.Pid, "output_file", state.OutputFile, "started", state.Started)
	if err := proc.Terminate(); err != nil {
		return false, fmt.Errorf("terminating orphaned sampler %d: %w", state.Pid, err)
	}
	return true, nil
}

// matchesSampler compares the trailing "--output <file> <delay>"
// arguments. dstat usually runs under an interpreter, so the leading
// elements of its command line differ from the argv that started it.
func matchesSampler(cmdline, argv []string) bool {
	const suffix = 3
	if len(argv) < suffix || len(cmdline) < suffix {
		return false
	}
	return slices.Equal(cmdline[len(cmdline)-suffix:], argv[len(argv)-suffix:])
}
