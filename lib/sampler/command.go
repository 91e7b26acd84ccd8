// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Command describes a dstat invocation.
type Command struct {
	// Path is the dstat executable, resolved through PATH when it has
	// no slash.
	Path string

	// Options are passed before --output, one argument each.
	Options []string

	// OutputFile receives dstat's CSV output.
	OutputFile string

	// Delay is the sampling interval in seconds.
	Delay int
}

// Argv returns the full argument vector, program first.
func (c Command) Argv() []string {
	argv := make([]string, 0, len(c.Options)+4)
	argv = append(argv, c.Path)
	argv = append(argv, c.Options...)
	return append(argv, "--output", c.OutputFile, strconv.Itoa(c.Delay))
}

// String renders the argument vector for logs. It is not a shell
// command line.
func (c Command) String() string { return strings.Join(c.Argv(), " ") }

// Validate reports every problem with the command.
func (c Command) Validate() error {
	var errs []error
	if c.Path == "" {
		errs = append(errs, errors.New("sampler path is empty"))
	}
	if c.OutputFile == "" {
		errs = append(errs, errors.New("sampler output file is empty"))
	}
	if c.Delay < 1 {
		errs = append(errs, fmt.Errorf("sampler delay must be at least 1 second, got %d", c.Delay))
	}
	return errors.Join(errs...)
}

// TouchOrTruncate leaves path as an existing empty file, creating it
// when absent.
func TouchOrTruncate(path string) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("truncating %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
