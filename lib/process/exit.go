// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// Exit codes beyond the generic failure.
const (
	// ExitFailure is any error from run().
	ExitFailure = 1

	// ExitUsage is a bad flag or configuration (EX_USAGE).
	ExitUsage = 64

	// ExitSoftware is an internal fault such as a panic that stopped
	// the collector (EX_SOFTWARE).
	ExitSoftware = 70
)

// exitError attaches an exit code to an error.
type exitError struct {
	err  error
	code int
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// WithExitCode makes Fatal exit with code when it reports err. A nil
// err stays nil.
func WithExitCode(err error, code int) error {
	if err == nil {
		return nil
	}
	return &exitError{err: err, code: code}
}

// ExitCode returns the code attached by WithExitCode, 0 for nil, and
// ExitFailure otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var coded *exitError
	if errors.As(err, &coded) {
		return coded.code
	}
	return ExitFailure
}

// Report writes "error: err" to w.
func Report(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
}

// Fatal reports err on stderr and exits with its ExitCode. Use it in
// main() for errors from run(), where the logger may not exist yet.
func Fatal(err error) {
	Report(os.Stderr, err)
	os.Exit(ExitCode(err))
}
