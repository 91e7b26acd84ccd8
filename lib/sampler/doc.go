// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package sampler runs the dstat sampling process.
//
// A [Command] describes one dstat invocation. It always becomes the
// argument vector
//
//	<path> <options...> --output <file> <delay>
//
// and is executed directly, never through a shell. [ExecSpawner] starts
// it and returns a [Handle]. Each handle reaps its own process from a
// background goroutine started at spawn time, so a terminated or
// crashed sampler never lingers as a zombie and callers never block
// waiting for it.
//
// dstat's standard output is discarded: the samples of interest go to
// the --output file, which the collector tails. Standard error is
// forwarded to the structured logger one line at a time.
package sampler
