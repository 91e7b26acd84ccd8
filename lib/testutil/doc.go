// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with a time.After fallback) so individual tests
// do not call time.After themselves. A hung channel then fails the test
// with a message naming what was awaited instead of stalling the whole
// package until the go test deadline.
//
// [Eventually] polls a condition every 10ms until it holds or a timeout
// expires. It exists for resources that cannot run on a fake clock:
// real child processes, fsnotify events, HTTP servers. Code driven by a
// fake clock should advance the clock and use a reactor barrier
// instead; polling would only hide ordering bugs there.
//
// These helpers are the only place in the test suite where real
// wall-clock timeouts are used. Each call site carries a
// //nolint:realclock comment stating what the timeout guards.
//
// [AppendFile] and [FileSize] let tailing tests play the role of the
// sampler: they append bytes to the watched output file the way an
// O_APPEND writer would, and report its size after rotation or restart.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no bureau-dstat dependencies.
package testutil
