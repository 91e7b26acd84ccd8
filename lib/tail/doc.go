// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tail follows a file that another process appends to.
//
// A [Tailer] is polled: each [Tailer.Poll] stats the file, reads the
// bytes appended since the previous poll, and hands the newly completed
// lines to a [LineBatchHandler]. Partial trailing lines are carried to
// the next poll, so every line is delivered exactly once, in file
// order, however the writer chunks its output.
//
// A [Notifier] optionally shortens the latency between a write and the
// next poll using filesystem notifications. Polling stays the source of
// truth.
package tail
