// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tail

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// DefaultInterval is the poll interval used by the collector.
const DefaultInterval = 500 * time.Millisecond

// LineBatchHandler receives the complete lines read by one poll, in
// file order, without their terminators.
type LineBatchHandler interface {
	HandleLines(lines []string)
}

// Tailer reads the bytes appended to a file since its previous poll
// and splits them into newline-terminated lines. Bytes after the last
// newline are held back until a later poll completes the line.
//
// A Tailer never rewinds. When the file is shorter than the read
// offset (it was truncated), polls are skipped until it grows past the
// offset again; callers that truncate on purpose replace the Tailer at
// the same time.
//
// Not safe for concurrent use; the collector drives it from its
// reactor goroutine.
type Tailer struct {
	path    string
	file    *os.File
	offset  int64
	pending []byte
	handler LineBatchHandler
}

// Open opens path for tailing from offset zero.
func Open(path string, handler LineBatchHandler) (*Tailer, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s for tailing: %w", path, err)
	}
	return &Tailer{path: path, file: file, handler: handler}, nil
}

// Path returns the tailed file path.
func (t *Tailer) Path() string { return t.path }

// Offset returns the number of bytes consumed so far.
func (t *Tailer) Offset() int64 { return t.offset }

// Pending returns the length of the unterminated fragment carried to
// the next poll.
func (t *Tailer) Pending() int { return len(t.pending) }

// Tick implements reactor.Task.
func (t *Tailer) Tick(time.Time) error { return t.Poll() }

// Poll reads any growth since the last poll and hands the completed
// lines to the handler. The handler is not called when no line was
// completed. Poll does not touch the file after the handler returns,
// so the handler may Close this Tailer.
func (t *Tailer) Poll() error {
	info, err := os.Stat(t.path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", t.path, err)
	}
	size := info.Size()
	if size <= t.offset {
		return nil
	}

	buffer := make([]byte, size-t.offset)
	count, err := t.file.ReadAt(buffer, t.offset)
	// A short read means the file shrank between Stat and ReadAt; use
	// what arrived.
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("reading %s at offset %d: %w", t.path, t.offset, err)
	}
	t.offset += int64(count)

	lines := t.split(buffer[:count])
	if len(lines) > 0 {
		t.handler.HandleLines(lines)
	}
	return nil
}

// split appends chunk to the pending fragment and returns every line
// it completes.
func (t *Tailer) split(chunk []byte) []string {
	data := chunk
	if len(t.pending) > 0 {
		data = append(t.pending, chunk...)
	}

	var lines []string
	for {
		index := bytes.IndexByte(data, '\n')
		if index < 0 {
			break
		}
		line := data[:index]
		line = bytes.TrimSuffix(line, []byte{'\r'})
		lines = append(lines, string(line))
		data = data[index+1:]
	}

	// Copy so the fragment does not pin the whole read buffer.
	t.pending = append([]byte(nil), data...)
	return lines
}

// Close releases the file descriptor. Safe to call more than once.
func (t *Tailer) Close() error {
	if t.file == nil {
		return nil
	}
	err := t.file.Close()
	t.file = nil
	return err
}
