// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// JSONLines writes each event as one line of JSON.
type JSONLines struct {
	mu     sync.Mutex
	writer *bufio.Writer
	closer io.Closer
}

// NewJSONLines writes to w. When w is also an io.Closer, Close closes
// it.
func NewJSONLines(w io.Writer) *JSONLines {
	sink := &JSONLines{writer: bufio.NewWriter(w)}
	if closer, ok := w.(io.Closer); ok {
		sink.closer = closer
	}
	return sink
}

// Emit writes and flushes one line, so a reader following the output
// sees each record as soon as it is decoded.
func (s *JSONLines) Emit(event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.writer.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing event: %w", err)
	}
	if err := s.writer.Flush(); err != nil {
		return fmt.Errorf("flushing event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (s *JSONLines) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writer.Flush(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
