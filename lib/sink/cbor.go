// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/bureau-foundation/bureau-dstat/lib/codec"
)

// CBOR writes events as a codec record stream. Each event is a map with
// "tag", "time" and "record" keys.
type CBOR struct {
	mu     sync.Mutex
	stream *codec.StreamWriter
}

// NewCBOR writes to w through the selected compression. When w is an
// io.Closer, Close closes it after finishing the compressed stream.
func NewCBOR(w io.Writer, compression codec.Compression) (*CBOR, error) {
	stream, err := codec.NewStreamWriter(w, compression)
	if err != nil {
		return nil, err
	}
	return &CBOR{stream: stream}, nil
}

// Emit encodes one event. Compressed output is flushed per event so a
// crash loses at most the event being written.
func (s *CBOR) Emit(event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.stream.Write(event.fields()); err != nil {
		return fmt.Errorf("writing cbor event: %w", err)
	}
	return nil
}

// Close finishes the stream and closes the output.
func (s *CBOR) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stream.Close()
}
