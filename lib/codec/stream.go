// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression is the framing around a record stream.
type Compression string

const (
	CompressionNone Compression = ""
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

// ParseCompression accepts "", "none", "zstd" and "lz4".
func ParseCompression(value string) (Compression, error) {
	switch value {
	case "", "none":
		return CompressionNone, nil
	case string(CompressionZstd):
		return CompressionZstd, nil
	case string(CompressionLZ4):
		return CompressionLZ4, nil
	default:
		return "", fmt.Errorf("unknown compression %q (want none, zstd, or lz4)", value)
	}
}

// StreamWriter appends items to a CBOR sequence (RFC 8742), optionally
// compressed. Not safe for concurrent use.
type StreamWriter struct {
	encoder    *cbor.Encoder
	compressor io.WriteCloser
	output     io.Writer
}

// NewStreamWriter writes to w. When w is an io.Closer, Close closes it
// after finishing the compressed frame.
func NewStreamWriter(w io.Writer, compression Compression) (*StreamWriter, error) {
	stream := &StreamWriter{output: w}
	target := w
	switch compression {
	case CompressionNone:
	case CompressionZstd:
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return nil, fmt.Errorf("creating zstd writer: %w", err)
		}
		stream.compressor = encoder
		target = encoder
	case CompressionLZ4:
		writer := lz4.NewWriter(w)
		stream.compressor = writer
		target = writer
	default:
		return nil, fmt.Errorf("unknown compression %q", compression)
	}
	stream.encoder = encMode.NewEncoder(target)
	return stream, nil
}

// Write encodes item and flushes the compressor, so a reader of a
// live file sees every complete item.
func (s *StreamWriter) Write(item any) error {
	if err := s.encoder.Encode(item); err != nil {
		return fmt.Errorf("encoding item: %w", err)
	}
	if flusher, ok := s.compressor.(interface{ Flush() error }); ok {
		if err := flusher.Flush(); err != nil {
			return fmt.Errorf("flushing compressed item: %w", err)
		}
	}
	return nil
}

// Close finishes the compressed frame and closes the output.
func (s *StreamWriter) Close() error {
	var errs []error
	if s.compressor != nil {
		if err := s.compressor.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing compressor: %w", err))
		}
	}
	if closer, ok := s.output.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StreamReader reads a sequence written by StreamWriter.
type StreamReader struct {
	decoder *cbor.Decoder
	release func()
}

// NewStreamReader reads from r with the given compression.
func NewStreamReader(r io.Reader, compression Compression) (*StreamReader, error) {
	stream := &StreamReader{release: func() {}}
	source := r
	switch compression {
	case CompressionNone:
	case CompressionZstd:
		decoder, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		stream.release = decoder.Close
		source = decoder
	case CompressionLZ4:
		source = lz4.NewReader(r)
	default:
		return nil, fmt.Errorf("unknown compression %q", compression)
	}
	stream.decoder = decMode.NewDecoder(source)
	return stream, nil
}

// Next decodes the next item into v. It returns io.EOF after the last
// complete item.
func (s *StreamReader) Next(v any) error {
	return s.decoder.Decode(v)
}

// Close releases decompressor state. It does not close the source.
func (s *StreamReader) Close() { s.release() }
