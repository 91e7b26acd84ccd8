// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

type sample struct {
	Tag    string            `json:"tag"`
	Values map[string]string `json:"values"`
}

var samples = []sample{
	{Tag: "dstat", Values: map[string]string{"usr": "1.2"}},
	{Tag: "dstat", Values: map[string]string{"sys": "0.4", "idl": "98.0"}},
	{Tag: "dstat"},
}

func readAll(t *testing.T, r io.Reader, compression Compression) []sample {
	t.Helper()
	stream, err := NewStreamReader(r, compression)
	if err != nil {
		t.Fatalf("NewStreamReader: %v", err)
	}
	defer stream.Close()
	var got []sample
	for {
		var item sample
		err := stream.Next(&item)
		if errors.Is(err, io.EOF) {
			return got
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		got = append(got, item)
	}
}

func TestStreamRoundTrip(t *testing.T) {
	for _, compression := range []Compression{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(string(compression), func(t *testing.T) {
			var buffer bytes.Buffer
			stream, err := NewStreamWriter(&buffer, compression)
			if err != nil {
				t.Fatalf("NewStreamWriter: %v", err)
			}
			for _, item := range samples {
				if err := stream.Write(item); err != nil {
					t.Fatalf("Write: %v", err)
				}
			}
			if err := stream.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			if got := readAll(t, &buffer, compression); !reflect.DeepEqual(got, samples) {
				t.Errorf("decoded %+v, want %+v", got, samples)
			}
		})
	}
}

func TestStreamWriterClosesOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.cbor")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	stream, err := NewStreamWriter(file, CompressionNone)
	if err != nil {
		t.Fatalf("NewStreamWriter: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := file.Write([]byte{0}); err == nil {
		t.Error("output still writable after Close")
	}
}

func TestParseCompression(t *testing.T) {
	tests := map[string]Compression{
		"":     CompressionNone,
		"none": CompressionNone,
		"zstd": CompressionZstd,
		"lz4":  CompressionLZ4,
	}
	for value, want := range tests {
		got, err := ParseCompression(value)
		if err != nil || got != want {
			t.Errorf("ParseCompression(%q) = %q, %v; want %q", value, got, err, want)
		}
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Error("ParseCompression(gzip) = nil error")
	}
}
