// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/bureau-dstat/lib/codec"
)

// Output types accepted by Spec.Type.
const (
	TypeStdout     = "stdout"
	TypeJSONFile   = "jsonl"
	TypeCBORFile   = "cbor"
	TypePrometheus = "prometheus"
)

// Spec configures one output.
type Spec struct {
	// Type is stdout, jsonl, cbor, or prometheus.
	Type string `yaml:"type" json:"type"`

	// Path is the file written by jsonl and cbor outputs. Files are
	// appended to.
	Path string `yaml:"path" json:"path"`

	// Compression applies to cbor outputs: none, zstd, or lz4.
	Compression string `yaml:"compression" json:"compression"`
}

// Validate reports every problem with the spec.
func (s Spec) Validate() error {
	var errs []error
	switch s.Type {
	case TypeStdout, TypePrometheus:
	case TypeJSONFile, TypeCBORFile:
		if s.Path == "" {
			errs = append(errs, fmt.Errorf("%s output requires a path", s.Type))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown output type %q", s.Type))
	}
	if _, err := codec.ParseCompression(s.Compression); err != nil {
		errs = append(errs, err)
	}
	if s.Compression != "" && s.Compression != "none" && s.Type != TypeCBORFile {
		errs = append(errs, errors.New("compression is only supported by cbor outputs"))
	}
	return errors.Join(errs...)
}

// Open builds the sinks described by specs, wrapped in inject. stdout
// receives stdout outputs; registerer receives the collector of a
// prometheus output. On error every sink opened so far is closed.
func Open(specs []Spec, inject Inject, stdout io.Writer, registerer prometheus.Registerer) (Sink, error) {
	var opened Multi
	fail := func(err error) (Sink, error) {
		opened.Close()
		return nil, err
	}

	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			return fail(err)
		}
		switch spec.Type {
		case TypeStdout:
			opened = append(opened, NewJSONLines(nopCloser{stdout}))
		case TypeJSONFile:
			file, err := openAppend(spec.Path)
			if err != nil {
				return fail(err)
			}
			opened = append(opened, NewJSONLines(file))
		case TypeCBORFile:
			compression, _ := codec.ParseCompression(spec.Compression)
			file, err := openAppend(spec.Path)
			if err != nil {
				return fail(err)
			}
			cborSink, err := NewCBOR(file, compression)
			if err != nil {
				file.Close()
				return fail(err)
			}
			opened = append(opened, cborSink)
		case TypePrometheus:
			promSink := NewPrometheus()
			if registerer != nil {
				if err := registerer.Register(promSink); err != nil {
					return fail(fmt.Errorf("registering prometheus output: %w", err))
				}
			}
			opened = append(opened, promSink)
		}
	}

	var result Sink = opened
	if len(opened) == 1 {
		result = opened[0]
	}
	if inject.Enabled() {
		result = Injector{Inject: inject, Next: result}
	}
	return result, nil
}

func openAppend(path string) (*os.File, error) {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening output %s: %w", path, err)
	}
	return file, nil
}

// nopCloser keeps Close from closing the process's stdout.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }
