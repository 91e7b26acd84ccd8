// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"bytes"
	"encoding/json"
	"errors"
	"slices"
	"time"

	"github.com/bureau-foundation/bureau-dstat/lib/dstatcsv"
)

// Event is one record with its routing metadata.
type Event struct {
	Tag    string
	Time   time.Time
	Record dstatcsv.Record

	// Extra holds fields added to the record body by an Injector.
	Extra map[string]any
}

// Sink receives events.
type Sink interface {
	Emit(event Event) error
	Close() error
}

// MarshalJSON encodes {"tag", "time", "record"}.
func (e Event) MarshalJSON() ([]byte, error) {
	body, err := e.recordJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		Tag    string          `json:"tag"`
		Time   time.Time       `json:"time"`
		Record json.RawMessage `json:"record"`
	}{e.Tag, e.Time, body})
}

// recordJSON encodes the record with Extra fields appended in key
// order.
func (e Event) recordJSON() ([]byte, error) {
	base, err := json.Marshal(e.Record)
	if err != nil {
		return nil, err
	}
	if len(e.Extra) == 0 {
		return base, nil
	}

	var buffer bytes.Buffer
	buffer.Write(base[:len(base)-1])
	keys := make([]string, 0, len(e.Extra))
	for key := range e.Extra {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		name, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(e.Extra[key])
		if err != nil {
			return nil, err
		}
		buffer.WriteByte(',')
		buffer.Write(name)
		buffer.WriteByte(':')
		buffer.Write(value)
	}
	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}

// fields returns the event as generic maps, for CBOR.
func (e Event) fields() map[string]any {
	record := e.Record.Fields()
	for key, value := range e.Extra {
		record[key] = value
	}
	return map[string]any{
		"tag":    e.Tag,
		"time":   e.Time,
		"record": record,
	}
}

// Multi emits every event to each sink in order. Every sink sees every
// event even when an earlier one fails; the failures are joined.
type Multi []Sink

// Emit implements Sink.
func (m Multi) Emit(event Event) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Emit(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (m Multi) Close() error {
	var errs []error
	for _, sink := range m {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
