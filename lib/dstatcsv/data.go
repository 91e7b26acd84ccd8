// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dstatcsv

import (
	"bytes"
	"encoding/json"
)

// Data maps category to metric to raw value, remembering the order in
// which categories and metrics were first set. The zero value is ready
// to use.
type Data struct {
	order      []string
	categories map[string]*Metrics
}

// Metrics maps metric name to raw value within one category.
type Metrics struct {
	order  []string
	values map[string]string
}

// Category returns the metrics of name, creating an empty group on
// first use.
func (d *Data) Category(name string) *Metrics {
	if metrics, ok := d.categories[name]; ok {
		return metrics
	}
	if d.categories == nil {
		d.categories = make(map[string]*Metrics)
	}
	metrics := &Metrics{values: make(map[string]string)}
	d.categories[name] = metrics
	d.order = append(d.order, name)
	return metrics
}

// Lookup returns the metrics of name without creating them.
func (d *Data) Lookup(name string) (*Metrics, bool) {
	metrics, ok := d.categories[name]
	return metrics, ok
}

// Categories returns category names in first-seen order.
func (d *Data) Categories() []string { return append([]string(nil), d.order...) }

// Len returns the number of categories.
func (d *Data) Len() int { return len(d.order) }

// Each calls fn for every value, in column order.
func (d *Data) Each(fn func(category, metric, value string)) {
	for _, category := range d.order {
		metrics := d.categories[category]
		for _, metric := range metrics.order {
			fn(category, metric, metrics.values[metric])
		}
	}
}

// Map returns the values as plain nested maps.
func (d *Data) Map() map[string]map[string]string {
	result := make(map[string]map[string]string, len(d.order))
	for category, metrics := range d.categories {
		inner := make(map[string]string, len(metrics.values))
		for metric, value := range metrics.values {
			inner[metric] = value
		}
		result[category] = inner
	}
	return result
}

// MarshalJSON encodes an object of objects in column order.
func (d *Data) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteByte('{')
	for i, category := range d.order {
		if i > 0 {
			buffer.WriteByte(',')
		}
		if err := writeKey(&buffer, category); err != nil {
			return nil, err
		}
		inner, err := d.categories[category].MarshalJSON()
		if err != nil {
			return nil, err
		}
		buffer.Write(inner)
	}
	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}

// Set stores value under metric. A repeated metric keeps its original
// position and takes the new value.
func (m *Metrics) Set(metric, value string) {
	if _, ok := m.values[metric]; !ok {
		m.order = append(m.order, metric)
	}
	m.values[metric] = value
}

// Get returns the value of metric.
func (m *Metrics) Get(metric string) (string, bool) {
	value, ok := m.values[metric]
	return value, ok
}

// Names returns metric names in first-seen order.
func (m *Metrics) Names() []string { return append([]string(nil), m.order...) }

// MarshalJSON encodes an object in column order.
func (m *Metrics) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteByte('{')
	for i, metric := range m.order {
		if i > 0 {
			buffer.WriteByte(',')
		}
		if err := writeKey(&buffer, metric); err != nil {
			return nil, err
		}
		value, err := json.Marshal(m.values[metric])
		if err != nil {
			return nil, err
		}
		buffer.Write(value)
	}
	buffer.WriteByte('}')
	return buffer.Bytes(), nil
}

func writeKey(buffer *bytes.Buffer, key string) error {
	encoded, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buffer.Write(encoded)
	buffer.WriteByte(':')
	return nil
}

// Record is one decoded sample as handed to a sink.
type Record struct {
	Hostname string
	Dstat    *Data
}

// MarshalJSON encodes {"hostname": ..., "dstat": {...}}.
func (r Record) MarshalJSON() ([]byte, error) {
	dstat := r.Dstat
	if dstat == nil {
		dstat = &Data{}
	}
	return json.Marshal(struct {
		Hostname string `json:"hostname"`
		Dstat    *Data  `json:"dstat"`
	}{r.Hostname, dstat})
}

// Fields returns the record as a generic map, for encoders that do not
// honour json.Marshaler.
func (r Record) Fields() map[string]any {
	dstat := r.Dstat
	if dstat == nil {
		dstat = &Data{}
	}
	return map[string]any{
		"hostname": r.Hostname,
		"dstat":    dstat.Map(),
	}
}
