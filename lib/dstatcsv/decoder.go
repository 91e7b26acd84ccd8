// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dstatcsv

// Kind classifies a line by its position within a dstat run.
type Kind int

const (
	// KindBanner is one of the two free-text lines dstat writes first.
	KindBanner Kind = iota
	// KindCategoryHeader is the third line: the category names.
	KindCategoryHeader
	// KindMetricHeader is the fourth line: the metric names.
	KindMetricHeader
	// KindData is every later line: one sample.
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindBanner:
		return "banner"
	case KindCategoryHeader:
		return "category_header"
	case KindMetricHeader:
		return "metric_header"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

// Position line numbers within a run.
const (
	categoryHeaderLine = 2
	metricHeaderLine   = 3
)

// Line is the result of decoding one line.
type Line struct {
	// Index is the line counter value before this line was counted.
	Index int
	Kind  Kind
	// Data is set for KindData lines.
	Data *Data
}

// Decoder is the per-run parsing state: the line counter and the key
// table built from the header rows. Not safe for concurrent use.
type Decoder struct {
	keys    KeyTable
	pending []string
	counter int
}

// Decode classifies line by the current counter, updates the key table
// on header lines, decodes data lines, and advances the counter. Empty
// lines are ignored and not counted; ok is false for them.
func (d *Decoder) Decode(line string) (result Line, ok bool) {
	if line == "" {
		return Line{}, false
	}
	result.Index = d.counter
	d.counter++

	switch {
	case result.Index < categoryHeaderLine:
		result.Kind = KindBanner
	case result.Index == categoryHeaderLine:
		result.Kind = KindCategoryHeader
		d.pending = ParseCategoryHeader(line)
	case result.Index == metricHeaderLine:
		result.Kind = KindMetricHeader
		d.keys = NewKeyTable(d.pending, ParseMetricHeader(line))
	default:
		result.Kind = KindData
		result.Data = d.keys.Decode(line)
	}
	return result, true
}

// Reset sets the counter back to zero so the next line is treated as
// the first banner line of a new run. The key table is kept until the
// new run's headers replace it.
func (d *Decoder) Reset() { d.counter = 0 }

// Counter returns the number of lines counted since the last Reset.
func (d *Decoder) Counter() int { return d.counter }

// Keys returns the current key table.
func (d *Decoder) Keys() KeyTable { return d.keys }

// Decode splits a data row on commas and pairs each value with its
// column key. Values past the last key and keys past the last value are
// dropped.
func (k KeyTable) Decode(line string) *Data {
	data := &Data{}
	values := splitFields(line)
	for i := range min(len(values), k.Len()) {
		data.Category(k.Categories[i]).Set(k.Metrics[i], values[i])
	}
	return data
}
