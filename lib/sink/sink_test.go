// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bureau-foundation/bureau-dstat/lib/codec"
	"github.com/bureau-foundation/bureau-dstat/lib/dstatcsv"
)

var emitTime = time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

func sampleEvent() Event {
	data := &dstatcsv.Data{}
	data.Category("total_cpu_usage").Set("usr", "1.5")
	data.Category("total_cpu_usage").Set("sys", "0.5")
	data.Category("memory_usage").Set("used", "812331008.0")
	data.Category("memory_usage").Set("note", "n/a")
	return Event{
		Tag:    "dstat.web",
		Time:   emitTime,
		Record: dstatcsv.Record{Hostname: "web-1", Dstat: data},
	}
}

// recordingSink collects events and can be told to fail.
type recordingSink struct {
	events []Event
	err    error
	closed bool
}

func (r *recordingSink) Emit(event Event) error {
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingSink) Close() error {
	r.closed = true
	return r.err
}

func TestEventJSON(t *testing.T) {
	encoded, err := json.Marshal(sampleEvent())
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"tag":"dstat.web","time":"2026-02-03T04:05:06Z","record":{"hostname":"web-1","dstat":` +
		`{"total_cpu_usage":{"usr":"1.5","sys":"0.5"},"memory_usage":{"used":"812331008.0","note":"n/a"}}}}`
	if string(encoded) != want {
		t.Errorf("JSON =\n%s\nwant\n%s", encoded, want)
	}
}

func TestInjectAddsTagAndTime(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"", `"2026-02-03T04:05:06Z"`},
		{TimeFormatRFC3339, `"2026-02-03T04:05:06Z"`},
		{TimeFormatUnix, `1770091506`},
		{TimeFormatUnixMs, `1770091506000`},
		{"2006-01-02 15:04", `"2026-02-03 04:05"`},
	}
	for _, test := range tests {
		t.Run(test.format, func(t *testing.T) {
			next := &recordingSink{}
			injector := Injector{Inject: Inject{TagKey: "tag", TimeKey: "at", TimeFormat: test.format}, Next: next}
			if err := injector.Emit(sampleEvent()); err != nil {
				t.Fatalf("Emit: %v", err)
			}
			body, err := next.events[0].recordJSON()
			if err != nil {
				t.Fatalf("recordJSON: %v", err)
			}
			if !strings.HasSuffix(string(body), `,"at":`+test.want+`,"tag":"dstat.web"}`) {
				t.Errorf("record body = %s", body)
			}
		})
	}
}

func TestInjectDisabledPassesThrough(t *testing.T) {
	next := &recordingSink{}
	if err := (Injector{Next: next}).Emit(sampleEvent()); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if next.events[0].Extra != nil {
		t.Errorf("Extra = %v, want nil", next.events[0].Extra)
	}
}

func TestInjectValidate(t *testing.T) {
	if err := (Inject{TagKey: "tag", TimeKey: "time"}).Validate(); err != nil {
		t.Errorf("Validate(valid) = %v", err)
	}
	for _, inject := range []Inject{
		{TagKey: "hostname"},
		{TimeKey: "dstat"},
		{TagKey: "k", TimeKey: "k"},
	} {
		if err := inject.Validate(); err == nil {
			t.Errorf("Validate(%+v) = nil, want error", inject)
		}
	}
}

func TestJSONLines(t *testing.T) {
	var buffer bytes.Buffer
	sink := NewJSONLines(&buffer)
	for range 2 {
		if err := sink.Emit(sampleEvent()); err != nil {
			t.Fatalf("Emit: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	lines := strings.Split(strings.TrimSuffix(buffer.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), buffer.String())
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("line is not JSON: %v", err)
	}
	if decoded["tag"] != "dstat.web" {
		t.Errorf("tag = %v", decoded["tag"])
	}
}

func decodeCBOR(t *testing.T, r io.Reader, compression codec.Compression) []map[string]any {
	t.Helper()
	stream, err := codec.NewStreamReader(r, compression)
	if err != nil {
		t.Fatalf("NewStreamReader: %v", err)
	}
	defer stream.Close()
	var events []map[string]any
	for {
		var event map[string]any
		err := stream.Next(&event)
		if errors.Is(err, io.EOF) {
			return events
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		events = append(events, event)
	}
}

func TestCBORCompressions(t *testing.T) {
	for _, compression := range []codec.Compression{codec.CompressionNone, codec.CompressionZstd, codec.CompressionLZ4} {
		t.Run(string(compression), func(t *testing.T) {
			var buffer bytes.Buffer
			sink, err := NewCBOR(&buffer, compression)
			if err != nil {
				t.Fatalf("NewCBOR: %v", err)
			}
			inject := Injector{Inject: Inject{TagKey: "tag"}, Next: sink}
			for range 3 {
				if err := inject.Emit(sampleEvent()); err != nil {
					t.Fatalf("Emit: %v", err)
				}
			}
			if err := sink.Close(); err != nil {
				t.Fatalf("Close: %v", err)
			}

			events := decodeCBOR(t, &buffer, compression)
			if len(events) != 3 {
				t.Fatalf("decoded %d events, want 3", len(events))
			}
			record := events[0]["record"].(map[string]any)
			if record["hostname"] != "web-1" || record["tag"] != "dstat.web" {
				t.Errorf("record = %v", record)
			}
			dstat := record["dstat"].(map[string]any)
			cpu := dstat["total_cpu_usage"].(map[string]any)
			if cpu["usr"] != "1.5" {
				t.Errorf("usr = %v, want 1.5", cpu["usr"])
			}
		})
	}
}

func TestPrometheusSkipsNonNumericValues(t *testing.T) {
	sink := NewPrometheus()
	if err := sink.Emit(sampleEvent()); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if count := testutil.CollectAndCount(sink); count != 3 {
		t.Errorf("series = %d, want 3 (n/a skipped)", count)
	}

	expected := `
# HELP dstat_value Latest value sampled by dstat, per category and metric.
# TYPE dstat_value gauge
dstat_value{category="memory_usage",hostname="web-1",metric="used",tag="dstat.web"} 8.12331008e+08
dstat_value{category="total_cpu_usage",hostname="web-1",metric="sys",tag="dstat.web"} 0.5
dstat_value{category="total_cpu_usage",hostname="web-1",metric="usr",tag="dstat.web"} 1.5
`
	if err := testutil.CollectAndCompare(sink, strings.NewReader(expected)); err != nil {
		t.Error(err)
	}
}

func TestPrometheusKeepsLatestValue(t *testing.T) {
	sink := NewPrometheus()
	sink.Emit(sampleEvent())
	later := sampleEvent()
	later.Record.Dstat.Category("total_cpu_usage").Set("usr", "9")
	sink.Emit(later)

	registry := prometheus.NewRegistry()
	registry.MustRegister(sink)
	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "metric" && label.GetValue() == "usr" {
					if got := metric.GetGauge().GetValue(); got != 9 {
						t.Errorf("usr = %v, want 9", got)
					}
					return
				}
			}
		}
	}
	t.Fatal("usr series not found")
}

func TestMultiEmitsToEverySink(t *testing.T) {
	failing := &recordingSink{err: errors.New("disk full")}
	healthy := &recordingSink{}
	multi := Multi{failing, healthy}

	err := multi.Emit(sampleEvent())
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("Emit = %v, want the failing sink's error", err)
	}
	if len(healthy.events) != 1 {
		t.Errorf("healthy sink got %d events, want 1", len(healthy.events))
	}
	multi.Close()
	if !failing.closed || !healthy.closed {
		t.Error("Close did not reach every sink")
	}
}

func TestOpenBuildsOutputs(t *testing.T) {
	directory := t.TempDir()
	jsonPath := filepath.Join(directory, "out.jsonl")
	cborPath := filepath.Join(directory, "out.cbor.zst")
	var stdout bytes.Buffer
	registry := prometheus.NewRegistry()

	sink, err := Open([]Spec{
		{Type: TypeStdout},
		{Type: TypeJSONFile, Path: jsonPath},
		{Type: TypeCBORFile, Path: cborPath, Compression: "zstd"},
		{Type: TypePrometheus},
	}, Inject{TagKey: "tag"}, &stdout, registry)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := sink.Emit(sampleEvent()); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if !strings.Contains(stdout.String(), `"tag":"dstat.web"}}`) {
		t.Errorf("stdout = %s", stdout.String())
	}
	fileData, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("reading %s: %v", jsonPath, err)
	}
	if !bytes.Equal(fileData, stdout.Bytes()) {
		t.Errorf("jsonl file differs from stdout:\n%s\n%s", fileData, stdout.Bytes())
	}
	if info, err := os.Stat(cborPath); err != nil || info.Size() == 0 {
		t.Errorf("cbor output missing or empty: %v", err)
	}
	if count, err := testutil.GatherAndCount(registry, "dstat_value"); err != nil || count != 3 {
		t.Errorf("dstat_value series = %d, %v; want 3", count, err)
	}
}

func TestOpenRejectsInvalidSpecs(t *testing.T) {
	for _, spec := range []Spec{
		{Type: "kafka"},
		{Type: TypeJSONFile},
		{Type: TypeStdout, Compression: "zstd"},
		{Type: TypeCBORFile, Path: "x", Compression: "brotli"},
	} {
		if _, err := Open([]Spec{spec}, Inject{}, io.Discard, nil); err == nil {
			t.Errorf("Open(%+v) succeeded", spec)
		}
	}
}
