// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dstatcsv

import (
	"encoding/json"
	"reflect"
	"slices"
	"testing"
)

// sampleRun is the head of a real dstat -fcdnm --output file, cut down
// to two CPU columns, one disk and one memory group.
var sampleRun = []string{
	`"Dstat 0.7.4 CSV output"`,
	`"Author:","Dag Wieers <dag@wieers.com>",,,,"URL:","http://dag.wieers.com/home-made/dstat/"`,
	`"total cpu usage",,"dsk/total",,"memory usage"`,
	`"usr","sys","read","writ","used"`,
	`1.2,0.8,0.0,4096.0,812331008.0`,
	`1.5,0.6,0.0,0.0,812335104.0`,
}

func TestParseCategoryHeader(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "forward fill and underscores",
			line: `"total cpu usage",,,"memory usage",`,
			want: []string{"total_cpu_usage", "total_cpu_usage", "total_cpu_usage", "memory_usage", "memory_usage"},
		},
		{
			name: "leading empty stays empty",
			line: `"",total cpu usage,"",memory usage`,
			want: []string{"", "total_cpu_usage", "total_cpu_usage", "memory_usage"},
		},
		{
			name: "every whitespace character replaced",
			line: "net/eth0\tin,a  b",
			want: []string{"net/eth0_in", "a__b"},
		},
		{
			name: "single field",
			line: `"load avg"`,
			want: []string{"load_avg"},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := ParseCategoryHeader(test.line); !slices.Equal(got, test.want) {
				t.Errorf("ParseCategoryHeader(%q) = %q, want %q", test.line, got, test.want)
			}
		})
	}
}

func TestParseMetricHeader(t *testing.T) {
	got := ParseMetricHeader(`"usr","sys","idl",`)
	if want := []string{"usr", "sys", "idl"}; !slices.Equal(got, want) {
		t.Errorf("ParseMetricHeader = %q, want %q", got, want)
	}
}

func TestNewKeyTableAligns(t *testing.T) {
	short := NewKeyTable([]string{"cpu", "cpu", "mem"}, []string{"usr", "sys"})
	if want := []string{"usr", "sys", ""}; !slices.Equal(short.Metrics, want) {
		t.Errorf("padded metrics = %q, want %q", short.Metrics, want)
	}
	long := NewKeyTable([]string{"cpu"}, []string{"usr", "sys"})
	if want := []string{"usr"}; !slices.Equal(long.Metrics, want) {
		t.Errorf("truncated metrics = %q, want %q", long.Metrics, want)
	}
	if short.Len() != 3 || long.Len() != 1 {
		t.Errorf("Len = %d, %d, want 3, 1", short.Len(), long.Len())
	}
}

func TestKeyTableDecode(t *testing.T) {
	keys := NewKeyTable([]string{"cpu", "cpu"}, []string{"usr", "sys"})

	data := keys.Decode("1.2,3.4")
	want := map[string]map[string]string{"cpu": {"usr": "1.2", "sys": "3.4"}}
	if got := data.Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("Decode = %v, want %v", got, want)
	}

	// Extra values beyond the key table are dropped.
	if got := keys.Decode("1,2,3,4").Map(); !reflect.DeepEqual(got, map[string]map[string]string{"cpu": {"usr": "1", "sys": "2"}}) {
		t.Errorf("Decode with extra values = %v", got)
	}
	// Missing values leave keys unset.
	if got := keys.Decode("9").Map(); !reflect.DeepEqual(got, map[string]map[string]string{"cpu": {"usr": "9"}}) {
		t.Errorf("Decode with short row = %v", got)
	}
}

func TestKeyTableDecodeEmptyTable(t *testing.T) {
	if got := (KeyTable{}).Decode("1,2,3"); got.Len() != 0 {
		t.Errorf("Decode against empty table has %d categories, want 0", got.Len())
	}
}

func TestDecoderWalksRun(t *testing.T) {
	var decoder Decoder
	wantKinds := []Kind{KindBanner, KindBanner, KindCategoryHeader, KindMetricHeader, KindData, KindData}

	var lines []Line
	for i, raw := range sampleRun {
		line, ok := decoder.Decode(raw)
		if !ok {
			t.Fatalf("line %d not decoded", i)
		}
		if line.Index != i {
			t.Errorf("line %d Index = %d", i, line.Index)
		}
		if line.Kind != wantKinds[i] {
			t.Errorf("line %d Kind = %v, want %v", i, line.Kind, wantKinds[i])
		}
		lines = append(lines, line)
	}

	if got := decoder.Counter(); got != len(sampleRun) {
		t.Errorf("Counter = %d, want %d", got, len(sampleRun))
	}
	keys := decoder.Keys()
	if want := []string{"total_cpu_usage", "total_cpu_usage", "dsk/total", "dsk/total", "memory_usage"}; !slices.Equal(keys.Categories, want) {
		t.Errorf("Categories = %q, want %q", keys.Categories, want)
	}

	first := lines[4].Data
	if got, _ := first.Category("dsk/total").Get("writ"); got != "4096.0" {
		t.Errorf("dsk/total writ = %q, want %q", got, "4096.0")
	}
	if got, _ := first.Category("memory_usage").Get("used"); got != "812331008.0" {
		t.Errorf("memory_usage used = %q", got)
	}
	for _, line := range lines[:4] {
		if line.Data != nil {
			t.Errorf("line %d (%v) carries data", line.Index, line.Kind)
		}
	}
}

func TestDecoderSkipsEmptyLines(t *testing.T) {
	var decoder Decoder
	if _, ok := decoder.Decode(""); ok {
		t.Fatal("empty line decoded")
	}
	if decoder.Counter() != 0 {
		t.Fatalf("Counter = %d after empty line, want 0", decoder.Counter())
	}
	line, ok := decoder.Decode("banner")
	if !ok || line.Index != 0 || line.Kind != KindBanner {
		t.Fatalf("Decode(banner) = %+v, %v", line, ok)
	}
}

func TestDecoderResetKeepsKeys(t *testing.T) {
	var decoder Decoder
	for _, raw := range sampleRun {
		decoder.Decode(raw)
	}
	before := decoder.Keys()

	decoder.Reset()
	if decoder.Counter() != 0 {
		t.Fatalf("Counter after Reset = %d", decoder.Counter())
	}
	if !reflect.DeepEqual(decoder.Keys(), before) {
		t.Errorf("Reset changed the key table")
	}

	line, _ := decoder.Decode(sampleRun[0])
	if line.Kind != KindBanner {
		t.Errorf("first line after Reset is %v, want banner", line.Kind)
	}
}

func TestDecoderNewRunReplacesKeys(t *testing.T) {
	var decoder Decoder
	for _, raw := range sampleRun {
		decoder.Decode(raw)
	}
	decoder.Reset()
	for _, raw := range []string{"banner", "banner", `"load avg",,`, `"1m","5m","15m"`} {
		decoder.Decode(raw)
	}
	line, _ := decoder.Decode("0.5,0.4,0.3")
	want := map[string]map[string]string{"load_avg": {"1m": "0.5", "5m": "0.4", "15m": "0.3"}}
	if got := line.Data.Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("decoded = %v, want %v", got, want)
	}
}

func TestRecordJSONKeepsColumnOrder(t *testing.T) {
	data := &Data{}
	data.Category("total_cpu_usage").Set("usr", "1.2")
	data.Category("total_cpu_usage").Set("sys", "0.8")
	data.Category("dsk/total").Set("read", "0.0")

	encoded, err := json.Marshal(Record{Hostname: "web-1", Dstat: data})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"hostname":"web-1","dstat":{"total_cpu_usage":{"usr":"1.2","sys":"0.8"},"dsk/total":{"read":"0.0"}}}`
	if string(encoded) != want {
		t.Errorf("JSON = %s\nwant   %s", encoded, want)
	}
}

func TestRecordJSONWithoutData(t *testing.T) {
	encoded, err := json.Marshal(Record{Hostname: "h"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if want := `{"hostname":"h","dstat":{}}`; string(encoded) != want {
		t.Errorf("JSON = %s, want %s", encoded, want)
	}
}

func TestMetricsSetRepeatedKeepsPosition(t *testing.T) {
	data := &Data{}
	metrics := data.Category("cpu")
	metrics.Set("usr", "1")
	metrics.Set("sys", "2")
	metrics.Set("usr", "3")

	if got, want := metrics.Names(), []string{"usr", "sys"}; !slices.Equal(got, want) {
		t.Errorf("Names = %q, want %q", got, want)
	}
	if got, _ := metrics.Get("usr"); got != "3" {
		t.Errorf("usr = %q, want 3", got)
	}

	var visited []string
	data.Each(func(category, metric, value string) {
		visited = append(visited, category+"/"+metric+"="+value)
	})
	if want := []string{"cpu/usr=3", "cpu/sys=2"}; !slices.Equal(visited, want) {
		t.Errorf("Each visited %q, want %q", visited, want)
	}
	if _, ok := data.Lookup("mem"); ok {
		t.Error("Lookup created a category")
	}
}
