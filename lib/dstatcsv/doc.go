// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dstatcsv decodes the CSV that dstat writes with --output.
//
// A dstat run writes two banner lines, a category header, a metric
// header, and then one data row per sample:
//
//	"Dstat 0.7.4 CSV output"
//	"Author:","Dag Wieers <dag@wieers.com>",,,,"URL:","http://dag.wieers.com/home-made/dstat/"
//	"total cpu usage",,,,,,"dsk/total",
//	"usr","sys","idl","wai","hiq","siq","read","writ"
//	1.2,0.8,97.5,0.4,0.0,0.1,12288.0,40960.0
//
// The category header names each group once and leaves the following
// columns empty; [ParseCategoryHeader] forward-fills them. Zipping the
// two headers gives one (category, metric) pair per column, held in a
// [KeyTable]. [Decoder] tracks the line position within a run and turns
// data rows into [Data], a two-level map that keeps column order.
//
// Values are never interpreted; every sample stays the exact text dstat
// wrote.
package dstatcsv
