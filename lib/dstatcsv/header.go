// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dstatcsv

import (
	"strings"
	"unicode"
)

// KeyTable holds the column keys of a dstat run. Categories[i] and
// Metrics[i] name column i; both slices always have the same length.
type KeyTable struct {
	Categories []string
	Metrics    []string
}

// Len returns the number of columns.
func (k KeyTable) Len() int { return len(k.Categories) }

// ParseCategoryHeader parses the first header row. Quote characters are
// removed, every whitespace character becomes an underscore, and empty
// fields take the value of the nearest preceding non-empty field.
// Leading empty fields, which have no predecessor, stay empty.
func ParseCategoryHeader(line string) []string {
	fields := strings.Split(strings.ReplaceAll(line, `"`, ""), ",")
	previous := ""
	for i, field := range fields {
		if field == "" {
			fields[i] = previous
		} else {
			fields[i] = underscoreSpaces(field)
		}
		previous = fields[i]
	}
	return fields
}

// ParseMetricHeader parses the second header row. Quote characters are
// removed; names are kept as written.
func ParseMetricHeader(line string) []string {
	return splitFields(strings.ReplaceAll(line, `"`, ""))
}

// NewKeyTable zips the two header rows. The metric row is padded with
// empty names or truncated so it is as long as the category row.
func NewKeyTable(categories, metrics []string) KeyTable {
	aligned := make([]string, len(categories))
	copy(aligned, metrics)
	return KeyTable{
		Categories: append([]string(nil), categories...),
		Metrics:    aligned,
	}
}

func underscoreSpaces(field string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, field)
}

// splitFields splits on commas and drops trailing empty fields, so a
// row ending in "," yields no phantom column.
func splitFields(line string) []string {
	fields := strings.Split(line, ",")
	for len(fields) > 0 && fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}
