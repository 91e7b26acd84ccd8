// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Time formats understood by Inject.TimeFormat besides a Go layout.
const (
	TimeFormatRFC3339 = "rfc3339"
	TimeFormatUnix    = "unix"
	TimeFormatUnixMs  = "unix_ms"
)

// Inject names the record fields that receive the event's tag and
// time. Empty keys inject nothing.
type Inject struct {
	TagKey     string `yaml:"tag_key" json:"tag_key"`
	TimeKey    string `yaml:"time_key" json:"time_key"`
	TimeFormat string `yaml:"time_format" json:"time_format"`
	// Location applies to layout and rfc3339 formats. UTC when nil.
	Location *time.Location `yaml:"-" json:"-"`
}

// Enabled reports whether any field is injected.
func (i Inject) Enabled() bool { return i.TagKey != "" || i.TimeKey != "" }

// Validate rejects keys that would overwrite the record's own fields.
func (i Inject) Validate() error {
	var errs []error
	for _, key := range []string{i.TagKey, i.TimeKey} {
		if key == "hostname" || key == "dstat" {
			errs = append(errs, fmt.Errorf("inject key %q collides with a record field", key))
		}
	}
	if i.TagKey != "" && i.TagKey == i.TimeKey {
		errs = append(errs, fmt.Errorf("inject tag_key and time_key are both %q", i.TagKey))
	}
	return errors.Join(errs...)
}

// Apply adds the configured fields to event.Extra.
func (i Inject) Apply(event *Event) {
	if !i.Enabled() {
		return
	}
	if event.Extra == nil {
		event.Extra = make(map[string]any, 2)
	}
	if i.TagKey != "" {
		event.Extra[i.TagKey] = event.Tag
	}
	if i.TimeKey != "" {
		event.Extra[i.TimeKey] = i.formatTime(event.Time)
	}
}

func (i Inject) formatTime(moment time.Time) any {
	location := i.Location
	if location == nil {
		location = time.UTC
	}
	switch strings.ToLower(i.TimeFormat) {
	case "", TimeFormatRFC3339:
		return moment.In(location).Format(time.RFC3339Nano)
	case TimeFormatUnix:
		return moment.Unix()
	case TimeFormatUnixMs:
		return moment.UnixMilli()
	default:
		return moment.In(location).Format(i.TimeFormat)
	}
}

// Injector applies an Inject to every event before passing it on.
type Injector struct {
	Inject Inject
	Next   Sink
}

// Emit implements Sink.
func (i Injector) Emit(event Event) error {
	if i.Inject.Enabled() {
		// Copy so the caller's map is not shared with other sinks.
		extra := make(map[string]any, len(event.Extra)+2)
		for key, value := range event.Extra {
			extra[key] = value
		}
		event.Extra = extra
		i.Inject.Apply(&event)
	}
	return i.Next.Emit(event)
}

// Close closes the next sink.
func (i Injector) Close() error { return i.Next.Close() }
