// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"context"
	"time"
)

// Status is a snapshot of the pipeline.
type Status struct {
	Tag         string    `json:"tag"`
	Hostname    string    `json:"hostname"`
	OutputFile  string    `json:"output_file"`
	Pid         int       `json:"pid"`
	Running     bool      `json:"running"`
	LineCounter int       `json:"line_counter"`
	KeyCount    int       `json:"key_count"`
	TailOffset  int64     `json:"tail_offset"`
	LastLine    time.Time `json:"last_line"`
	Records     int       `json:"records"`
	Restarts    int       `json:"restarts"`
	Rotations   int       `json:"rotations"`
	Spawns      int       `json:"spawns"`
}

// Status reads a snapshot on the reactor goroutine. After the reactor
// stops it returns reactor.ErrStopped. If ctx ends first the snapshot is
// abandoned and the zero Status returned; the posted read still runs
// later but writes only into its own buffered channel.
func (c *Collector) Status(ctx context.Context) (Status, error) {
	snapshot := make(chan Status, 1)
	err := c.reactor.Do(ctx, func() {
		status := Status{
			Tag:         c.config.Tag,
			Hostname:    c.config.Hostname,
			OutputFile:  c.config.Command.OutputFile,
			LineCounter: c.decoder.Counter(),
			KeyCount:    c.decoder.Keys().Len(),
			LastLine:    c.lastLine,
			Records:     c.records,
			Restarts:    c.restarts,
			Rotations:   c.rotations,
			Spawns:      c.spawns,
		}
		if c.handle != nil {
			status.Pid = c.handle.Pid()
			select {
			case <-c.handle.Done():
			default:
				status.Running = true
			}
		}
		if c.tailer != nil {
			status.TailOffset = c.tailer.Offset()
		}
		snapshot <- status
	})
	if err != nil {
		return Status{}, err
	}
	return <-snapshot, nil
}
