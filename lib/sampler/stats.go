// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sampler

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/process"
)

// Stats is a resource snapshot of a sampler process.
type Stats struct {
	CPUPercent float64 `json:"cpu_percent"`
	RSSBytes   uint64  `json:"rss_bytes"`
	Threads    int32   `json:"threads"`
}

// ReadStats inspects pid through /proc.
func ReadStats(pid int) (Stats, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return Stats{}, fmt.Errorf("inspecting pid %d: %w", pid, err)
	}
	var stats Stats
	if stats.CPUPercent, err = proc.CPUPercent(); err != nil {
		return Stats{}, fmt.Errorf("reading cpu of pid %d: %w", pid, err)
	}
	memory, err := proc.MemoryInfo()
	if err != nil {
		return Stats{}, fmt.Errorf("reading memory of pid %d: %w", pid, err)
	}
	stats.RSSBytes = memory.RSS
	if stats.Threads, err = proc.NumThreads(); err != nil {
		return Stats{}, fmt.Errorf("reading threads of pid %d: %w", pid, err)
	}
	return stats, nil
}
