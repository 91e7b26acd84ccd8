// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import "os"

// onLineProcessed rotates the output file after every MaxLines lines.
// index is the line counter before the line was counted, so with the
// default of 100 the first rotation follows the 100th line of a run.
func (c *Collector) onLineProcessed(index int) {
	if index%c.config.MaxLines != c.config.MaxLines-1 {
		return
	}
	c.rotate()
}

// rotate truncates the output file and re-tails it from offset zero.
// The decoder is untouched: dstat does not repeat its headers, so what
// follows is data. Lines already read in the current batch are still
// decoded by the caller; the replaced tailer is never read again.
func (c *Collector) rotate() {
	c.detachTailer()
	if err := os.Truncate(c.config.Command.OutputFile, 0); err != nil {
		c.logger.Error("truncating output file", "error", err)
	}
	if err := c.attachTailer(); err != nil {
		// Without a tailer no lines arrive, so the staleness monitor
		// will restart the pipeline.
		c.logger.Error("re-tailing output file after truncation", "error", err)
		return
	}
	c.rotations++
	c.metrics.rotations.Inc()
	c.logger.Debug("output file rotated", "line_counter", c.decoder.Counter())
}
