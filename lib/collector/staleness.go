// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"fmt"
	"runtime/debug"
	"time"
)

// checkStaleness is the staleness monitor's task. It restarts the
// pipeline when no line has been decoded for longer than StaleAfter.
// Failures, panics included, are logged and the monitor keeps ticking;
// a failed restart leaves lastLine alone so the next tick retries.
func (c *Collector) checkStaleness(now time.Time) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			c.logger.Error("staleness check panicked",
				"error", fmt.Sprint(recovered),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("staleness check panicked: %v", recovered)
		}
	}()

	silent := now.Sub(c.lastLine)
	if silent <= c.config.StaleAfter {
		return nil
	}
	c.logger.Warn("sampler output is stale, restarting",
		"silent_for", silent,
		"stale_after", c.config.StaleAfter,
		"line_counter", c.decoder.Counter(),
	)
	return c.restart()
}
