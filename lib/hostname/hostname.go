// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostname resolves the hostname stamped on every record.
package hostname

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Resolve runs command, an argument vector, once and returns its
// standard output with trailing line terminators removed. An empty
// command falls back to os.Hostname.
func Resolve(ctx context.Context, command []string) (string, error) {
	if len(command) == 0 || command[0] == "" {
		name, err := os.Hostname()
		if err != nil {
			return "", fmt.Errorf("reading hostname: %w", err)
		}
		return name, nil
	}

	output, err := exec.CommandContext(ctx, command[0], command[1:]...).Output()
	if err != nil {
		return "", fmt.Errorf("running hostname command %q: %w", strings.Join(command, " "), err)
	}
	return strings.TrimRight(string(output), "\r\n"), nil
}
