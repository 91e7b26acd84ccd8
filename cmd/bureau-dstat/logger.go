// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bureau-foundation/bureau-dstat/lib/config"
)

// newLogger builds the process logger. Format "auto" uses text when w
// is a terminal and JSON otherwise.
func newLogger(w io.Writer, logConfig config.LogConfig) *slog.Logger {
	options := &slog.HandlerOptions{Level: parseLevel(logConfig.Level)}

	useText := logConfig.Format == "text"
	if logConfig.Format == "auto" || logConfig.Format == "" {
		if file, ok := w.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
			useText = true
		}
	}
	if useText {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
