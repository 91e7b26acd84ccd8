// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the entrypoint helpers for bureau-dstat's main.
// They cover the raw stderr output that happens before the structured
// logger exists or after run() has returned, and map errors to exit
// codes.
package process
