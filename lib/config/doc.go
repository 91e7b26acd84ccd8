// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the bureau-dstat configuration.
//
// Values are layered in a fixed order, each layer overriding the one
// before:
//
//  1. [Default], which mirrors the historical dstat input defaults
//     (dstat_path "dstat", option "-fcdnm", delay 1, tmp_file
//     "/tmp/dstat.csv", hostname_command "hostname").
//  2. The config file passed to [LoadFile]: YAML, or JSON with comments
//     when the file ends in .json or .jsonc.
//  3. DSTAT_* environment variables (for example DSTAT_TAG,
//     DSTAT_DELAY, DSTAT_LOG_LEVEL).
//  4. Command-line flags, applied by the binary.
//
// Path-valued fields accept ${VAR} and ${VAR:-default} references,
// expanded once after the environment layer. [Config.Validate] reports
// every problem at once.
package config
