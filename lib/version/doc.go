// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build information for bureau-dstat.
//
// The variables are injected with -ldflags -X, for example:
//
//	go build -ldflags "-X github.com/bureau-foundation/bureau-dstat/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Development builds and test runs see the defaults ("unknown",
// "0.1.0-dev").
package version
