// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package statusserver exposes a running collector over HTTP.
//
// Routes:
//
//   - GET /healthz -- 200 while the collector runs, 503 once it has
//     stopped or faulted
//   - GET /status -- the collector's [collector.Status] as JSON, with a
//     resource snapshot of the sampler process when one is running
//   - GET /metrics -- the Prometheus registry in the exposition format
//
// Every handler reads collector state through the collector's reactor,
// so a request never races the pipeline.
package statusserver
