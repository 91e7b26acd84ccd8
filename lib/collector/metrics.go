// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bureau-foundation/bureau-dstat/lib/dstatcsv"
)

const metricsNamespace = "bureau_dstat"

// metrics are the collector's own counters, separate from the sampled
// values a Prometheus sink exports.
type metrics struct {
	lines        *prometheus.CounterVec
	records      prometheus.Counter
	emitErrors   prometheus.Counter
	restarts     prometheus.Counter
	rotations    prometheus.Counter
	spawns       prometheus.Counter
	lastLineTime prometheus.Gauge
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		lines: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lines_total",
			Help:      "Lines decoded from the sampler output, by kind.",
		}, []string{"kind"}),
		records: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "records_emitted_total",
			Help:      "Records handed to the sink.",
		}),
		emitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "emit_errors_total",
			Help:      "Records the sink reported an error for.",
		}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "restarts_total",
			Help:      "Successful sampler restarts.",
		}),
		rotations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rotations_total",
			Help:      "Truncations of the sampler output file.",
		}),
		spawns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sampler_spawns_total",
			Help:      "Sampler processes started.",
		}),
		lastLineTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_line_timestamp_seconds",
			Help:      "Unix time of the most recently decoded line.",
		}),
	}
	if registerer == nil {
		return m, nil
	}
	for _, collector := range []prometheus.Collector{
		m.lines, m.records, m.emitErrors, m.restarts, m.rotations, m.spawns, m.lastLineTime,
	} {
		if err := registerer.Register(collector); err != nil {
			return nil, fmt.Errorf("registering collector metrics: %w", err)
		}
	}
	return m, nil
}

func lineKindLabel(kind dstatcsv.Kind) string {
	switch kind {
	case dstatcsv.KindCategoryHeader, dstatcsv.KindMetricHeader:
		return "header"
	default:
		return kind.String()
	}
}
