// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package sink

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// sampleKey identifies one dstat column of one host.
type sampleKey struct {
	tag      string
	hostname string
	category string
	metric   string
}

// Prometheus keeps the latest value of every column and exposes them as
// the dstat_value gauge. Values that do not parse as numbers are
// skipped; the rest of the pipeline never interprets them.
type Prometheus struct {
	description *prometheus.Desc

	mu     sync.RWMutex
	latest map[sampleKey]float64
}

// NewPrometheus returns a sink that is also a prometheus.Collector.
// Register it on the registry served at /metrics.
func NewPrometheus() *Prometheus {
	return &Prometheus{
		description: prometheus.NewDesc(
			"dstat_value",
			"Latest value sampled by dstat, per category and metric.",
			[]string{"tag", "hostname", "category", "metric"},
			nil,
		),
		latest: make(map[sampleKey]float64),
	}
}

// Emit records the event's values.
func (p *Prometheus) Emit(event Event) error {
	if event.Record.Dstat == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	event.Record.Dstat.Each(func(category, metric, raw string) {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return
		}
		p.latest[sampleKey{event.Tag, event.Record.Hostname, category, metric}] = value
	})
	return nil
}

// Close implements Sink.
func (p *Prometheus) Close() error { return nil }

// Describe implements prometheus.Collector.
func (p *Prometheus) Describe(descriptions chan<- *prometheus.Desc) {
	descriptions <- p.description
}

// Collect implements prometheus.Collector.
func (p *Prometheus) Collect(metrics chan<- prometheus.Metric) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for key, value := range p.latest {
		metrics <- prometheus.MustNewConstMetric(p.description, prometheus.GaugeValue, value,
			key.tag, key.hostname, key.category, key.metric)
	}
}
