// Copyright 2025 The Mercury Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics collects request and connection counters. There is
// no exposition endpoint; the interactive CLI reads the registry for
// its status command.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Metrics is the process-wide counter set.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	activeConnections prometheus.Gauge
}

// New builds a fresh registry with Mercury's collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mercury",
			Name:      "requests_total",
			Help:      "Requests served, by status code class.",
		}, []string{"class"}),
		activeConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mercury",
			Name:      "active_connections",
			Help:      "Connections currently being handled.",
		}),
	}
	m.registry.MustRegister(m.requestsTotal, m.activeConnections)
	return m
}

// RecordRequest counts one served request by status class.
func (m *Metrics) RecordRequest(status int) {
	m.requestsTotal.WithLabelValues(strconv.Itoa(status/100) + "xx").Inc()
}

// ConnOpened marks a connection as active.
func (m *Metrics) ConnOpened() { m.activeConnections.Inc() }

// ConnClosed marks a connection as done.
func (m *Metrics) ConnClosed() { m.activeConnections.Dec() }

// RequestCounts returns served request totals keyed by status class.
func (m *Metrics) RequestCounts() map[string]uint64 {
	counts := make(map[string]uint64)
	families, err := m.registry.Gather()
	if err != nil {
		return counts
	}
	for _, fam := range families {
		if fam.GetName() != "mercury_requests_total" {
			continue
		}
		for _, metric := range fam.GetMetric() {
			counts[labelValue(metric, "class")] += uint64(metric.GetCounter().GetValue())
		}
	}
	return counts
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
