// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package worker

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Task outcomes, as reported in the "outcome" label.
const (
	OutcomeCompleted   = "completed"
	OutcomeBPMNError   = "bpmn_error"
	OutcomeFailed      = "failed"
	OutcomeReportError = "report_error"
	OutcomeLockLost    = "lock_lost"
)

// Metrics collects worker statistics.  It is a prometheus.Collector;
// the caller decides whether and where to register it.
type Metrics struct {
	// Tasks counts handled tasks by topic and outcome.
	Tasks *prometheus.CounterVec

	// FetchDuration observes the time fetch-and-lock calls take,
	// including failed ones.
	FetchDuration prometheus.Histogram
}

// NewMetrics creates an unregistered set of worker metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Tasks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "camunda",
				Subsystem: "worker",
				Name:      "tasks_total",
				Help:      "External tasks handled by the worker",
			},
			[]string{
				"topic",
				"outcome",
			},
		),
		FetchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "camunda",
				Subsystem: "worker",
				Name:      "fetch_duration_seconds",
				Help:      "Duration of fetch-and-lock requests",
				Buckets:   prometheus.DefBuckets,
			},
		),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.Tasks.Describe(ch)
	m.FetchDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.Tasks.Collect(ch)
	m.FetchDuration.Collect(ch)
}

func (m *Metrics) observeTask(topic, outcome string) {
	m.Tasks.With(prometheus.Labels{
		"topic":   topic,
		"outcome": outcome,
	}).Inc()
}
