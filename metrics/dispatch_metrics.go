package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DispatchMetricsCollector struct {
	Runs    prometheus.Counter
	Matched *prometheus.CounterVec
	Sent    prometheus.Counter
	Removed prometheus.Counter
	Failed  prometheus.Counter
}

var globalCollector *DispatchMetricsCollector

func getCollector() *DispatchMetricsCollector {
	if globalCollector == nil {
		globalCollector = &DispatchMetricsCollector{
			Runs: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "adhan_dispatch_runs_total",
					Help: "The total number of minute-matcher invocations",
				},
			),
			Matched: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "adhan_dispatch_matched_total",
					Help: "The total number of prayer-time minute matches",
				},
				[]string{"prayer"},
			),
			Sent: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "adhan_push_sent_total",
					Help: "The total number of push notifications delivered",
				},
			),
			Removed: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "adhan_push_removed_total",
					Help: "The total number of subscriptions pruned as gone",
				},
			),
			Failed: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "adhan_push_failed_total",
					Help: "The total number of transient push delivery failures",
				},
			),
		}
	}
	return globalCollector
}

// DispatchMetrics records minute-matcher activity
type DispatchMetrics struct {
	collector *DispatchMetricsCollector
}

func NewDispatchMetrics() *DispatchMetrics {
	return &DispatchMetrics{collector: getCollector()}
}

func (m *DispatchMetrics) RecordRun() {
	m.collector.Runs.Inc()
}

func (m *DispatchMetrics) RecordMatch(prayer string) {
	m.collector.Matched.WithLabelValues(prayer).Inc()
}

func (m *DispatchMetrics) RecordSent() {
	m.collector.Sent.Inc()
}

func (m *DispatchMetrics) RecordRemoved() {
	m.collector.Removed.Inc()
}

func (m *DispatchMetrics) RecordFailed() {
	m.collector.Failed.Inc()
}
