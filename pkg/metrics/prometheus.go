package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics implements Recorder with Prometheus
// collectors registered on a private registry, so several
// instances can coexist in one process.
type PrometheusMetrics struct {
	registry    *prometheus.Registry
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	outcomes    *prometheus.CounterVec
	successRate *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance.
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conformance_runs_total",
				Help: "Total number of conformance runs",
			},
			[]string{"rule_set", "status"},
		),
		runDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conformance_run_duration_seconds",
				Help:    "Time taken to resolve resources and evaluate a rule set",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"rule_set"},
		),
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conformance_outcomes_total",
				Help: "Total number of assertion outcomes",
			},
			[]string{"rule_set", "section", "result"},
		),
		successRate: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "conformance_success_rate",
				Help: "Share of passed assertions in the latest run per root",
			},
			[]string{"rule_set", "root"},
		),
	}
}

func (m *PrometheusMetrics) RecordRun(
	ruleSet, status string,
	duration time.Duration,
) {
	m.runs.WithLabelValues(ruleSet, status).Inc()
	m.runDuration.WithLabelValues(ruleSet).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordOutcome(ruleSet, section, result string) {
	m.outcomes.WithLabelValues(ruleSet, section, result).Inc()
}

func (m *PrometheusMetrics) SetSuccessRate(ruleSet, root string, rate float64) {
	m.successRate.WithLabelValues(ruleSet, root).Set(rate)
}

// Registry returns the registry holding the collectors.
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteToTextfile writes the current metrics in the text
// exposition format, for node_exporter's textfile collector.
func (m *PrometheusMetrics) WriteToTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	return nil
}
