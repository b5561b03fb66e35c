// Package metrics provides the Prometheus-backed metrics collector for the
// detection pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/yanchuk/tformance-sub010/internal/ports"
)

// Compile-time verification that PrometheusMetrics implements MetricsCollector.
var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It tracks detector hits, classifier call outcomes by tier and
// failure kind, batch lifecycle events, and the distribution of composite
// scores.
type PrometheusMetrics struct {
	detectorSignals   *prometheus.CounterVec
	classifierCalls   *prometheus.CounterVec
	batchFallbacks    *prometheus.CounterVec
	jobTransitions    *prometheus.CounterVec
	scoreDistribution *prometheus.HistogramVec
	operationLatency  *prometheus.HistogramVec
	operationCounter  *prometheus.CounterVec
	systemGauges      *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a new PrometheusMetrics instance and registers
// all pipeline metrics in the global Prometheus registry. It must only be
// called once per process; promauto panics on duplicate registration.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		detectorSignals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "detector_signals_total",
				Help: "Signals emitted by detectors, partitioned by source and whether evidence was found.",
			},
			[]string{"source", "detected"},
		),
		classifierCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "classifier_calls_total",
				Help: "Classifier invocations, partitioned by provider, call tier, and failure kind.",
			},
			[]string{"provider", "tier", "failure"},
		),
		batchFallbacks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "batch_fallback_total",
				Help: "Batch items escalated to direct-mode fallback, partitioned by the failure that triggered it.",
			},
			[]string{"reason"},
		),
		jobTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "batch_job_transitions_total",
				Help: "Batch job state transitions, partitioned by origin and destination status.",
			},
			[]string{"from", "to"},
		),
		scoreDistribution: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "composite_score",
				Help:    "Distribution of fused composite scores.",
				Buckets: prometheus.LinearBuckets(0, 0.1, 11),
			},
			[]string{"label"},
		),

		// General execution metrics shared by every pipeline stage.
		operationLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pipeline_operation_duration_seconds",
				Help:    "Execution time of pipeline operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "stage"},
		),
		operationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_operations_total",
				Help: "Total number of operations performed by the pipeline.",
			},
			[]string{"operation", "status", "stage"},
		),
		systemGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pipeline_system_state",
				Help: "Current system state values for the pipeline.",
			},
			[]string{"metric", "stage"},
		),
	}
}

// RecordLatency implements the MetricsCollector interface by recording
// execution latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(
	operation string,
	duration time.Duration,
	labels map[string]string,
) {
	pm.operationLatency.WithLabelValues(operation, stageOf(labels)).Observe(duration.Seconds())
}

// RecordCounter implements the MetricsCollector interface by incrementing
// Prometheus counters. Pipeline-specific metrics route to dedicated vectors;
// everything else lands on the generic operation counter.
func (pm *PrometheusMetrics) RecordCounter(
	metric string, value float64, labels map[string]string,
) {
	switch metric {
	case "detector_signals_total":
		pm.detectorSignals.WithLabelValues(
			labels["source"],
			labels["detected"],
		).Add(value)
	case "classifier_calls_total":
		pm.classifierCalls.WithLabelValues(
			labels["provider"],
			labels["tier"],
			labels["failure"],
		).Add(value)
	case "batch_fallback_total":
		pm.batchFallbacks.WithLabelValues(labels["reason"]).Add(value)
	case "batch_job_transitions_total":
		pm.jobTransitions.WithLabelValues(labels["from"], labels["to"]).Add(value)
	default:
		status, ok := labels["status"]
		if !ok {
			status = "success"
		}
		pm.operationCounter.WithLabelValues(metric, status, stageOf(labels)).Add(value)
	}
}

// RecordGauge implements the MetricsCollector interface by setting
// Prometheus gauge values.
func (pm *PrometheusMetrics) RecordGauge(
	metric string, value float64, labels map[string]string,
) {
	pm.systemGauges.WithLabelValues(metric, stageOf(labels)).Set(value)
}

// RecordHistogram implements the MetricsCollector interface by recording
// values in a Prometheus histogram. Composite scores get their own
// fixed-range histogram; everything else shares the latency buckets.
func (pm *PrometheusMetrics) RecordHistogram(
	metric string, value float64, labels map[string]string,
) {
	if metric == "composite_score" {
		pm.scoreDistribution.WithLabelValues(labels["label"]).Observe(value)
		return
	}
	pm.operationLatency.WithLabelValues(metric, stageOf(labels)).Observe(value)
}

func stageOf(labels map[string]string) string {
	stage, ok := labels["stage"]
	if !ok || stage == "" {
		return "unknown"
	}
	return stage
}
