package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanchuk/tformance-sub010/internal/ports"
)

// testPrometheusMetrics provides a global instance to avoid duplicate metric
// registration issues across tests in the same package.
var testPrometheusMetrics *PrometheusMetrics

func init() {
	testPrometheusMetrics = NewPrometheusMetrics()
}

func TestNewPrometheusMetrics(t *testing.T) {
	pm := testPrometheusMetrics
	require.NotNil(t, pm)

	assert.NotNil(t, pm.detectorSignals)
	assert.NotNil(t, pm.classifierCalls)
	assert.NotNil(t, pm.batchFallbacks)
	assert.NotNil(t, pm.jobTransitions)
	assert.NotNil(t, pm.scoreDistribution)
	assert.NotNil(t, pm.operationLatency)
	assert.NotNil(t, pm.operationCounter)
	assert.NotNil(t, pm.systemGauges)
}

func TestPrometheusMetrics_RecordCounter(t *testing.T) {
	pm := testPrometheusMetrics

	tests := []struct {
		name   string
		metric string
		value  float64
		labels map[string]string
	}{
		{
			name:   "detector signal",
			metric: "detector_signals_total",
			value:  1.0,
			labels: map[string]string{"source": "pattern", "detected": "true"},
		},
		{
			name:   "classifier call with failure",
			metric: "classifier_calls_total",
			value:  1.0,
			labels: map[string]string{"provider": "anthropic", "tier": "standard", "failure": "schema_validation_failed"},
		},
		{
			name:   "classifier call success",
			metric: "classifier_calls_total",
			value:  1.0,
			labels: map[string]string{"provider": "anthropic", "tier": "escalated", "failure": ""},
		},
		{
			name:   "batch fallback",
			metric: "batch_fallback_total",
			value:  1.0,
			labels: map[string]string{"reason": "token_limit_exceeded"},
		},
		{
			name:   "job transition",
			metric: "batch_job_transitions_total",
			value:  1.0,
			labels: map[string]string{"from": "pending", "to": "submitted"},
		},
		{
			name:   "generic counter with stage",
			metric: "records_processed_total",
			value:  25.0,
			labels: map[string]string{"stage": "scoring"},
		},
		{
			name:   "generic counter with explicit status",
			metric: "records_processed_total",
			value:  3.0,
			labels: map[string]string{"stage": "scoring", "status": "error"},
		},
		{
			name:   "missing labels fall back to empty values",
			metric: "detector_signals_total",
			value:  1.0,
			labels: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				pm.RecordCounter(tt.metric, tt.value, tt.labels)
			})
		})
	}
}

func TestPrometheusMetrics_RecordLatency(t *testing.T) {
	pm := testPrometheusMetrics

	tests := []struct {
		name      string
		operation string
		duration  time.Duration
		labels    map[string]string
	}{
		{
			name:      "latency with stage label",
			operation: "classify_direct",
			duration:  150 * time.Millisecond,
			labels:    map[string]string{"stage": "classifier"},
		},
		{
			name:      "latency without stage label",
			operation: "detect",
			duration:  2 * time.Millisecond,
			labels:    map[string]string{"other": "value"},
		},
		{
			name:      "latency with nil labels",
			operation: "score",
			duration:  time.Microsecond,
			labels:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				pm.RecordLatency(tt.operation, tt.duration, tt.labels)
			})
		})
	}
}

func TestPrometheusMetrics_RecordHistogram(t *testing.T) {
	pm := testPrometheusMetrics

	t.Run("composite score routes to score distribution", func(t *testing.T) {
		assert.NotPanics(t, func() {
			pm.RecordHistogram("composite_score", 0.54, map[string]string{"label": "medium"})
		})
	})

	t.Run("other histograms share the latency buckets", func(t *testing.T) {
		assert.NotPanics(t, func() {
			pm.RecordHistogram("batch_poll_interval_seconds", 30.0, map[string]string{"stage": "orchestrator"})
		})
	})
}

func TestPrometheusMetrics_RecordGauge(t *testing.T) {
	pm := testPrometheusMetrics

	tests := []struct {
		name   string
		metric string
		value  float64
		labels map[string]string
	}{
		{
			name:   "jobs in flight",
			metric: "batch_jobs_inflight",
			value:  4.0,
			labels: map[string]string{"stage": "orchestrator"},
		},
		{
			name:   "gauge without stage",
			metric: "queue_depth",
			value:  120.0,
			labels: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				pm.RecordGauge(tt.metric, tt.value, tt.labels)
			})
		})
	}
}

func TestPrometheusMetrics_LabelHandling(t *testing.T) {
	pm := testPrometheusMetrics

	tests := []struct {
		name   string
		labels map[string]string
	}{
		{"nil labels map", nil},
		{"empty labels map", map[string]string{}},
		{"labels map with stage", map[string]string{"stage": "detectors"}},
		{"labels map with empty stage", map[string]string{"stage": ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				pm.RecordLatency("test_op", 100*time.Millisecond, tt.labels)
			})
			assert.NotPanics(t, func() {
				pm.RecordCounter("test_counter", 1.0, tt.labels)
			})
			assert.NotPanics(t, func() {
				pm.RecordGauge("test_gauge", 42.0, tt.labels)
			})
			assert.NotPanics(t, func() {
				pm.RecordHistogram("test_hist", 0.5, tt.labels)
			})
		})
	}
}

func TestPrometheusMetrics_InterfaceCompliance(t *testing.T) {
	var collector ports.MetricsCollector = testPrometheusMetrics
	require.NotNil(t, collector)

	labels := map[string]string{"stage": "test"}
	assert.NotPanics(t, func() {
		collector.RecordLatency("test", 100*time.Millisecond, labels)
		collector.RecordCounter("test", 1.0, labels)
		collector.RecordGauge("test", 42.0, labels)
		collector.RecordHistogram("test", 0.5, labels)
	})
}

func TestPrometheusMetrics_NegativeCounterPanics(t *testing.T) {
	pm := testPrometheusMetrics

	// Prometheus counters cannot go backwards.
	assert.Panics(t, func() {
		pm.RecordCounter("negative_counter", -1.0, map[string]string{"stage": "test"})
	})
}
