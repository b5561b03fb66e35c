package testutils

import (
	"sync"
	"time"

	"github.com/yanchuk/tformance-sub010/internal/ports"
)

// MetricEvent is one recorded metric emission.
type MetricEvent struct {
	Value  float64
	Labels map[string]string
}

// RecordingMetrics is a ports.MetricsCollector that keeps every emission in
// memory so tests can assert on what the pipeline reported.
type RecordingMetrics struct {
	mu sync.Mutex

	counters   map[string][]MetricEvent
	gauges     map[string][]MetricEvent
	histograms map[string][]MetricEvent
	latencies  map[string][]time.Duration
}

// NewRecordingMetrics creates an empty collector.
func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{
		counters:   make(map[string][]MetricEvent),
		gauges:     make(map[string][]MetricEvent),
		histograms: make(map[string][]MetricEvent),
		latencies:  make(map[string][]time.Duration),
	}
}

// RecordLatency stores the duration under the operation name.
func (r *RecordingMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latencies[operation] = append(r.latencies[operation], duration)
}

// RecordCounter stores the increment under the counter name.
func (r *RecordingMetrics) RecordCounter(name string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] = append(r.counters[name], MetricEvent{Value: value, Labels: copyLabels(labels)})
}

// RecordGauge stores the observation under the gauge name.
func (r *RecordingMetrics) RecordGauge(name string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = append(r.gauges[name], MetricEvent{Value: value, Labels: copyLabels(labels)})
}

// RecordHistogram stores the observation under the histogram name.
func (r *RecordingMetrics) RecordHistogram(name string, value float64, labels map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histograms[name] = append(r.histograms[name], MetricEvent{Value: value, Labels: copyLabels(labels)})
}

// CounterValue sums every increment recorded under the counter name.
func (r *RecordingMetrics) CounterValue(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum float64
	for _, event := range r.counters[name] {
		sum += event.Value
	}
	return sum
}

// CounterEvents returns the emissions recorded under the counter name.
func (r *RecordingMetrics) CounterEvents(name string) []MetricEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MetricEvent(nil), r.counters[name]...)
}

// HistogramValues returns the observations recorded under the histogram name.
func (r *RecordingMetrics) HistogramValues(name string) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	values := make([]float64, 0, len(r.histograms[name]))
	for _, event := range r.histograms[name] {
		values = append(values, event.Value)
	}
	return values
}

// LatencyCount returns how many latencies were recorded for the operation.
func (r *RecordingMetrics) LatencyCount(operation string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.latencies[operation])
}

func copyLabels(labels map[string]string) map[string]string {
	if labels == nil {
		return nil
	}
	out := make(map[string]string, len(labels))
	for k, v := range labels {
		out[k] = v
	}
	return out
}

// Verify interface compliance at compile time.
var _ ports.MetricsCollector = (*RecordingMetrics)(nil)
