// ABOUTME: Prometheus metrics for the tracking service
// ABOUTME: Counts recorded samples, storage errors, dropped batches, and tracking state

package tracker

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the tracking service's collectors.
type Metrics struct {
	SamplesRecorded prometheus.Counter
	SampleErrors    prometheus.Counter
	TrackingActive  prometheus.Gauge
	FixesDropped    prometheus.Counter
}

// NewMetrics creates the collectors and registers them with registry.
// A nil registry leaves them unregistered.
func NewMetrics(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		SamplesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_samples_recorded_total",
			Help: "Total number of location samples written to storage",
		}),
		SampleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_sample_errors_total",
			Help: "Total number of location samples that failed to store",
		}),
		TrackingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tracker_tracking_active",
			Help: "Whether tracking is running (1) or stopped (0)",
		}),
		FixesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tracker_fixes_dropped_total",
			Help: "Total number of provider deliveries that carried no fix (quiet push and gpsd intervals are not delivered)",
		}),
	}
	if registry != nil {
		if err := registry.Register(m); err != nil {
			return nil, fmt.Errorf("failed to register tracker metrics: %w", err)
		}
	}
	return m, nil
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.SamplesRecorded.Describe(ch)
	m.SampleErrors.Describe(ch)
	m.TrackingActive.Describe(ch)
	m.FixesDropped.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.SamplesRecorded.Collect(ch)
	m.SampleErrors.Collect(ch)
	m.TrackingActive.Collect(ch)
	m.FixesDropped.Collect(ch)
}
