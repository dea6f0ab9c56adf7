// Package metrics defines the Prometheus collectors published by the scan
// engine and the OpenTelemetry meter provider that bridges into the same
// registry.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// DefaultBuckets provides a common set of histogram buckets in seconds that can
// be reused across the engine for latency metrics.
var DefaultBuckets = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10} //nolint: gochecknoglobals

// Engine aggregates the collectors the scan engine reports into. All fields
// are safe for concurrent use.
type Engine struct {
	// FramesSampled counts frames pulled from the capture stream.
	FramesSampled prometheus.Counter
	// Detections counts raw barcode detections, labelled by symbology.
	Detections *prometheus.CounterVec
	// Decodes counts grammar classifications, labelled by format and outcome
	// ("success" or "failure").
	Decodes *prometheus.CounterVec
	// ThrottleSuppressed counts detections dropped by duplicate suppression.
	ThrottleSuppressed prometheus.Counter
	// Transitions counts session state transitions, labelled by target state.
	Transitions *prometheus.CounterVec
	// DecodeLatency observes grammar decode duration in seconds.
	DecodeLatency prometheus.Histogram
}

// NewEngine constructs the engine collectors and registers them with reg.
func NewEngine(reg prometheus.Registerer) *Engine {
	e := &Engine{
		FramesSampled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loyscan_frames_sampled_total",
			Help: "Frames pulled from the capture stream.",
		}),
		Detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loyscan_detections_total",
			Help: "Raw barcode detections by symbology.",
		}, []string{"symbology"}),
		Decodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loyscan_decodes_total",
			Help: "Payload grammar classifications by format and outcome.",
		}, []string{"format", "outcome"}),
		ThrottleSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "loyscan_throttle_suppressed_total",
			Help: "Detections dropped by duplicate suppression.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "loyscan_session_transitions_total",
			Help: "Session state transitions by target state.",
		}, []string{"state"}),
		DecodeLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "loyscan_decode_duration_seconds",
			Help:    "Payload grammar decode duration.",
			Buckets: DefaultBuckets,
		}),
	}

	reg.MustRegister(e.FramesSampled, e.Detections, e.Decodes, e.ThrottleSuppressed, e.Transitions, e.DecodeLatency)

	return e
}

// NewMeterProvider builds an OpenTelemetry meter provider whose instruments
// are exported through the given Prometheus registerer, so otel-instrumented
// components and native collectors share one scrape endpoint.
func NewMeterProvider(reg prometheus.Registerer) (*sdkmetric.MeterProvider, error) {
	exp, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp)), nil
}
