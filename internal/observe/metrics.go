// Package observe provides application-wide observability primitives for
// sayboard: OpenTelemetry metrics with a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all sayboard metrics.
const meterName = "github.com/sayboard/sayboard"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// ChunkDuration tracks per-window processing latency (condition +
	// recognize + match).
	ChunkDuration metric.Float64Histogram

	// Detections counts emitted keyword events. Use with attributes:
	//   attribute.String("keyword", ...), attribute.String("source", ...)
	Detections metric.Int64Counter

	// DedupSuppressed counts detections swallowed by the cooldown window.
	DedupSuppressed metric.Int64Counter

	// RecognizerFailures counts per-window decoder failures (recovered by
	// reset, never fatal).
	RecognizerFailures metric.Int64Counter

	// Playbacks counts triggered sound playbacks. Use with attribute:
	//   attribute.String("keyword", ...)
	Playbacks metric.Int64Counter

	// ActiveDetectors tracks the number of running detector loops.
	ActiveDetectors metric.Int64UpDownCounter
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for per-window processing latencies.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ChunkDuration, err = m.Float64Histogram("sayboard.detector.chunk.duration",
		metric.WithDescription("Latency of processing one analysis window."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Detections, err = m.Int64Counter("sayboard.detector.detections",
		metric.WithDescription("Emitted keyword detection events."),
	); err != nil {
		return nil, err
	}
	if met.DedupSuppressed, err = m.Int64Counter("sayboard.detector.dedup_suppressed",
		metric.WithDescription("Detections suppressed by the cooldown window."),
	); err != nil {
		return nil, err
	}
	if met.RecognizerFailures, err = m.Int64Counter("sayboard.recognizer.failures",
		metric.WithDescription("Per-window recognizer decoding failures."),
	); err != nil {
		return nil, err
	}
	if met.Playbacks, err = m.Int64Counter("sayboard.playback.triggers",
		metric.WithDescription("Sound playbacks triggered by detections."),
	); err != nil {
		return nil, err
	}
	if met.ActiveDetectors, err = m.Int64UpDownCounter("sayboard.detector.active",
		metric.WithDescription("Number of running detector loops."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide [Metrics] instance, created lazily
// from the global OTel meter provider. Instrument creation errors are
// silently replaced by no-op instruments via the OTel API contract, so this
// never fails at call sites.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		m, err := NewMetrics(otel.GetMeterProvider())
		if err != nil {
			// The OTel API guarantees usable no-op instruments even on
			// error; fall back to an empty Metrics in the worst case.
			m = &Metrics{}
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// RecordDetection is a convenience wrapper for the Detections counter.
func (m *Metrics) RecordDetection(ctx context.Context, keyword, source string) {
	if m.Detections == nil {
		return
	}
	m.Detections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("keyword", keyword),
		attribute.String("source", source),
	))
}
