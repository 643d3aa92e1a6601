package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// MeterProvider global instance
var globalMeterProvider *sdkmetric.MeterProvider

// Metrics holds the engine's instruments. Evaluations and failures are
// counted per model family; iteration latency is recorded per family in
// milliseconds.
type Metrics struct {
	meter metric.Meter

	EvaluationsTotal   metric.Int64Counter
	FailuresTotal      metric.Int64Counter
	CacheHitsTotal     metric.Int64Counter
	IterationLatencyMs metric.Float64Histogram
}

// InitMetrics initializes OpenTelemetry metrics with a Prometheus
// exporter. The exporter registers against the default Prometheus
// registry; callers expose it with promhttp or an equivalent handler.
func InitMetrics(serviceName string) (*sdkmetric.MeterProvider, *Metrics, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	otel.SetMeterProvider(mp)
	globalMeterProvider = mp

	metrics, err := newMetrics(mp.Meter(serviceName))
	if err != nil {
		return nil, nil, err
	}
	return mp, metrics, nil
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{meter: meter}

	var err error
	m.EvaluationsTotal, err = meter.Int64Counter(
		"forecastkit.evaluations.total",
		metric.WithDescription("Model evaluations completed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluations counter: %w", err)
	}

	m.FailuresTotal, err = meter.Int64Counter(
		"forecastkit.evaluation_failures.total",
		metric.WithDescription("Model evaluations that failed"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create failures counter: %w", err)
	}

	m.CacheHitsTotal, err = meter.Int64Counter(
		"forecastkit.cache_hits.total",
		metric.WithDescription("Evaluation cache hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache hit counter: %w", err)
	}

	m.IterationLatencyMs, err = meter.Float64Histogram(
		"forecastkit.iteration.latency",
		metric.WithDescription("Optimization iteration latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create latency histogram: %w", err)
	}

	return m, nil
}

// RecordEvaluation counts one completed evaluation for the family.
func (m *Metrics) RecordEvaluation(ctx context.Context, family string, latencyMs float64) {
	attrs := metric.WithAttributes(attribute.String("family", family))
	m.EvaluationsTotal.Add(ctx, 1, attrs)
	m.IterationLatencyMs.Record(ctx, latencyMs, attrs)
}

// RecordFailure counts one failed evaluation for the family.
func (m *Metrics) RecordFailure(ctx context.Context, family string) {
	m.FailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("family", family)))
}

// RecordCacheHit counts one evaluation served from cache.
func (m *Metrics) RecordCacheHit(ctx context.Context, family string) {
	m.CacheHitsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("family", family)))
}

// ShutdownMetrics flushes and stops the global meter provider.
func ShutdownMetrics(ctx context.Context) error {
	if globalMeterProvider == nil {
		return nil
	}
	return globalMeterProvider.Shutdown(ctx)
}
