package app

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var attrUseCase = attribute.Key("usecase.name")

// useCaseMetrics instruments use-case executions through the global otel
// meter provider. When no SDK is wired the instruments are no-ops, so
// recording is always safe.
type useCaseMetrics struct {
	executions metric.Int64Counter
	failures   metric.Int64Counter
	latency    metric.Float64Histogram
}

var (
	metricsOnce sync.Once
	ucMetrics   useCaseMetrics
)

func instruments() useCaseMetrics {
	metricsOnce.Do(func() {
		meter := otel.Meter("gatebook/app")
		ucMetrics.executions, _ = meter.Int64Counter("usecase.executions.total",
			metric.WithDescription("Total number of use-case executions."))
		ucMetrics.failures, _ = meter.Int64Counter("usecase.failures.total",
			metric.WithDescription("Total number of failed use-case executions."))
		ucMetrics.latency, _ = meter.Float64Histogram("usecase.latency.ms",
			metric.WithDescription("Use-case execution latency in milliseconds."),
			metric.WithUnit("ms"))
	})
	return ucMetrics
}

func recordExecution(ctx context.Context, name string, elapsed time.Duration, err error) {
	m := instruments()
	attrs := metric.WithAttributes(attrUseCase.String(name))
	if m.executions != nil {
		m.executions.Add(ctx, 1, attrs)
	}
	if err != nil && m.failures != nil {
		m.failures.Add(ctx, 1, attrs)
	}
	if m.latency != nil {
		m.latency.Record(ctx, float64(elapsed.Microseconds())/1000.0, attrs)
	}
}
