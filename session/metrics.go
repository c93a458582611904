package session

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/anxuanzi/bua-dom/session"

var meter = otel.Meter(instrumentationName)

var (
	buildLatency    metric.Float64Histogram
	buildTotal      metric.Int64Counter
	actionTotal     metric.Int64Counter
	interactiveSize metric.Int64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		buildLatency, err = meter.Float64Histogram(
			"domsnap_build_duration_seconds",
			metric.WithDescription("Duration of snapshot builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		buildTotal, err = meter.Int64Counter(
			"domsnap_build_total",
			metric.WithDescription("Snapshot builds by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		interactiveSize, err = meter.Int64Histogram(
			"domsnap_interactive_elements",
			metric.WithDescription("Highlighted elements per snapshot"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		actionTotal, err = meter.Int64Counter(
			"domsnap_action_total",
			metric.WithDescription("Element actions by operation and outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordBuild(ctx context.Context, d time.Duration, interactive int, outcome string) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	buildLatency.Record(ctx, d.Seconds(), attrs)
	buildTotal.Add(ctx, 1, attrs)
	if outcome == outcomeFresh {
		interactiveSize.Record(ctx, int64(interactive))
	}
}

func recordAction(ctx context.Context, op, outcome string) {
	if err := initMetrics(); err != nil {
		return
	}
	actionTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

// endSpan records err on span, if any, and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
