package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "propextract"

// Metrics holds the PropExtract metric instruments.
type Metrics struct {
	TasksSubmitted  metric.Int64Counter
	TasksCompleted  metric.Int64Counter
	TasksFailed     metric.Int64Counter
	DocAPIFallbacks metric.Int64Counter
	HandlerDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on mp, or on the global provider when
// mp is nil.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TasksSubmitted, err = meter.Int64Counter("propextract.tasks.submitted",
		metric.WithDescription("Number of tasks submitted"))
	if err != nil {
		return nil, err
	}

	m.TasksCompleted, err = meter.Int64Counter("propextract.tasks.completed",
		metric.WithDescription("Number of tasks completed"))
	if err != nil {
		return nil, err
	}

	m.TasksFailed, err = meter.Int64Counter("propextract.tasks.failed",
		metric.WithDescription("Number of tasks failed"))
	if err != nil {
		return nil, err
	}

	m.DocAPIFallbacks, err = meter.Int64Counter("propextract.docapi.fallbacks",
		metric.WithDescription("Documents produced by the local fallback after a document API failure"))
	if err != nil {
		return nil, err
	}

	m.HandlerDuration, err = meter.Float64Histogram("propextract.handler.duration_seconds",
		metric.WithDescription("Handler invocation duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

func kindAttr(kind string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("task.kind", kind))
}

// Submitted counts one submitted task of kind.
func (m *Metrics) Submitted(ctx context.Context, kind string) {
	m.TasksSubmitted.Add(ctx, 1, kindAttr(kind))
}

// Finished records the end of one handler invocation.
func (m *Metrics) Finished(ctx context.Context, kind string, failed bool, elapsed time.Duration) {
	if failed {
		m.TasksFailed.Add(ctx, 1, kindAttr(kind))
	} else {
		m.TasksCompleted.Add(ctx, 1, kindAttr(kind))
	}
	m.HandlerDuration.Record(ctx, elapsed.Seconds(), kindAttr(kind))
}

// Fallback counts one document produced locally for operation.
func (m *Metrics) Fallback(ctx context.Context, operation string) {
	m.DocAPIFallbacks.Add(ctx, 1, metric.WithAttributes(attribute.String("docapi.operation", operation)))
}
