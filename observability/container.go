package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/modkit/di"
)

// Metric names reported by ContainerMetrics.
const (
	MetricResolveTotal      = "di.resolve.total"
	MetricConstructTotal    = "di.construct.total"
	MetricConstructDuration = "di.construct.duration"
	MetricOverrideTotal     = "di.override.total"
	MetricTeardownTotal     = "di.module.teardown.total"
	MetricReleasedTotal     = "di.module.released.total"
)

// ContainerMetrics records container events as OpenTelemetry metrics and
// construction spans. Register it with di.WithObserver.
type ContainerMetrics struct {
	tracer trace.Tracer

	resolveTotal      metric.Int64Counter
	constructTotal    metric.Int64Counter
	constructDuration metric.Float64Histogram
	overrideTotal     metric.Int64Counter
	teardownTotal     metric.Int64Counter
	releasedTotal     metric.Int64Counter
}

var _ di.Observer = (*ContainerMetrics)(nil)

// NewContainerMetrics creates the container instruments on meter. Spans are
// started on tracer.
func NewContainerMetrics(meter metric.Meter, tracer trace.Tracer) (*ContainerMetrics, error) {
	m := &ContainerMetrics{tracer: tracer}
	var err error

	if m.resolveTotal, err = meter.Int64Counter(MetricResolveTotal,
		metric.WithDescription("Capability resolutions by scope and result"),
	); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricResolveTotal, err)
	}
	if m.constructTotal, err = meter.Int64Counter(MetricConstructTotal,
		metric.WithDescription("Factory invocations by scope and status"),
	); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricConstructTotal, err)
	}
	if m.constructDuration, err = meter.Float64Histogram(MetricConstructDuration,
		metric.WithDescription("Factory run time in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricConstructDuration, err)
	}
	if m.overrideTotal, err = meter.Int64Counter(MetricOverrideTotal,
		metric.WithDescription("Registrations that replaced an existing one"),
	); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricOverrideTotal, err)
	}
	if m.teardownTotal, err = meter.Int64Counter(MetricTeardownTotal,
		metric.WithDescription("Module teardowns"),
	); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricTeardownTotal, err)
	}
	if m.releasedTotal, err = meter.Int64Counter(MetricReleasedTotal,
		metric.WithDescription("Module-scoped instances dropped by teardown"),
	); err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricReleasedTotal, err)
	}
	return m, nil
}

// OnResolve counts a resolution. result is hit, miss or error.
func (m *ContainerMetrics) OnResolve(e di.ResolveEvent) {
	scope := "none"
	if e.Found {
		scope = e.Scope.String()
	}
	result := "miss"
	switch {
	case e.Err != nil:
		result = "error"
	case e.CacheHit:
		result = "hit"
	}
	m.resolveTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String(AttrScope, scope),
		attribute.String(AttrResult, result),
	))
}

// OnConstruct counts a factory run and records it as a span covering the
// factory's run time.
func (m *ContainerMetrics) OnConstruct(e di.ConstructEvent) {
	ctx := context.Background()
	status := statusOf(e.Err)

	m.constructTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrScope, e.Scope.String()),
		attribute.String(AttrStatus, status),
	))
	m.constructDuration.Record(ctx, e.Duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrScope, e.Scope.String()),
	))

	end := time.Now()
	attrs := []attribute.KeyValue{
		attribute.String(AttrCapability, string(e.Key)),
		attribute.String(AttrScope, e.Scope.String()),
	}
	if e.Module != "" {
		attrs = append(attrs, attribute.String(AttrModule, e.Module))
	}
	_, span := m.tracer.Start(ctx, SpanConstruct,
		trace.WithTimestamp(end.Add(-e.Duration)),
		trace.WithAttributes(attrs...),
	)
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	}
	span.End(trace.WithTimestamp(end))
}

// OnOverride counts a replaced registration.
func (m *ContainerMetrics) OnOverride(e di.OverrideEvent) {
	m.overrideTotal.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String(AttrScope, e.Scope.String()),
	))
}

// OnModuleTeardown counts a teardown and the instances it released.
func (m *ContainerMetrics) OnModuleTeardown(e di.TeardownEvent) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String(AttrModule, e.Module),
		attribute.String(AttrStatus, statusOf(e.Err)),
	)
	m.teardownTotal.Add(ctx, 1, attrs)
	m.releasedTotal.Add(ctx, int64(e.Released), metric.WithAttributes(attribute.String(AttrModule, e.Module)))
}

func statusOf(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
