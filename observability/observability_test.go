package observability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/modkit/di"
	"github.com/kbukum/modkit/logger"
)

func TestDefaultTracerConfig(t *testing.T) {
	cfg := DefaultTracerConfig("my-service")
	if cfg.ServiceName != "my-service" {
		t.Errorf("expected ServiceName 'my-service', got %q", cfg.ServiceName)
	}
	if cfg.Endpoint != "localhost:4318" || !cfg.Insecure || cfg.SampleRate != 1.0 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestDefaultMeterConfig(t *testing.T) {
	cfg := DefaultMeterConfig("my-service")
	if cfg.Interval != 15*time.Second {
		t.Errorf("expected 15s interval, got %v", cfg.Interval)
	}
}

func TestSamplerFor(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
	}
	for _, tc := range tests {
		if got := samplerFor(tc.rate).Description(); got != tc.want {
			t.Errorf("samplerFor(%v) = %q, want %q", tc.rate, got, tc.want)
		}
	}
	if got := samplerFor(0.5).Description(); got == "AlwaysOnSampler" || got == "AlwaysOffSampler" {
		t.Errorf("expected ratio sampler, got %q", got)
	}
}

func TestNewResource(t *testing.T) {
	res, err := newResource("svc", "1.2.3", "staging")
	if err != nil {
		t.Fatalf("newResource failed: %v", err)
	}
	v, ok := res.Set().Value("service.name")
	if !ok || v.AsString() != "svc" {
		t.Errorf("expected service.name=svc, got %v", v)
	}
}

func TestStartSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartSpan(context.Background(), SpanModule)
	span.End()

	ended := sr.Ended()
	if len(ended) != 1 || ended[0].Name() != SpanModule {
		t.Fatalf("expected one %s span, got %d", SpanModule, len(ended))
	}
	if ended[0].InstrumentationScope().Name != InstrumentationName {
		t.Errorf("unexpected instrumentation scope %q", ended[0].InstrumentationScope().Name)
	}
}

func TestNewContainerMetricsNoop(t *testing.T) {
	m, err := NewContainerMetrics(noop.NewMeterProvider().Meter("test"), (&Providers{}).Tracer())
	if err != nil {
		t.Fatalf("NewContainerMetrics failed: %v", err)
	}
	m.OnResolve(di.ResolveEvent{Key: "x"})
	m.OnConstruct(di.ConstructEvent{Key: "x", Err: fmt.Errorf("boom")})
	m.OnOverride(di.OverrideEvent{Key: "x"})
	m.OnModuleTeardown(di.TeardownEvent{Module: "m", Released: 2})
}

type harness struct {
	reader *sdkmetric.ManualReader
	spans  *tracetest.SpanRecorder
	c      di.Container
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	m, err := NewContainerMetrics(mp.Meter("test"), tp.Tracer("test"))
	if err != nil {
		t.Fatalf("NewContainerMetrics failed: %v", err)
	}
	c := di.NewContainer(di.WithLogger(logger.Nop()), di.WithObserver(m))
	t.Cleanup(func() { _ = c.Close(context.Background()) })
	return &harness{reader: reader, spans: sr, c: c}
}

func withAttr(key, value string) func(attribute.Set) bool {
	return func(s attribute.Set) bool {
		v, ok := s.Value(attribute.Key(key))
		return ok && v.AsString() == value
	}
}

func (h *harness) sum(t *testing.T, name string, match func(attribute.Set) bool) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			data, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("%s is not an int64 sum", name)
			}
			for _, dp := range data.DataPoints {
				if match == nil || match(dp.Attributes) {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func (h *harness) histogramCount(t *testing.T, name string) uint64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	var count uint64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if data, ok := m.Data.(metricdata.Histogram[float64]); ok && m.Name == name {
				for _, dp := range data.DataPoints {
					count += dp.Count
				}
			}
		}
	}
	return count
}

func TestContainerMetricsResolve(t *testing.T) {
	h := newHarness(t)
	_ = h.c.Register("network", di.ScopeService, func(di.Resolver) (any, error) { return "net", nil })

	_, _ = h.c.Resolve("network")
	_, _ = h.c.Resolve("network")
	_, _ = h.c.Resolve("missing")

	if got := h.sum(t, MetricResolveTotal, withAttr(AttrResult, "miss")); got != 1 {
		t.Errorf("expected 1 miss, got %d", got)
	}
	if got := h.sum(t, MetricResolveTotal, withAttr(AttrResult, "hit")); got != 1 {
		t.Errorf("expected 1 hit, got %d", got)
	}
	if got := h.sum(t, MetricResolveTotal, withAttr(AttrScope, "none")); got != 1 {
		t.Errorf("expected 1 unregistered resolution, got %d", got)
	}
	if got := h.sum(t, MetricConstructTotal, withAttr(AttrStatus, "ok")); got != 1 {
		t.Errorf("expected 1 construction, got %d", got)
	}
	if got := h.histogramCount(t, MetricConstructDuration); got != 1 {
		t.Errorf("expected 1 duration sample, got %d", got)
	}
}

func TestContainerMetricsConstructSpan(t *testing.T) {
	h := newHarness(t)
	_ = h.c.Register("settings.screen", di.ScopeModule, func(di.Resolver) (any, error) {
		return nil, fmt.Errorf("no display")
	}, di.InModule("settings"))

	if _, err := h.c.Resolve("settings.screen"); err == nil {
		t.Fatal("expected construction error")
	}

	ended := h.spans.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	span := ended[0]
	if span.Name() != SpanConstruct {
		t.Errorf("expected %s span, got %q", SpanConstruct, span.Name())
	}
	if span.Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", span.Status().Code)
	}
	attrs := attribute.NewSet(span.Attributes()...)
	if !withAttr(AttrModule, "settings")(attrs) || !withAttr(AttrCapability, "settings.screen")(attrs) {
		t.Errorf("unexpected span attributes: %v", span.Attributes())
	}
	if got := h.sum(t, MetricConstructTotal, withAttr(AttrStatus, "error")); got != 1 {
		t.Errorf("expected 1 failed construction, got %d", got)
	}
}

func TestContainerMetricsOverrideAndTeardown(t *testing.T) {
	h := newHarness(t)
	factory := func(di.Resolver) (any, error) { return struct{}{}, nil }
	_ = h.c.Register("settings.screen", di.ScopeModule, factory, di.InModule("settings"))
	_ = h.c.Register("settings.screen", di.ScopeModule, factory, di.InModule("settings"))
	_, _ = h.c.Resolve("settings.screen")
	_ = h.c.UnregisterModule("settings")

	if got := h.sum(t, MetricOverrideTotal, nil); got != 1 {
		t.Errorf("expected 1 override, got %d", got)
	}
	if got := h.sum(t, MetricTeardownTotal, withAttr(AttrModule, "settings")); got != 1 {
		t.Errorf("expected 1 teardown, got %d", got)
	}
	if got := h.sum(t, MetricReleasedTotal, nil); got != 1 {
		t.Errorf("expected 1 released instance, got %d", got)
	}
}

func TestSetupDisabled(t *testing.T) {
	p, err := Setup(context.Background(), Settings{Enabled: false})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if p.Enabled() {
		t.Error("expected disabled providers")
	}
	if p.Tracer() == nil || p.Meter() == nil {
		t.Error("expected no-op tracer and meter")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("expected no-op shutdown, got %v", err)
	}
}

func TestSetupEnabled(t *testing.T) {
	prevTP, prevMP := otel.GetTracerProvider(), otel.GetMeterProvider()
	t.Cleanup(func() {
		otel.SetTracerProvider(prevTP)
		otel.SetMeterProvider(prevMP)
	})

	p, err := Setup(context.Background(), Settings{
		Enabled: true,
		Tracer:  DefaultTracerConfig("svc"),
		Meter:   DefaultMeterConfig("svc"),
	})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if !p.Enabled() || p.TracerProvider == nil || p.MeterProvider == nil {
		t.Fatal("expected both providers")
	}

	// No collector is listening; only make sure shutdown returns.
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = p.Shutdown(ctx)
}

func TestNilProviders(t *testing.T) {
	var p *Providers
	if p.Enabled() || p.Tracer() == nil || p.Meter() == nil || p.Shutdown(context.Background()) != nil {
		t.Error("expected nil providers to behave as disabled")
	}
}

func TestAppHealth(t *testing.T) {
	h := NewAppHealth("modkit-demo", "1.0.0", "cid")
	if !h.Healthy() || h.Status != HealthStatusUp {
		t.Fatal("expected initial status up")
	}

	h.Add(Health{Name: "network", Status: HealthStatusUp})
	h.Add(Health{Name: "settings", Status: HealthStatusDegraded})
	if h.Status != HealthStatusDegraded || !h.Healthy() {
		t.Errorf("expected degraded, got %s", h.Status)
	}

	h.Add(Health{Name: "storage", Status: HealthStatusDown})
	h.Add(Health{Name: "cache", Status: HealthStatusDegraded})
	if h.Status != HealthStatusDown || h.Healthy() {
		t.Errorf("expected down to stick, got %s", h.Status)
	}
	if len(h.Modules) != 4 {
		t.Errorf("expected 4 modules, got %d", len(h.Modules))
	}
}
