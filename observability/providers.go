package observability

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Settings selects what Setup initializes.
type Settings struct {
	Enabled bool
	Tracer  TracerConfig
	Meter   MeterConfig
}

// Providers holds the telemetry providers created by Setup. When telemetry
// is disabled both providers are nil and the no-op tracer and meter are
// handed out.
type Providers struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
}

// Setup initializes tracing and metrics export. With Enabled false nothing
// is exported and no network clients are created.
func Setup(ctx context.Context, s Settings) (*Providers, error) {
	p := &Providers{}
	if !s.Enabled {
		return p, nil
	}

	tp, err := InitTracer(ctx, &s.Tracer)
	if err != nil {
		return nil, err
	}
	p.TracerProvider = tp

	mp, err := InitMeter(ctx, &s.Meter)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}
	p.MeterProvider = mp
	return p, nil
}

// Tracer returns the modkit tracer.
func (p *Providers) Tracer() trace.Tracer {
	if p == nil || p.TracerProvider == nil {
		return tracenoop.NewTracerProvider().Tracer(InstrumentationName)
	}
	return p.TracerProvider.Tracer(InstrumentationName)
}

// Meter returns the modkit meter.
func (p *Providers) Meter() metric.Meter {
	if p == nil || p.MeterProvider == nil {
		return metricnoop.NewMeterProvider().Meter(InstrumentationName)
	}
	return p.MeterProvider.Meter(InstrumentationName)
}

// Enabled reports whether telemetry is being exported.
func (p *Providers) Enabled() bool {
	return p != nil && (p.TracerProvider != nil || p.MeterProvider != nil)
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.TracerProvider != nil {
		errs = append(errs, p.TracerProvider.Shutdown(ctx))
	}
	if p.MeterProvider != nil {
		errs = append(errs, p.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
