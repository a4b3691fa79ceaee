// Package observability wires OpenTelemetry tracing and metrics into modkit.
//
// Setup creates OTLP/HTTP trace and metric exporters when telemetry is
// enabled. ContainerMetrics is a di.Observer that counts resolutions,
// constructions, overrides and module teardowns, and records each factory
// run as a "di.construct" span.
//
//	providers, err := observability.Setup(ctx, settings)
//	metrics, err := observability.NewContainerMetrics(providers.Meter(), providers.Tracer())
//	c := di.NewContainer(di.WithObserver(metrics))
//	defer providers.Shutdown(ctx)
//
// AppHealth aggregates per-module Health reports for the inspect endpoint.
package observability
