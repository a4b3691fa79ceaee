package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/kbukum/modkit/config"
	"github.com/kbukum/modkit/di"
	apperrors "github.com/kbukum/modkit/errors"
	"github.com/kbukum/modkit/logger"
	"github.com/kbukum/modkit/module"
	"github.com/kbukum/modkit/observability"
	"github.com/kbukum/modkit/version"
)

// testConfig is a minimal config for testing that satisfies the Config interface.
type testConfig struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`
	Greeting             string `yaml:"greeting" mapstructure:"greeting"`
}

func newTestConfig(name, version string) *testConfig {
	return &testConfig{
		ServiceConfig: config.ServiceConfig{
			Name:        name,
			Version:     version,
			Environment: "development",
		},
	}
}

func newTestApp(t *testing.T, opts ...Option) *App[*testConfig] {
	t.Helper()
	opts = append([]Option{WithLogger(logger.Nop()), WithSummaryOutput(&bytes.Buffer{})}, opts...)
	app, err := NewApp(newTestConfig("test-svc", "1.0.0"), opts...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app
}

// recorder collects lifecycle events in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return strings.Join(r.events, ",")
}

func (r *recorder) hook(e string) Hook {
	return func(context.Context) error {
		r.add(e)
		return nil
	}
}

type closer struct {
	closed bool
}

func (c *closer) Close() error {
	c.closed = true
	return nil
}

// trackedModule registers one module-scoped closer under "<name>.thing".
func trackedModule(name string, rec *recorder) *module.FuncModule {
	return module.New(name, func(_ context.Context, r di.Registrar) error {
		return r.Register(di.Key(name+".thing"), di.ScopeModule, func(di.Resolver) (any, error) {
			return &closer{}, nil
		})
	}).WithStart(func(context.Context, di.Resolver) error {
		rec.add("start:" + name)
		return nil
	}).WithStop(func(context.Context) error {
		rec.add("stop:" + name)
		return nil
	})
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)
	defer app.Shutdown(context.Background())

	if app.Name != "test-svc" || app.Version != "1.0.0" {
		t.Errorf("unexpected name/version: %q %q", app.Name, app.Version)
	}
	if app.Cfg.Name != "test-svc" {
		t.Errorf("expected typed config, got %q", app.Cfg.Name)
	}
	if app.Container == nil || app.Modules == nil || app.Summary == nil {
		t.Fatal("expected container, module registry and summary")
	}
	if app.Telemetry.Enabled() {
		t.Error("telemetry should be disabled by default")
	}
	if app.InspectAddr() != "" {
		t.Error("inspect server should be disabled by default")
	}
}

func TestNewAppRegistersBaseCapabilities(t *testing.T) {
	log := logger.Nop()
	app, err := NewApp(newTestConfig("test-svc", "1.0.0"), WithLogger(log))
	if err != nil {
		t.Fatal(err)
	}
	defer app.Shutdown(context.Background())

	cfg, err := app.Container.Resolve(di.Base.Config)
	if err != nil {
		t.Fatalf("resolving config: %v", err)
	}
	if cfg != app.Cfg {
		t.Error("expected the app config instance")
	}

	l, err := app.Container.Resolve(di.Base.Logger)
	if err != nil {
		t.Fatalf("resolving logger: %v", err)
	}
	if l != log {
		t.Error("expected the app logger instance")
	}

	info, ok := app.Container.Lookup(di.Base.Logger)
	if !ok || info.Scope != di.ScopeInstance {
		t.Errorf("expected instance binding, got %+v", info)
	}
}

func TestNewAppReleasesResourcesOnFailure(t *testing.T) {
	saved := di.Base
	di.Base.Logger = ""
	t.Cleanup(func() { di.Base = saved })

	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "info", Format: "json"}, "test", &buf)
	reader := sdkmetric.NewManualReader()
	providers := &observability.Providers{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}

	app, err := NewApp(newTestConfig("test-svc", "1.0.0"),
		WithLogger(log), WithTelemetry(providers), WithSummaryOutput(&bytes.Buffer{}))
	if err == nil {
		_ = app.Shutdown(context.Background())
		t.Fatal("expected base registration to fail")
	}
	if !errors.Is(err, apperrors.ErrInvalidRegistration) {
		t.Errorf("expected INVALID_REGISTRATION, got %v", err)
	}
	if !strings.Contains(buf.String(), "container closed") {
		t.Errorf("expected the container to be closed, log: %q", buf.String())
	}
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err == nil {
		t.Error("expected telemetry to be shut down")
	}
}

func TestNewAppDefaultsVersionFromBuild(t *testing.T) {
	app, err := NewApp(newTestConfig("test-svc", ""), WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	defer app.Shutdown(context.Background())

	if want := version.Get().Short(); app.Version != want {
		t.Errorf("expected build version %q, got %q", want, app.Version)
	}
}

func TestNewAppValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  *testConfig
	}{
		{"missing name", newTestConfig("", "1.0.0")},
		{"bad name", newTestConfig("Bad Name", "1.0.0")},
		{"bad environment", &testConfig{ServiceConfig: config.ServiceConfig{Name: "svc", Environment: "qa"}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewApp(tc.cfg, WithLogger(logger.Nop())); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestNewAppContainerID(t *testing.T) {
	cfg := newTestConfig("test-svc", "1.0.0")
	cfg.Container.ID = "7f1d3a52-2c8e-4a8b-9a51-2b7c1f0e9d11"

	app, err := NewApp(cfg, WithLogger(logger.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	defer app.Shutdown(context.Background())

	if app.Container.ID() != cfg.Container.ID {
		t.Errorf("expected configured id, got %s", app.Container.ID())
	}
}

func TestOverrideWarningFollowsConfig(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		override    *bool
		wantWarn    bool
	}{
		{"development default", "development", nil, true},
		{"production default", "production", nil, false},
		{"forced on", "production", boolPtr(true), true},
		{"forced off", "development", boolPtr(false), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := newTestConfig("test-svc", "1.0.0")
			cfg.Environment = tc.environment
			cfg.Container.WarnOnOverride = tc.override

			var buf bytes.Buffer
			log := logger.NewWithWriter(&logger.Config{Level: "warn", Format: "json"}, "test", &buf)
			app, err := NewApp(cfg, WithLogger(log))
			if err != nil {
				t.Fatal(err)
			}
			defer app.Shutdown(context.Background())

			factory := func(di.Resolver) (any, error) { return 1, nil }
			_ = app.Container.Register("network.service", di.ScopeService, factory)
			_ = app.Container.Register("network.service", di.ScopeService, factory)

			warned := strings.Contains(buf.String(), "capability registration overridden")
			if warned != tc.wantWarn {
				t.Errorf("warned = %v, want %v (log: %q)", warned, tc.wantWarn, buf.String())
			}
		})
	}
}

func boolPtr(b bool) *bool { return &b }

func TestLifecycleOrder(t *testing.T) {
	rec := &recorder{}
	app := newTestApp(t)
	app.OnStart(rec.hook("onStart"))
	app.OnReady(rec.hook("onReady"))
	app.OnStop(rec.hook("onStop"))
	app.OnConfigure(func(context.Context, *App[*testConfig]) error {
		rec.add("configure")
		return nil
	})

	if err := app.AddModule(trackedModule("network", rec)); err != nil {
		t.Fatal(err)
	}
	if err := app.AddModule(trackedModule("settings", rec)); err != nil {
		t.Fatal(err)
	}

	err := app.RunTask(context.Background(), func(context.Context) error {
		rec.add("task")
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}

	want := "start:network,start:settings,onStart,configure,onReady,task,onStop,stop:settings,stop:network"
	if got := rec.String(); got != want {
		t.Errorf("lifecycle order\n got: %s\nwant: %s", got, want)
	}
}

func TestAddModuleDuplicate(t *testing.T) {
	app := newTestApp(t)
	defer app.Shutdown(context.Background())

	rec := &recorder{}
	if err := app.AddModule(trackedModule("network", rec)); err != nil {
		t.Fatal(err)
	}
	if err := app.AddModule(trackedModule("network", rec)); err == nil {
		t.Error("expected duplicate module error")
	}
}

func TestOnConfigureResolvesModuleCapabilities(t *testing.T) {
	app := newTestApp(t)
	_ = app.AddModule(trackedModule("settings", &recorder{}))

	var resolved *closer
	app.OnConfigure(func(_ context.Context, a *App[*testConfig]) error {
		v, err := a.Container.Resolve("settings.thing")
		if err != nil {
			return err
		}
		resolved = v.(*closer)
		return nil
	})

	if err := app.RunTask(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}
	if resolved == nil {
		t.Fatal("expected configure to resolve the module capability")
	}
	if !resolved.closed {
		t.Error("expected module teardown to close the instance at shutdown")
	}
}

func TestRunTaskError(t *testing.T) {
	app := newTestApp(t)
	taskErr := errors.New("task failed")

	err := app.RunTask(context.Background(), func(context.Context) error { return taskErr })
	if !errors.Is(err, taskErr) {
		t.Fatalf("expected task error, got %v", err)
	}
	if _, err := app.Container.Resolve(di.Base.Config); !errors.Is(err, apperrors.ErrContainerClosed) {
		t.Errorf("expected container closed after RunTask, got %v", err)
	}
}

func TestRunTaskCancellation(t *testing.T) {
	app := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := app.RunTask(ctx, func(ctx context.Context) error {
		cancel()
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestRunReturnsOnContextCancel(t *testing.T) {
	rec := &recorder{}
	app := newTestApp(t)
	app.OnStop(rec.hook("onStop"))

	ctx, cancel := context.WithCancel(context.Background())
	app.OnReady(func(context.Context) error {
		cancel()
		return nil
	})

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if rec.String() != "onStop" {
		t.Errorf("expected stop hooks to run, got %q", rec.String())
	}
}

func TestStartupFailureTearsDown(t *testing.T) {
	tests := []struct {
		name  string
		setup func(app *App[*testConfig], rec *recorder)
		want  string
	}{
		{"onStart hook", func(app *App[*testConfig], rec *recorder) {
			app.OnStart(func(context.Context) error { return errors.New("boom") })
		}, "onStart hook failed"},
		{"configure", func(app *App[*testConfig], rec *recorder) {
			app.OnConfigure(func(context.Context, *App[*testConfig]) error { return errors.New("boom") })
		}, "configuration failed"},
		{"onReady hook", func(app *App[*testConfig], rec *recorder) {
			app.OnReady(func(context.Context) error { return errors.New("boom") })
		}, "onReady hook failed"},
		{"module start", func(app *App[*testConfig], rec *recorder) {
			_ = app.AddModule(module.New("broken", nil).WithStart(func(context.Context, di.Resolver) error {
				return errors.New("boom")
			}))
		}, "initialization failed"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := &recorder{}
			app := newTestApp(t)
			_ = app.AddModule(trackedModule("network", rec))
			tc.setup(app, rec)

			ran := false
			err := app.RunTask(context.Background(), func(context.Context) error {
				ran = true
				return nil
			})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q error, got %v", tc.want, err)
			}
			if ran {
				t.Error("task must not run after a failed startup")
			}
			if !strings.Contains(rec.String(), "stop:network") {
				t.Errorf("expected started modules to stop, got %q", rec.String())
			}
			if _, err := app.Container.Resolve(di.Base.Config); !errors.Is(err, apperrors.ErrContainerClosed) {
				t.Errorf("expected container closed, got %v", err)
			}
		})
	}
}

func TestShutdownIdempotent(t *testing.T) {
	rec := &recorder{}
	app := newTestApp(t)
	app.OnStop(rec.hook("onStop"))

	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := app.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if rec.String() != "onStop" {
		t.Errorf("expected one stop pass, got %q", rec.String())
	}
}

func TestShutdownCollectsErrors(t *testing.T) {
	app := newTestApp(t)
	hookErr := errors.New("hook failed")
	app.OnStop(func(context.Context) error { return hookErr })

	if err := app.Shutdown(context.Background()); !errors.Is(err, hookErr) {
		t.Errorf("expected hook error, got %v", err)
	}
}

func TestReadyCheck(t *testing.T) {
	app := newTestApp(t)
	defer app.Shutdown(context.Background())

	_ = app.AddModule(module.New("network", nil))
	_ = app.AddModule(module.New("settings", nil).WithHealth(func(context.Context) observability.Health {
		return observability.Health{Status: observability.HealthStatusDegraded, Message: "cache cold"}
	}))

	ctx := context.Background()
	if err := app.Modules.RegisterAll(ctx); err != nil {
		t.Fatal(err)
	}
	if err := app.Modules.StartAll(ctx); err != nil {
		t.Fatal(err)
	}

	err := app.ReadyCheck(ctx)
	if err == nil {
		t.Fatal("expected ready check to report the degraded module")
	}
	if !strings.Contains(err.Error(), "settings=degraded(cache cold)") {
		t.Errorf("unexpected message: %v", err)
	}

	h := app.Health(ctx)
	if h.Status != observability.HealthStatusDegraded || h.ContainerID != app.Container.ID() {
		t.Errorf("unexpected health report: %+v", h)
	}
}

func TestTelemetryObservesContainer(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	providers := &observability.Providers{
		MeterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
	app := newTestApp(t, WithTelemetry(providers))

	if _, err := app.Container.Resolve(di.Base.Config); err != nil {
		t.Fatal(err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name == observability.MetricResolveTotal {
				found = true
			}
		}
	}
	if !found {
		t.Errorf("expected %s to be recorded", observability.MetricResolveTotal)
	}

	if err := app.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInspectServerServesDuringRun(t *testing.T) {
	cfg := newTestConfig("test-svc", "1.0.0")
	cfg.Inspect.Enabled = true
	cfg.Inspect.Addr = "127.0.0.1:0"

	app, err := NewApp(cfg, WithLogger(logger.Nop()), WithSummaryOutput(&bytes.Buffer{}))
	if err != nil {
		t.Fatal(err)
	}
	_ = app.AddModule(trackedModule("network", &recorder{}))

	var status int
	err = app.RunTask(context.Background(), func(context.Context) error {
		resp, err := http.Get("http://" + app.InspectAddr() + "/container/capabilities/network.thing")
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		status = resp.StatusCode
		return nil
	})
	if err != nil {
		t.Fatalf("RunTask failed: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("expected 200 from inspect server, got %d", status)
	}
}

func TestSummaryRender(t *testing.T) {
	var buf bytes.Buffer
	app := newTestApp(t, WithSummaryOutput(&buf))
	_ = app.AddModule(trackedModule("settings", &recorder{}))

	if err := app.RunTask(context.Background(), func(context.Context) error { return nil }); err != nil {
		t.Fatal(err)
	}

	out := buf.String()
	for _, want := range []string{
		"test-svc v1.0.0",
		app.Container.ID(),
		"settings (started) → settings.thing",
		"module   settings.thing [settings]",
		"instance modkit.config",
		"All modules healthy (1/1)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestSummaryNoModules(t *testing.T) {
	var buf bytes.Buffer
	NewSummary("svc", "0.1.0", &buf).Render("id", nil, nil, nil)
	if !strings.Contains(buf.String(), "No modules registered") {
		t.Errorf("unexpected summary: %s", buf.String())
	}
}

func TestLoadApp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	yml := `name: load-test
version: 2.0.0
environment: production
greeting: hello
container:
  warn_on_override: true
`
	if err := os.WriteFile(path, []byte(yml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := &testConfig{}
	app, err := LoadApp("load-test", cfg,
		[]config.LoaderOption{config.WithConfigFile(path), config.WithEnvFile(filepath.Join(dir, ".env"))},
		WithLogger(logger.Nop()),
	)
	if err != nil {
		t.Fatalf("LoadApp failed: %v", err)
	}
	defer app.Shutdown(context.Background())

	if app.Name != "load-test" || app.Version != "2.0.0" {
		t.Errorf("unexpected name/version: %q %q", app.Name, app.Version)
	}
	if app.Cfg.Greeting != "hello" {
		t.Errorf("expected greeting from file, got %q", app.Cfg.Greeting)
	}
	if app.Cfg.Debug {
		t.Error("production config should not enable debug")
	}
	if !app.Cfg.WarnOnOverride() {
		t.Error("expected warn_on_override from file")
	}
}

func TestGracefulTimeout(t *testing.T) {
	app := newTestApp(t, WithGracefulTimeout(3*time.Second))
	defer app.Shutdown(context.Background())
	if app.gracefulTimeout != 3*time.Second {
		t.Errorf("expected 3s, got %v", app.gracefulTimeout)
	}

	def := newTestApp(t)
	defer def.Shutdown(context.Background())
	if def.gracefulTimeout != defaultGracefulTimeout {
		t.Errorf("expected default timeout, got %v", def.gracefulTimeout)
	}
}
