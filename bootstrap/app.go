package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/kbukum/modkit/config"
	"github.com/kbukum/modkit/di"
	"github.com/kbukum/modkit/inspect"
	"github.com/kbukum/modkit/logger"
	"github.com/kbukum/modkit/module"
	"github.com/kbukum/modkit/observability"
	"github.com/kbukum/modkit/version"
)

const defaultGracefulTimeout = 15 * time.Second

// App is the composition root of a modkit application. It owns the
// container, the module registry and the telemetry providers, and drives
// them through one lifecycle. C is the typed config.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.AddModule(network.Module())
//	app.OnConfigure(func(ctx context.Context, a *bootstrap.App[*DemoConfig]) error {
//	    // a.Cfg is *DemoConfig
//	    return nil
//	})
//	app.Run(context.Background())
type App[C Config] struct {
	Name      string
	Version   string
	Cfg       C
	Container di.Container
	Modules   *module.Registry
	Logger    *logger.Logger
	Telemetry *observability.Providers
	Summary   *Summary

	inspect         *inspect.Server
	gracefulTimeout time.Duration
	onConfigure     []func(ctx context.Context, app *App[C]) error

	onStart []Hook
	onReady []Hook
	onStop  []Hook

	stopOnce sync.Once
	stopErr  error
}

// LoadApp loads cfg from the application's config and env files, then
// builds the App from it.
func LoadApp[C Config](appName string, cfg C, loaderOpts []config.LoaderOption, opts ...Option) (*App[C], error) {
	if err := config.LoadConfig(appName, cfg, loaderOpts...); err != nil {
		return nil, err
	}
	return NewApp(cfg, opts...)
}

// NewApp creates an application from a typed config. It applies defaults,
// validates the config, initializes the logger and telemetry, and builds
// the container with the base capabilities registered.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	base := cfg.GetServiceConfig()
	o := resolveOptions(opts)

	if base.Version == "" {
		base.Version = version.Get().Short()
	}

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		gracefulTimeout: defaultGracefulTimeout,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}

	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(&base.Logging)
		app.Logger = logger.GetGlobalLogger()
	}

	telemetry := o.telemetry
	if telemetry == nil {
		p, err := observability.Setup(context.Background(), telemetrySettings(base))
		if err != nil {
			return nil, fmt.Errorf("telemetry setup: %w", err)
		}
		telemetry = p
	}
	app.Telemetry = telemetry

	diOpts := []di.Option{
		di.WithID(base.Container.ID),
		di.WithLogger(app.Logger.WithComponent("di")),
		di.WarnOnOverride(base.WarnOnOverride()),
	}
	if telemetry.Enabled() {
		metrics, err := observability.NewContainerMetrics(telemetry.Meter(), telemetry.Tracer())
		if err != nil {
			_ = telemetry.Shutdown(context.Background())
			return nil, fmt.Errorf("container metrics: %w", err)
		}
		diOpts = append(diOpts, di.WithObserver(metrics))
	}
	app.Container = di.NewContainer(append(diOpts, o.containerOpts...)...)

	if err := registerBase(app.Container, cfg, app.Logger); err != nil {
		app.discard()
		return nil, err
	}

	app.Modules = module.NewRegistry(app.Container,
		module.WithRegistryLogger(app.Logger.WithComponent("module")),
	)

	if base.Inspect.Enabled {
		app.inspect = inspect.NewServer(base.Inspect.Addr, inspect.NewHandler(app.Container, app.Health), app.Logger)
	}

	app.Summary = NewSummary(base.Name, base.Version, o.summaryOut)
	return app, nil
}

// registerBase binds the capabilities every application provides.
func registerBase(r di.Registrar, cfg any, log *logger.Logger) error {
	if err := r.RegisterInstance(di.Base.Config, cfg); err != nil {
		return fmt.Errorf("register config: %w", err)
	}
	if err := r.RegisterInstance(di.Base.Logger, log); err != nil {
		return fmt.Errorf("register logger: %w", err)
	}
	return nil
}

// discard releases the container and telemetry of an app that could not be
// built.
func (a *App[C]) discard() {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()
	if err := a.Container.Close(ctx); err != nil {
		a.Logger.WithError(err).Warn("closing container failed")
	}
	if err := a.Telemetry.Shutdown(ctx); err != nil {
		a.Logger.WithError(err).Warn("telemetry shutdown failed")
	}
}

func telemetrySettings(base *config.ServiceConfig) observability.Settings {
	obs := base.Observability
	return observability.Settings{
		Enabled: obs.Enabled,
		Tracer: observability.TracerConfig{
			ServiceName:    base.Name,
			ServiceVersion: base.Version,
			Environment:    base.Environment,
			Endpoint:       obs.Endpoint,
			Insecure:       obs.Insecure,
			SampleRate:     obs.SampleRate,
		},
		Meter: observability.MeterConfig{
			ServiceName:    base.Name,
			ServiceVersion: base.Version,
			Environment:    base.Environment,
			Endpoint:       obs.Endpoint,
			Insecure:       obs.Insecure,
			Interval:       obs.Interval,
		},
	}
}

// AddModule queues a module. Modules register and start in the order they
// were added.
func (a *App[C]) AddModule(m module.Module) error {
	return a.Modules.Add(m)
}

// OnConfigure registers a callback that runs after modules have started.
// Use it to wire application code that resolves module capabilities.
func (a *App[C]) OnConfigure(fn func(ctx context.Context, app *App[C]) error) {
	a.onConfigure = append(a.onConfigure, fn)
}

// InspectAddr returns the inspect server address, or "" when disabled.
func (a *App[C]) InspectAddr() string {
	if a.inspect == nil {
		return ""
	}
	return a.inspect.Addr()
}

// Health aggregates module health into an application report.
func (a *App[C]) Health(ctx context.Context) *observability.AppHealth {
	report := observability.NewAppHealth(a.Name, a.Version, a.Container.ID())
	for _, h := range a.Modules.Health(ctx) {
		report.Add(h)
	}
	return report
}

// ReadyCheck verifies that every module reports up.
func (a *App[C]) ReadyCheck(ctx context.Context) error {
	var issues []string
	for _, h := range a.Health(ctx).Modules {
		if h.Status == observability.HealthStatusUp {
			continue
		}
		detail := h.Name + "=" + string(h.Status)
		if h.Message != "" {
			detail += "(" + h.Message + ")"
		}
		issues = append(issues, detail)
	}
	if len(issues) > 0 {
		return fmt.Errorf("unhealthy modules: %s", strings.Join(issues, ", "))
	}
	return nil
}

// Run executes the full lifecycle for long-running services and blocks
// until a shutdown signal or ctx cancellation.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	a.Logger.Info("Application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)

	return a.stop()
}

// RunTask executes a finite task with the full lifecycle. The task context
// is canceled on SIGINT/SIGTERM, and the app shuts down when the task
// returns.
//
//	app.RunTask(ctx, func(ctx context.Context) error {
//	    screens, err := di.Resolve(app.Container, settings.ScreenFactoryKey)
//	    ...
//	})
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return err
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("Received signal, canceling task", map[string]interface{}{
				"signal": sig.String(),
			})
			cancel()
		case <-taskCtx.Done():
		}
	}()

	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

// startup performs the sequence shared by Run and RunTask. A failure
// tears down whatever already started.
func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()

	a.Logger.Info("Starting application", logger.Fields(
		"name", a.Name,
		"version", a.Version,
		logger.FieldContainerID, a.Container.ID(),
	))

	if err := a.initialize(ctx); err != nil {
		return a.abort(fmt.Errorf("initialization failed: %w", err))
	}

	if err := runHooks(ctx, a.onStart); err != nil {
		return a.abort(fmt.Errorf("onStart hook failed: %w", err))
	}

	if err := a.configure(ctx); err != nil {
		return a.abort(fmt.Errorf("configuration failed: %w", err))
	}

	if a.inspect != nil {
		if err := a.inspect.Start(ctx); err != nil {
			return a.abort(err)
		}
	}

	if err := a.ReadyCheck(ctx); err != nil {
		a.Logger.Warn("Ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}

	if err := runHooks(ctx, a.onReady); err != nil {
		return a.abort(fmt.Errorf("onReady hook failed: %w", err))
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.DisplaySummary()
	return nil
}

func (a *App[C]) abort(err error) error {
	a.Logger.WithError(err).Error("Startup failed, shutting down")
	if stopErr := a.stop(); stopErr != nil {
		a.Logger.WithError(stopErr).Warn("Shutdown after failed startup reported errors")
	}
	return err
}

// initialize registers every module's capabilities, then starts them.
func (a *App[C]) initialize(ctx context.Context) error {
	a.Logger.Info("Phase 1: Registering modules")
	if err := a.Modules.RegisterAll(ctx); err != nil {
		return err
	}

	a.Logger.Info("Phase 1: Starting modules")
	if err := a.Modules.StartAll(ctx); err != nil {
		return err
	}
	return nil
}

// configure runs registered configuration callbacks.
func (a *App[C]) configure(ctx context.Context) error {
	if len(a.onConfigure) == 0 {
		return nil
	}

	a.Logger.Info("Phase 2: Running configuration callbacks", logger.Fields(logger.FieldCount, len(a.onConfigure)))
	for _, fn := range a.onConfigure {
		if err := fn(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// DisplaySummary prints the startup summary from the live registry and
// container.
func (a *App[C]) DisplaySummary() {
	a.Summary.Render(a.Container.ID(), a.Modules.Infos(), a.Container.Registrations(), a.Modules.Health(context.Background()))
}

// WaitForSignal blocks until SIGINT/SIGTERM or ctx cancellation.
func (a *App[C]) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal", map[string]interface{}{
			"signal": sig.String(),
		})
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Shutdown performs graceful shutdown. Use when managing your own
// lifecycle. Safe to call more than once.
func (a *App[C]) Shutdown(ctx context.Context) error {
	return a.stop()
}

// stop runs stop hooks, stops modules in reverse order, stops the inspect
// server, closes the container and flushes telemetry, all within the
// graceful timeout. Only the first call does any work.
func (a *App[C]) stop() error {
	a.stopOnce.Do(func() {
		a.Logger.Info("Shutting down application", map[string]interface{}{
			"timeout": a.gracefulTimeout.String(),
		})

		ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
		defer cancel()

		var errs []error
		record := func(msg string, err error) {
			if err == nil {
				return
			}
			a.Logger.WithError(err).Error(msg)
			errs = append(errs, err)
		}

		record("OnStop hook error", runHooks(ctx, a.onStop))
		record("Module shutdown completed with errors", a.Modules.StopAll(ctx))
		if a.inspect != nil {
			record("Inspect server stop error", a.inspect.Stop(ctx))
		}
		record("Container close error", a.Container.Close(ctx))
		record("Telemetry shutdown error", a.Telemetry.Shutdown(ctx))

		a.stopErr = errors.Join(errs...)
		a.Logger.Info("Application shutdown complete")
	})
	return a.stopErr
}
