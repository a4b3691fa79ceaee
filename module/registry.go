package module

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/kbukum/modkit/di"
	apperrors "github.com/kbukum/modkit/errors"
	"github.com/kbukum/modkit/logger"
	"github.com/kbukum/modkit/observability"
	"github.com/kbukum/modkit/validation"
)

const defaultStopTimeout = 10 * time.Second

type entry struct {
	module    Module
	status    Status
	registrar *scopedRegistrar
	err       error
}

// Registry drives module lifecycle against a container. Modules register
// and start in the order they were added and stop in reverse order.
type Registry struct {
	container   di.Container
	log         *logger.Logger
	stopTimeout time.Duration

	mu      sync.Mutex
	entries []*entry
	lookup  map[string]*entry
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the registry logger.
func WithRegistryLogger(l *logger.Logger) RegistryOption {
	return func(r *Registry) { r.log = l }
}

// WithStopTimeout bounds each module's Stop call.
func WithStopTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) { r.stopTimeout = d }
}

// NewRegistry creates a registry for modules of container c.
func NewRegistry(c di.Container, opts ...RegistryOption) *Registry {
	r := &Registry{
		container:   c,
		stopTimeout: defaultStopTimeout,
		lookup:      make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.WithComponent("module")
	}
	return r
}

// Add queues a module. Names must be unique identifiers.
func (r *Registry) Add(m Module) error {
	name := m.Name()
	if err := validation.New().Identifier("module.name", name).MaxLength("module.name", name, 64).Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.lookup[name]; exists {
		return apperrors.Validation(fmt.Sprintf("module %s already added", name)).
			WithDetail(logger.FieldModule, name)
	}

	e := &entry{module: m, status: StatusPending}
	r.entries = append(r.entries, e)
	r.lookup[name] = e

	r.log.Debug("module added", logger.Fields(logger.FieldModule, name))
	return nil
}

// RegisterAll calls Register on every pending module. It stops at the first
// failure.
func (r *Registry) RegisterAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.status != StatusPending {
			continue
		}
		name := e.module.Name()
		e.registrar = &scopedRegistrar{inner: r.container, module: name}

		if err := e.module.Register(ctx, e.registrar); err != nil {
			e.status, e.err = StatusFailed, err
			r.log.WithError(err).Error("module registration failed", logger.Fields(logger.FieldModule, name))
			return fmt.Errorf("failed to register module %s: %w", name, err)
		}
		e.status = StatusRegistered
		r.log.Debug("module registered", logger.Fields(
			logger.FieldModule, name,
			logger.FieldCount, len(e.registrar.registered()),
		))
	}
	return nil
}

// StartAll starts every registered module in order. Modules without a
// Start method are marked started directly.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := 0
	for _, e := range r.entries {
		if e.status != StatusRegistered {
			continue
		}
		if err := r.start(ctx, e); err != nil {
			return err
		}
		started++
	}
	r.log.Info("modules started", logger.Fields(logger.FieldCount, started))
	return nil
}

// Start starts one registered or previously stopped module.
func (r *Registry) Start(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.lookup[name]
	if !ok {
		return apperrors.Validation(fmt.Sprintf("module %s not found", name)).
			WithDetail(logger.FieldModule, name)
	}
	if e.status != StatusRegistered && e.status != StatusStopped {
		return apperrors.Validation(fmt.Sprintf("module %s is %s", name, e.status)).
			WithDetail(logger.FieldStatus, string(e.status))
	}
	return r.start(ctx, e)
}

func (r *Registry) start(ctx context.Context, e *entry) error {
	name := e.module.Name()
	s, ok := e.module.(Starter)
	if !ok {
		e.status, e.err = StatusStarted, nil
		return nil
	}

	ctx, span := observability.StartSpan(ctx, observability.SpanModule)
	span.SetAttributes(attribute.String(observability.AttrModule, name))
	defer span.End()

	begin := time.Now()
	if err := s.Start(ctx, r.container); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.status, e.err = StatusFailed, err
		r.log.WithError(err).Error("module start failed", logger.Fields(logger.FieldModule, name))
		return fmt.Errorf("failed to start module %s: %w", name, err)
	}
	e.status, e.err = StatusStarted, nil

	fields := logger.DurationFields("start", time.Since(begin))
	fields[logger.FieldModule] = name
	r.log.Debug("module started", fields)
	return nil
}

// Stop stops one started module and drops its module-scoped instances.
// Its registrations stay in the container, so later resolutions build
// fresh instances.
func (r *Registry) Stop(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.lookup[name]
	if !ok {
		return apperrors.Validation(fmt.Sprintf("module %s not found", name)).
			WithDetail(logger.FieldModule, name)
	}
	return r.stop(ctx, e)
}

// StopAll stops started modules in reverse order and returns every error.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.entries) - 1; i >= 0; i-- {
		if err := r.stop(ctx, r.entries[i]); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	r.log.Info("modules stopped")
	return nil
}

func (r *Registry) stop(ctx context.Context, e *entry) error {
	if e.status != StatusStarted {
		return nil
	}
	name := e.module.Name()

	var errs []error
	if s, ok := e.module.(Stopper); ok {
		stopCtx, cancel := context.WithTimeout(ctx, r.stopTimeout)
		if err := s.Stop(stopCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop module %s: %w", name, err))
		}
		cancel()
	}
	if err := r.container.UnregisterModule(name); err != nil {
		errs = append(errs, fmt.Errorf("failed to release module %s: %w", name, err))
	}
	e.status = StatusStopped

	err := errors.Join(errs...)
	if err != nil {
		e.err = err
		r.log.WithError(err).Error("module stop failed", logger.Fields(logger.FieldModule, name))
	} else {
		r.log.Info("module stopped", logger.Fields(logger.FieldModule, name))
	}
	return err
}

// Get returns a module by name, or nil if not found.
func (r *Registry) Get(name string) Module {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.lookup[name]; ok {
		return e.module
	}
	return nil
}

// Status returns the lifecycle state of a module.
func (r *Registry) Status(name string) (Status, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.lookup[name]; ok {
		return e.status, true
	}
	return "", false
}

// Infos returns a snapshot of every module in order.
func (r *Registry) Infos() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Info, 0, len(r.entries))
	for _, e := range r.entries {
		info := Info{
			Name:        e.module.Name(),
			Status:      e.status,
			Description: describe(e.module),
		}
		if e.registrar != nil {
			info.Capabilities = e.registrar.registered()
		}
		if e.err != nil {
			info.Error = e.err.Error()
		}
		out = append(out, info)
	}
	return out
}

// Health reports every module. Started modules implementing
// observability.HealthChecker report for themselves; otherwise the status
// follows the lifecycle state.
func (r *Registry) Health(ctx context.Context) []observability.Health {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]observability.Health, 0, len(r.entries))
	for _, e := range r.entries {
		name := e.module.Name()
		if hc, ok := e.module.(observability.HealthChecker); ok && e.status == StatusStarted {
			h := hc.CheckHealth(ctx)
			if h.Name == "" {
				h.Name = name
			}
			out = append(out, h)
			continue
		}
		h := observability.Health{Name: name, Message: string(e.status)}
		switch e.status {
		case StatusStarted:
			h.Status = observability.HealthStatusUp
		case StatusFailed:
			h.Status = observability.HealthStatusDown
			if e.err != nil {
				h.Message = e.err.Error()
			}
		default:
			h.Status = observability.HealthStatusDegraded
		}
		out = append(out, h)
	}
	return out
}

func describe(m Module) Description {
	var d Description
	if dm, ok := m.(Describable); ok {
		d = dm.Describe()
	}
	if d.Name == "" {
		d.Name = m.Name()
	}
	return d
}
