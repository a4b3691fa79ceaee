package di

import (
	"context"
	stderrors "errors"
	"io"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/kbukum/modkit/errors"
	"github.com/kbukum/modkit/logger"
)

// Resolver returns the instance bound to a capability.
type Resolver interface {
	Resolve(key Key) (any, error)
}

// Registrar accepts registrations. Modules receive a Registrar rather than
// the full container.
type Registrar interface {
	// Register stores a factory under (key, scope). Module scope requires
	// InModule. Instance scope is rejected; use RegisterInstance.
	Register(key Key, scope Scope, factory Factory, opts ...RegisterOption) error

	// RegisterInstance binds a pre-built object in instance scope.
	RegisterInstance(key Key, instance any) error
}

// Container is the process-wide capability registry.
type Container interface {
	Resolver
	Registrar

	// ResolveScoped resolves only the registration held under scope.
	ResolveScoped(key Key, scope Scope) (any, error)

	// TryResolve resolves an optional capability. found is false and err is
	// nil when key has no registration. Any other failure is returned.
	TryResolve(key Key) (instance any, found bool, err error)

	// MustResolve resolves key and panics on failure.
	MustResolve(key Key) any

	// UnregisterModule drops the cached instances of every module-scoped
	// registration owned by moduleID. Registrations are kept; the next
	// resolution constructs fresh instances. Unknown ids are a no-op.
	UnregisterModule(moduleID string) error

	// Lookup describes the registration key currently resolves to.
	Lookup(key Key) (RegistrationInfo, bool)

	// Registrations lists every registration. A closed container reports
	// none; use Closed to tell the two apart.
	Registrations() []RegistrationInfo

	// Modules lists every module id that owns module-scoped registrations.
	Modules() []ModuleInfo

	// ID returns the container id.
	ID() string

	// Closed reports whether Close has been called.
	Closed() bool

	// Close releases constructed instances implementing io.Closer, newest
	// first, and stops the container. Later calls fail with ContainerClosed.
	Close(ctx context.Context) error
}

// fastEntry is a published service or instance result.
type fastEntry struct {
	instance any
	scope    Scope
}

type container struct {
	id       string
	log      *logger.Logger
	observer Observer
	warn     bool

	guard  *guard
	closed atomic.Bool

	// fast holds results that may be returned without visiting the
	// executor. Written only on the executor.
	fast sync.Map

	// Executor-confined.
	store    *store
	building map[*construction]struct{}
	seq      uint64
}

// NewContainer creates an empty container.
func NewContainer(opts ...Option) Container {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if o.log == nil {
		o.log = logger.WithComponent("di")
	}

	var obs Observer = NopObserver{}
	if len(o.observers) > 0 {
		obs = o.observers
	}

	c := &container{
		id:       o.id,
		log:      o.log.WithFields(map[string]interface{}{logger.FieldContainerID: o.id}),
		observer: obs,
		warn:     o.warnOnOverride,
		guard:    newGuard(),
		store:    newStore(),
		building: make(map[*construction]struct{}),
	}
	c.log.Debug("container created")
	return c
}

func (c *container) ID() string { return c.id }

func (c *container) Closed() bool { return c.closed.Load() }

// submit runs fn on the executor.
func (c *container) submit(fn func() error) error {
	if c.closed.Load() {
		return errors.ContainerClosed()
	}
	var err error
	if !c.guard.do(func() { err = fn() }) {
		return errors.ContainerClosed()
	}
	return err
}

func (c *container) Register(key Key, scope Scope, factory Factory, opts ...RegisterOption) error {
	ro := &registerOptions{}
	for _, opt := range opts {
		opt(ro)
	}

	switch {
	case key == "":
		return errors.InvalidRegistration("", "empty capability key")
	case factory == nil:
		return errors.InvalidRegistration(string(key), "nil factory")
	case !scope.Valid():
		return errors.InvalidRegistration(string(key), "unknown scope")
	case scope == ScopeInstance:
		return errors.InvalidRegistration(string(key), "instance scope takes a pre-built object, use RegisterInstance")
	case scope == ScopeModule && ro.module == "":
		return errors.InvalidRegistration(string(key), "module scope requires an owning module")
	case scope != ScopeModule && ro.module != "":
		return errors.InvalidRegistration(string(key), "only module-scoped registrations belong to a module").
			WithDetail("scope", scope.String())
	}

	reg := newFactoryRegistration(key, scope, ro.module, factory)
	return c.submit(func() error { return c.put(reg) })
}

func (c *container) RegisterInstance(key Key, instance any) error {
	if key == "" {
		return errors.InvalidRegistration("", "empty capability key")
	}
	if instance == nil {
		return errors.InvalidRegistration(string(key), "nil instance")
	}
	reg := newInstanceRegistration(key, instance)
	return c.submit(func() error { return c.put(reg) })
}

// put stores reg and invalidates whatever the key resolved to before.
// Executor only.
func (c *container) put(reg *registration) error {
	prev := c.store.put(reg)
	c.fast.Delete(reg.key)

	fields := logger.Fields(logger.FieldCapability, string(reg.key), logger.FieldScope, reg.scope.String())
	if reg.module != "" {
		fields[logger.FieldModule] = reg.module
	}

	if prev == nil {
		c.log.Debug("capability registered", fields)
		return nil
	}

	wasCached := prev.owned()
	var err error
	if inst := prev.release(); inst != nil {
		err = closeInstance(inst)
	}
	if c.warn {
		c.log.Warn("capability registration overridden", fields)
	} else {
		c.log.Debug("capability registration overridden", fields)
	}
	c.observer.OnOverride(OverrideEvent{
		Key:        reg.key,
		Scope:      reg.scope,
		WasCached:  wasCached,
		PrevModule: prev.module,
		NewModule:  reg.module,
	})
	if err != nil {
		c.log.WithError(err).Warn("closing replaced instance failed", fields)
	}
	return nil
}

func (c *container) Resolve(key Key) (any, error) {
	if c.closed.Load() {
		return nil, errors.ContainerClosed()
	}
	if v, ok := c.fast.Load(key); ok {
		entry := v.(fastEntry)
		c.observer.OnResolve(ResolveEvent{Key: key, Scope: entry.scope, Found: true, CacheHit: true})
		return entry.instance, nil
	}

	return c.resolve(nil, key, nil)
}

func (c *container) ResolveScoped(key Key, scope Scope) (any, error) {
	if !scope.Valid() {
		return nil, errors.InvalidRegistration(string(key), "unknown scope")
	}
	return c.resolve(nil, key, &scope)
}

func (c *container) TryResolve(key Key) (any, bool, error) {
	instance, err := c.Resolve(key)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeUnregisteredCapability) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return instance, true, nil
}

func (c *container) MustResolve(key Key) any {
	instance, err := c.Resolve(key)
	if err != nil {
		panic(err)
	}
	return instance
}

func (c *container) UnregisterModule(moduleID string) error {
	return c.submit(func() error {
		m, ok := c.store.module(moduleID)
		if !ok {
			c.log.Debug("unregister of unknown module ignored", logger.Fields(logger.FieldModule, moduleID))
			return nil
		}

		released, err := c.releaseAll(c.store.moduleRegistrations(moduleID))
		m.active = false
		m.teardowns++

		fields := logger.Fields(logger.FieldModule, moduleID, logger.FieldCount, released)
		if err != nil {
			c.log.WithError(err).Warn("module torn down with close errors", fields)
		} else {
			c.log.Info("module torn down", fields)
		}
		c.observer.OnModuleTeardown(TeardownEvent{Module: moduleID, Released: released, Err: err})
		return err
	})
}

// releaseAll drops the constructed instances of regs, closing them newest
// first. Executor only.
func (c *container) releaseAll(regs []*registration) (int, error) {
	owned := make([]*registration, 0, len(regs))
	for _, reg := range regs {
		if reg.owned() {
			owned = append(owned, reg)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].seq > owned[j].seq })

	var errs []error
	for _, reg := range owned {
		if reg.scope != ScopeModule {
			c.fast.Delete(reg.key)
		}
		if err := closeInstance(reg.release()); err != nil {
			errs = append(errs, errors.Internal(err).WithDetail("capability", string(reg.key)))
		}
	}
	return len(owned), stderrors.Join(errs...)
}

func (c *container) Lookup(key Key) (RegistrationInfo, bool) {
	var info RegistrationInfo
	var found bool
	_ = c.submit(func() error {
		if reg, ok := c.store.lookup(key); ok {
			info, found = reg.info(), true
		}
		return nil
	})
	return info, found
}

func (c *container) Registrations() []RegistrationInfo {
	var out []RegistrationInfo
	_ = c.submit(func() error {
		regs := c.store.all()
		out = make([]RegistrationInfo, 0, len(regs))
		for _, reg := range regs {
			out = append(out, reg.info())
		}
		return nil
	})
	return out
}

func (c *container) Modules() []ModuleInfo {
	var out []ModuleInfo
	_ = c.submit(func() error {
		out = c.store.moduleList()
		return nil
	})
	return out
}

func (c *container) Close(ctx context.Context) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	result := make(chan error, 1)
	go func() {
		var err error
		c.guard.stop(func() {
			c.abandon(errors.ContainerClosed())
			var released int
			released, err = c.releaseAll(c.store.all())
			c.fast.Clear()
			c.log.Info("container closed", logger.Fields(
				logger.FieldCount, released,
				"registrations", c.store.len(),
			))
		})
		result <- err
	}()

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func closeInstance(inst any) error {
	if closer, ok := inst.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
