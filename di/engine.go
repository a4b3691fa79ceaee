package di

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/kbukum/modkit/errors"
	"github.com/kbukum/modkit/logger"
)

// construction is one factory run in flight. Its fields are executor-confined.
type construction struct {
	reg     *registration
	waiters []*pending
	// waitingOn is the construction this one's factory is currently waiting
	// for through its Resolver.
	waitingOn *construction
	// generation is the owning module's teardown count when the factory
	// started.
	generation int
	finished   bool
}

// pending is an outstanding resolution, completed exactly once on the
// executor.
type pending struct {
	key      Key
	from     *construction
	done     chan struct{}
	instance any
	err      error
}

func (p *pending) complete(instance any, err error) {
	p.instance, p.err = instance, err
	close(p.done)
}

func (p *pending) wait() (any, error) {
	<-p.done
	return p.instance, p.err
}

// resolution is the Resolver handed to a factory. Lookups made through it
// are attributed to the factory's construction so a cycle is reported
// instead of waiting forever. Once the factory has returned it behaves like
// Container.Resolve.
type resolution struct {
	c    *container
	from *construction
}

func (r *resolution) Resolve(key Key) (any, error) {
	return r.c.resolve(r.from, key, nil)
}

// resolve hands key to the executor and waits for the outcome. from is the
// construction asking, nil for top-level callers.
func (c *container) resolve(from *construction, key Key, scope *Scope) (any, error) {
	var p *pending
	err := c.submit(func() error {
		p = c.begin(from, key, scope)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p.wait()
}

// begin answers a resolution from the cache, joins a construction already
// in flight, or starts a new one. Executor only.
func (c *container) begin(from *construction, key Key, scope *Scope) *pending {
	if from != nil && from.finished {
		from = nil
	}
	p := &pending{key: key, from: from, done: make(chan struct{})}

	var reg *registration
	var ok bool
	if scope == nil {
		reg, ok = c.store.lookup(key)
	} else {
		reg, ok = c.store.lookupScoped(key, *scope)
	}
	if !ok {
		err := errors.UnregisteredCapability(string(key))
		c.log.Debug("capability not registered", logger.Fields(logger.FieldCapability, string(key)))
		c.observer.OnResolve(ResolveEvent{Key: key, Err: err})
		p.complete(nil, err)
		return p
	}

	switch {
	case reg.state == stateConstructing:
		if chain, cyclic := cycle(from, reg.building, key); cyclic {
			err := errors.CyclicDependency(chain)
			c.log.Error("cyclic dependency detected", logger.Fields(
				logger.FieldCapability, string(key),
				logger.FieldChain, chain,
			))
			c.observer.OnResolve(ResolveEvent{Key: key, Scope: reg.scope, Found: true, Err: err})
			p.complete(nil, err)
			return p
		}
		c.await(p, reg.building)
	case ShouldReuseCache(reg.scope, reg.cached(), c.store.moduleActive(reg)):
		c.publish(reg)
		c.observer.OnResolve(ResolveEvent{Key: key, Scope: reg.scope, Found: true, CacheHit: true})
		p.complete(reg.instance, nil)
	default:
		c.await(p, c.start(reg))
	}
	return p
}

// cycle reports whether from waiting on b would wait on itself, following
// the constructions b is in turn waiting on. The chain starts at key.
func cycle(from, b *construction, key Key) ([]string, bool) {
	if from == nil {
		return nil, false
	}
	var chain []string
	for x := b; x != nil; x = x.waitingOn {
		chain = append(chain, string(x.reg.key))
		if x == from {
			return append(chain, string(key)), true
		}
	}
	return nil, false
}

func (c *container) await(p *pending, b *construction) {
	b.waiters = append(b.waiters, p)
	if p.from != nil {
		p.from.waitingOn = b
	}
}

// start marks reg as constructing and runs its factory on a new goroutine.
// Executor only.
func (c *container) start(reg *registration) *construction {
	if reg.cached() {
		// Cached but not reusable: the owning module was torn down.
		if err := closeInstance(reg.release()); err != nil {
			c.log.WithError(err).Warn("closing torn down instance failed", logger.Fields(
				logger.FieldCapability, string(reg.key),
				logger.FieldModule, reg.module,
			))
		}
	}

	b := &construction{reg: reg}
	if m, ok := c.store.module(reg.module); ok && reg.scope == ScopeModule {
		b.generation = m.teardowns
	}
	reg.state = stateConstructing
	reg.building = b
	c.building[b] = struct{}{}

	go c.run(b, reg.key, reg.factory)
	return b
}

// run calls the factory and reports the outcome to the executor. If the
// container closed meanwhile, a built instance is closed here.
func (c *container) run(b *construction, key Key, factory Factory) {
	start := time.Now()
	instance, err := invoke(key, factory, &resolution{c: c, from: b})
	d := time.Since(start)

	if !c.guard.do(func() { c.finish(b, instance, err, d) }) && err == nil {
		if cerr := closeInstance(instance); cerr != nil {
			c.log.WithError(cerr).Warn("closing instance built after close failed",
				logger.Fields(logger.FieldCapability, string(key)))
		}
	}
}

func invoke(key Key, factory Factory, r Resolver) (instance any, err error) {
	defer func() {
		if p := recover(); p != nil {
			instance, err = nil, errors.ConstructionFailed(string(key), fmt.Errorf("factory panicked: %v", p))
		}
	}()

	instance, err = factory(r)
	switch {
	case err != nil && stderrors.Is(err, errors.ErrCyclicDependency):
		return nil, err
	case err != nil:
		return nil, errors.ConstructionFailed(string(key), err)
	case instance == nil:
		return nil, errors.ConstructionFailed(string(key), stderrors.New("factory returned nil"))
	}
	return instance, nil
}

// finish stores the outcome of b and answers everyone waiting on it. A
// result whose registration was replaced meanwhile is handed to the waiters
// but not cached. Executor only.
func (c *container) finish(b *construction, instance any, err error, d time.Duration) {
	reg := b.reg
	b.finished = true
	b.waitingOn = nil
	delete(c.building, b)
	if reg.building == b {
		reg.building = nil
	}

	fields := logger.DurationFields("construct", d)
	fields[logger.FieldCapability] = string(reg.key)
	fields[logger.FieldScope] = reg.scope.String()

	current, ok := c.store.lookupScoped(reg.key, reg.scope)
	switch {
	case err != nil:
		reg.state = stateEmpty
		c.log.WithError(err).Warn("capability construction failed", fields)
	case !ok || current != reg:
		reg.state = stateEmpty
		c.log.Debug("registration replaced during construction, result not cached", fields)
	default:
		c.seq++
		reg.seq = c.seq
		reg.instance = instance
		reg.state = stateCached
		reg.constructions++
		reg.generation = b.generation
		// A module torn down while the factory ran stays inactive, so the
		// result is handed out once and rebuilt on the next resolution.
		if m, ok := c.store.module(reg.module); ok && reg.scope == ScopeModule && m.teardowns == b.generation {
			m.active = true
		}
		c.publish(reg)
		c.log.Debug("capability constructed", fields)
	}

	c.observer.OnConstruct(ConstructEvent{
		Key:      reg.key,
		Scope:    reg.scope,
		Module:   reg.module,
		Duration: d,
		Err:      err,
	})
	for _, p := range b.waiters {
		if p.from != nil && p.from.waitingOn == b {
			p.from.waitingOn = nil
		}
		c.observer.OnResolve(ResolveEvent{Key: p.key, Scope: reg.scope, Found: true, Err: err})
		if err != nil {
			p.complete(nil, err)
		} else {
			p.complete(instance, nil)
		}
	}
}

// abandon fails every construction in flight with err. Executor only.
func (c *container) abandon(err error) {
	for b := range c.building {
		b.finished = true
		b.reg.state = stateEmpty
		b.reg.building = nil
		for _, p := range b.waiters {
			p.complete(nil, err)
		}
		delete(c.building, b)
	}
}

// publish exposes a service or instance result on the lock-free path if reg
// is what its key currently resolves to. Module results always go through
// the executor so teardown is observed. Executor only.
func (c *container) publish(reg *registration) {
	if reg.scope == ScopeModule || !reg.cached() {
		return
	}
	if winner, ok := c.store.lookup(reg.key); ok && winner == reg {
		c.fast.Store(reg.key, fastEntry{instance: reg.instance, scope: reg.scope})
	}
}
