package di

import "time"

// Factory builds an instance for a capability. Factories run on their own
// goroutine. The Resolver a factory receives attributes its lookups to the
// construction in progress so cycles are detected; it may be kept and used
// after the factory returns, where it behaves like Container.Resolve.
type Factory func(r Resolver) (any, error)

// cacheState tracks the per-registration construction state.
type cacheState int

const (
	stateEmpty cacheState = iota
	stateConstructing
	stateCached
)

func (s cacheState) String() string {
	switch s {
	case stateConstructing:
		return "constructing"
	case stateCached:
		return "cached"
	default:
		return "empty"
	}
}

// registration is the descriptor stored under (key, scope). Its mutable
// fields are only touched on the container executor.
type registration struct {
	key          Key
	scope        Scope
	module       string
	factory      Factory
	registeredAt time.Time

	state    cacheState
	instance any
	building *construction
	// seq orders constructions so teardown can release newest first.
	seq           uint64
	constructions int
	// generation is the owning module's teardown count when the instance
	// was cached.
	generation int
}

func newFactoryRegistration(key Key, scope Scope, module string, factory Factory) *registration {
	return &registration{
		key:          key,
		scope:        scope,
		module:       module,
		factory:      factory,
		registeredAt: time.Now(),
	}
}

func newInstanceRegistration(key Key, instance any) *registration {
	return &registration{
		key:          key,
		scope:        ScopeInstance,
		registeredAt: time.Now(),
		state:        stateCached,
		instance:     instance,
	}
}

func (r *registration) cached() bool { return r.state == stateCached }

// owned reports whether the container built the cached instance and is
// therefore responsible for closing it.
func (r *registration) owned() bool {
	return r.scope != ScopeInstance && r.state == stateCached
}

// release drops a constructed instance and returns it. Instance bindings are
// never released.
func (r *registration) release() any {
	if !r.owned() {
		return nil
	}
	inst := r.instance
	r.instance = nil
	r.state = stateEmpty
	return inst
}

func (r *registration) info() RegistrationInfo {
	return RegistrationInfo{
		Key:           r.key,
		Scope:         r.scope,
		Module:        r.module,
		State:         r.state.String(),
		Cached:        r.cached(),
		Constructions: r.constructions,
		RegisteredAt:  r.registeredAt,
	}
}

// RegistrationInfo describes a registration for introspection.
type RegistrationInfo struct {
	Key           Key       `json:"key"`
	Scope         Scope     `json:"scope"`
	Module        string    `json:"module,omitempty"`
	State         string    `json:"state"`
	Cached        bool      `json:"cached"`
	Constructions int       `json:"constructions"`
	RegisteredAt  time.Time `json:"registered_at"`
}

// ModuleInfo describes a module known to the container.
type ModuleInfo struct {
	ID            string `json:"id"`
	Active        bool   `json:"active"`
	Registrations int    `json:"registrations"`
	Teardowns     int    `json:"teardowns"`
}
