package di

import "time"

// ResolveEvent is reported for every resolution, including nested ones made
// by factories.
type ResolveEvent struct {
	Key Key
	// Scope is only meaningful when Found is true.
	Scope    Scope
	Found    bool
	CacheHit bool
	Err      error
}

// ConstructEvent is reported after a factory ran.
type ConstructEvent struct {
	Key      Key
	Scope    Scope
	Module   string
	Duration time.Duration
	Err      error
}

// OverrideEvent is reported when a registration replaces an existing one
// under the same key and scope.
type OverrideEvent struct {
	Key        Key
	Scope      Scope
	WasCached  bool
	PrevModule string
	NewModule  string
}

// TeardownEvent is reported when a module is unregistered.
type TeardownEvent struct {
	Module   string
	Released int
	Err      error
}

// Observer receives container events. Cache hits on published service and
// instance results are reported from the calling goroutine, so
// implementations must be safe for concurrent use. They must not call back
// into the container.
type Observer interface {
	OnResolve(ResolveEvent)
	OnConstruct(ConstructEvent)
	OnOverride(OverrideEvent)
	OnModuleTeardown(TeardownEvent)
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) OnResolve(ResolveEvent)         {}
func (NopObserver) OnConstruct(ConstructEvent)     {}
func (NopObserver) OnOverride(OverrideEvent)       {}
func (NopObserver) OnModuleTeardown(TeardownEvent) {}

// observers fans events out to several observers.
type observers []Observer

func (o observers) OnResolve(e ResolveEvent) {
	for _, obs := range o {
		obs.OnResolve(e)
	}
}

func (o observers) OnConstruct(e ConstructEvent) {
	for _, obs := range o {
		obs.OnConstruct(e)
	}
}

func (o observers) OnOverride(e OverrideEvent) {
	for _, obs := range o {
		obs.OnOverride(e)
	}
}

func (o observers) OnModuleTeardown(e TeardownEvent) {
	for _, obs := range o {
		obs.OnModuleTeardown(e)
	}
}
