// Package di provides the capability container.
//
// A capability is a contract identified by a Key (or a typed Capability
// token). Registrations bind a capability to a factory or a pre-built object
// under one of three scopes:
//
//   - ScopeInstance: a pre-built object, returned as-is
//   - ScopeService: built on first use, cached for the container lifetime
//   - ScopeModule: built on first use, cached until the owning module is
//     unregistered
//
// When a capability has registrations in several scopes, resolution prefers
// instance, then service, then module.
//
// # Concurrency
//
// All registry and cache state is confined to a single executor goroutine.
// Every public method may be called from any goroutine. A cached service or
// instance result is served without visiting the executor.
//
// Factories run on their own goroutine, so a slow factory only delays the
// callers waiting for that capability. Each registration is constructed at
// most once per cache epoch: concurrent callers join the construction in
// flight. Factories receive a Resolver that tracks which construction is
// waiting on which, so a cycle fails with a CYCLIC_DEPENDENCY error naming
// the chain. A factory may also call the Container directly, but those
// lookups are not attributed to it: a factory that reaches its own
// capability that way waits on itself. There are no timeouts.
//
// # Basic Usage
//
//	c := di.NewContainer(di.WithLogger(log))
//	defer c.Close(ctx)
//
//	var Network = di.NewCapability[*NetworkService]("network.service")
//	_ = di.Provide(c, Network, di.ScopeService, func(r di.Resolver) (*NetworkService, error) {
//		return NewNetworkService(), nil
//	})
//
//	svc, err := di.Resolve(c, Network)
package di
