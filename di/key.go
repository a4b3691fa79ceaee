package di

// Key identifies a capability contract, for example "network.service".
// Two keys are equal iff they name the same contract. Scope is a property of
// the registration, never of the key.
type Key string

// String returns the key as a plain string.
func (k Key) String() string { return string(k) }

// Capability is a typed token for a Key. Resolving through it yields a T
// without a type assertion at the call site.
//
//	var NetworkService = di.NewCapability[network.Service]("network.service")
//	svc, err := di.Resolve(c, NetworkService)
type Capability[T any] struct {
	key Key
}

// NewCapability declares a typed capability token.
func NewCapability[T any](name string) Capability[T] {
	return Capability[T]{key: Key(name)}
}

// Key returns the untyped key of the capability.
func (c Capability[T]) Key() Key { return c.key }

// String returns the capability name.
func (c Capability[T]) String() string { return string(c.key) }
