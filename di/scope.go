package di

import "fmt"

// Scope is the lifetime policy of a registration.
type Scope int

const (
	// ScopeInstance binds a pre-built object. It is returned as-is and no
	// factory is stored.
	ScopeInstance Scope = iota

	// ScopeService constructs lazily and caches for the lifetime of the
	// container, or until the capability is registered again.
	ScopeService

	// ScopeModule constructs lazily and caches while the owning module is
	// active. Module teardown drops the cache.
	ScopeModule
)

// lookupOrder is the order used when a capability is resolved without an
// explicit scope. The first scope holding a registration wins.
var lookupOrder = [...]Scope{ScopeInstance, ScopeService, ScopeModule}

// String returns the human-readable name of the scope.
func (s Scope) String() string {
	switch s {
	case ScopeInstance:
		return "instance"
	case ScopeService:
		return "service"
	case ScopeModule:
		return "module"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the defined scopes.
func (s Scope) Valid() bool {
	return s >= ScopeInstance && s <= ScopeModule
}

// MarshalText renders the scope by name.
func (s Scope) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid scope %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText parses a scope name.
func (s *Scope) UnmarshalText(text []byte) error {
	parsed, err := ParseScope(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseScope parses "instance", "service" or "module".
func ParseScope(name string) (Scope, error) {
	for _, s := range lookupOrder {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown scope %q", name)
}

// ShouldReuseCache decides whether a cached instance may be returned.
//
//   - instance: always
//   - service: when an instance is cached
//   - module: when an instance is cached and the owning module is active
func ShouldReuseCache(scope Scope, cached, moduleActive bool) bool {
	switch scope {
	case ScopeInstance:
		return true
	case ScopeService:
		return cached
	case ScopeModule:
		return cached && moduleActive
	default:
		return false
	}
}
