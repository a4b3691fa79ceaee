package module

import (
	"sync"

	"github.com/kbukum/modkit/di"
)

// Scoped returns a Registrar that assigns module-scoped registrations to
// moduleID unless they name an owner with di.InModule.
func Scoped(r di.Registrar, moduleID string) di.Registrar {
	return &scopedRegistrar{inner: r, module: moduleID}
}

type scopedRegistrar struct {
	inner  di.Registrar
	module string

	mu   sync.Mutex
	keys []di.Key
}

func (s *scopedRegistrar) Register(key di.Key, scope di.Scope, factory di.Factory, opts ...di.RegisterOption) error {
	if scope == di.ScopeModule {
		opts = append([]di.RegisterOption{di.InModule(s.module)}, opts...)
	}
	if err := s.inner.Register(key, scope, factory, opts...); err != nil {
		return err
	}
	s.record(key)
	return nil
}

func (s *scopedRegistrar) RegisterInstance(key di.Key, instance any) error {
	if err := s.inner.RegisterInstance(key, instance); err != nil {
		return err
	}
	s.record(key)
	return nil
}

func (s *scopedRegistrar) record(key di.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keys {
		if k == key {
			return
		}
	}
	s.keys = append(s.keys, key)
}

// registered returns the keys registered through s, in order.
func (s *scopedRegistrar) registered() []di.Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]di.Key(nil), s.keys...)
}
