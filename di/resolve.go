package di

import (
	"reflect"

	"github.com/kbukum/modkit/errors"
)

// Resolve resolves a typed capability.
//
//	svc, err := di.Resolve(r, NetworkService)
func Resolve[T any](r Resolver, c Capability[T]) (T, error) {
	var zero T
	instance, err := r.Resolve(c.key)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, errors.TypeMismatch(string(c.key), typeName(instance), reflect.TypeFor[T]().String())
	}
	return typed, nil
}

// MustResolve resolves a typed capability and panics on failure.
func MustResolve[T any](r Resolver, c Capability[T]) T {
	v, err := Resolve(r, c)
	if err != nil {
		panic(err)
	}
	return v
}

// TryResolve resolves an optional typed capability. found is false and err
// is nil when the capability has no registration.
func TryResolve[T any](r Resolver, c Capability[T]) (v T, found bool, err error) {
	v, err = Resolve(r, c)
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeUnregisteredCapability) {
			return v, false, nil
		}
		return v, false, err
	}
	return v, true, nil
}

// Provide registers a typed factory.
//
//	di.Provide(reg, NetworkService, di.ScopeService, func(r di.Resolver) (network.Service, error) {
//		return network.New(), nil
//	})
func Provide[T any](reg Registrar, c Capability[T], scope Scope, factory func(Resolver) (T, error), opts ...RegisterOption) error {
	if factory == nil {
		return errors.InvalidRegistration(string(c.key), "nil factory")
	}
	return reg.Register(c.key, scope, func(r Resolver) (any, error) {
		v, err := factory(r)
		if err != nil {
			return nil, err
		}
		return v, nil
	}, opts...)
}

// Bind registers a pre-built typed instance.
func Bind[T any](reg Registrar, c Capability[T], instance T) error {
	return reg.RegisterInstance(c.key, instance)
}

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return reflect.TypeOf(v).String()
}
