package di

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/kbukum/modkit/errors"
)

type greeter interface{ Greet() string }

type englishGreeter struct{}

func (englishGreeter) Greet() string { return "hello" }

var (
	networkCap = NewCapability[*networkService]("network.service")
	greeterCap = NewCapability[greeter]("greeter")
	screenCap  = NewCapability[*screenFactory]("settings.screen")
)

func TestCapabilityKey(t *testing.T) {
	if networkCap.Key() != "network.service" || networkCap.String() != "network.service" {
		t.Errorf("unexpected capability key %q", networkCap.Key())
	}
}

func TestProvideAndResolve(t *testing.T) {
	c := newTestContainer(t)
	err := Provide(c, networkCap, ScopeService, func(Resolver) (*networkService, error) {
		return &networkService{id: 7}, nil
	})
	if err != nil {
		t.Fatalf("Provide failed: %v", err)
	}

	svc, err := Resolve(c, networkCap)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if svc.id != 7 {
		t.Errorf("expected id 7, got %d", svc.id)
	}
}

func TestProvideInjectsDependencies(t *testing.T) {
	c := newTestContainer(t)
	_ = Provide(c, networkCap, ScopeService, func(Resolver) (*networkService, error) {
		return &networkService{id: 1}, nil
	})
	_ = Provide(c, screenCap, ScopeModule, func(r Resolver) (*screenFactory, error) {
		n, err := Resolve(r, networkCap)
		if err != nil {
			return nil, err
		}
		return &screenFactory{network: n}, nil
	}, InModule("settings"))

	screen := MustResolve(c, screenCap)
	network := MustResolve(c, networkCap)
	if screen.network != network {
		t.Error("expected the service instance to be injected")
	}
}

func TestProvideFactoryError(t *testing.T) {
	c := newTestContainer(t)
	_ = Provide(c, networkCap, ScopeService, func(Resolver) (*networkService, error) {
		return nil, fmt.Errorf("no route")
	})
	if _, err := Resolve(c, networkCap); !stderrors.Is(err, errors.ErrConstructionFailed) {
		t.Errorf("expected CONSTRUCTION_FAILED, got %v", err)
	}
}

func TestProvideNilFactory(t *testing.T) {
	c := newTestContainer(t)
	if err := Provide[*networkService](c, networkCap, ScopeService, nil); !stderrors.Is(err, errors.ErrInvalidRegistration) {
		t.Errorf("expected INVALID_REGISTRATION, got %v", err)
	}
}

func TestBindInterface(t *testing.T) {
	c := newTestContainer(t)
	if err := Bind[greeter](c, greeterCap, englishGreeter{}); err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	g, err := Resolve(c, greeterCap)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if g.Greet() != "hello" {
		t.Errorf("unexpected greeting %q", g.Greet())
	}

	if err := Bind[greeter](c, greeterCap, nil); !stderrors.Is(err, errors.ErrInvalidRegistration) {
		t.Errorf("expected nil interface to be rejected, got %v", err)
	}
}

func TestResolveTypeMismatch(t *testing.T) {
	c := newTestContainer(t)
	_ = c.RegisterInstance(networkCap.Key(), "not a service")

	_, err := Resolve(c, networkCap)
	if !stderrors.Is(err, errors.ErrTypeMismatch) {
		t.Fatalf("expected TYPE_MISMATCH, got %v", err)
	}
	if !strings.Contains(err.Error(), "*di.networkService") || !strings.Contains(err.Error(), "string") {
		t.Errorf("expected both type names in error, got %q", err.Error())
	}

	_ = c.RegisterInstance(greeterCap.Key(), 5)
	if _, err := Resolve(c, greeterCap); !strings.Contains(fmt.Sprint(err), "di.greeter") {
		t.Errorf("expected interface name in error, got %v", err)
	}
}

func TestTypedTryResolve(t *testing.T) {
	c := newTestContainer(t)

	svc, found, err := TryResolve(c, networkCap)
	if found || err != nil || svc != nil {
		t.Errorf("expected clean miss, got %v, %v, %v", svc, found, err)
	}

	_ = Bind(c, networkCap, &networkService{id: 3})
	svc, found, err = TryResolve(c, networkCap)
	if !found || err != nil || svc.id != 3 {
		t.Errorf("expected hit, got %v, %v, %v", svc, found, err)
	}

	_ = c.RegisterInstance(greeterCap.Key(), 1)
	if _, found, err := TryResolve(c, greeterCap); found || !stderrors.Is(err, errors.ErrTypeMismatch) {
		t.Errorf("expected type mismatch to surface, got %v, %v", found, err)
	}
}

func TestTypedMustResolvePanics(t *testing.T) {
	c := newTestContainer(t)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustResolve(c, networkCap)
}
