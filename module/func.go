package module

import (
	"context"

	"github.com/kbukum/modkit/di"
	"github.com/kbukum/modkit/observability"
)

// RegisterFunc adds capabilities to the container.
type RegisterFunc func(ctx context.Context, r di.Registrar) error

// FuncModule is a Module assembled from functions.
//
//	settings := module.New("settings", registerSettings).
//	    WithStop(func(ctx context.Context) error { return flush(ctx) })
type FuncModule struct {
	name        string
	register    RegisterFunc
	start       func(ctx context.Context, r di.Resolver) error
	stop        func(ctx context.Context) error
	health      func(ctx context.Context) observability.Health
	description Description
}

// New creates a module named name whose Register calls register.
func New(name string, register RegisterFunc) *FuncModule {
	return &FuncModule{name: name, register: register}
}

// WithStart sets the function run by Start.
func (m *FuncModule) WithStart(fn func(ctx context.Context, r di.Resolver) error) *FuncModule {
	m.start = fn
	return m
}

// WithStop sets the function run by Stop.
func (m *FuncModule) WithStop(fn func(ctx context.Context) error) *FuncModule {
	m.stop = fn
	return m
}

// WithHealth sets a custom health check.
func (m *FuncModule) WithHealth(fn func(ctx context.Context) observability.Health) *FuncModule {
	m.health = fn
	return m
}

// WithDescription sets the startup summary entry.
func (m *FuncModule) WithDescription(d Description) *FuncModule {
	m.description = d
	return m
}

func (m *FuncModule) Name() string { return m.name }

func (m *FuncModule) Register(ctx context.Context, r di.Registrar) error {
	if m.register == nil {
		return nil
	}
	return m.register(ctx, r)
}

func (m *FuncModule) Start(ctx context.Context, r di.Resolver) error {
	if m.start == nil {
		return nil
	}
	return m.start(ctx, r)
}

func (m *FuncModule) Stop(ctx context.Context) error {
	if m.stop == nil {
		return nil
	}
	return m.stop(ctx)
}

// CheckHealth reports up unless a custom check was set.
func (m *FuncModule) CheckHealth(ctx context.Context) observability.Health {
	if m.health == nil {
		return observability.Health{Name: m.name, Status: observability.HealthStatusUp}
	}
	h := m.health(ctx)
	if h.Name == "" {
		h.Name = m.name
	}
	return h
}

func (m *FuncModule) Describe() Description {
	d := m.description
	if d.Name == "" {
		d.Name = m.name
	}
	if d.Type == "" {
		d.Type = "feature"
	}
	return d
}
