package di

import "github.com/kbukum/modkit/logger"

// Option configures a container.
type Option func(*options)

type options struct {
	id             string
	log            *logger.Logger
	observers      observers
	warnOnOverride bool
}

// WithID sets the container id. A random UUID is used otherwise.
func WithID(id string) Option {
	return func(o *options) { o.id = id }
}

// WithLogger sets the logger used by the container.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithObserver adds an observer. May be given more than once.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WarnOnOverride logs a warning whenever a registration replaces an
// existing one. Replacement itself is always allowed.
func WarnOnOverride(enabled bool) Option {
	return func(o *options) { o.warnOnOverride = enabled }
}

// RegisterOption configures a single registration.
type RegisterOption func(*registerOptions)

type registerOptions struct {
	module string
}

// InModule assigns a module-scoped registration to its owning module.
func InModule(id string) RegisterOption {
	return func(o *registerOptions) { o.module = id }
}
