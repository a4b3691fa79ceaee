package module

import (
	"context"

	"github.com/kbukum/modkit/di"
)

// Module is a feature unit that contributes capabilities to the container.
// Register is called once, before any module starts. Module-scoped
// registrations made through the given Registrar belong to the module by
// default.
type Module interface {
	// Name returns the unique module id, e.g. "settings".
	Name() string

	// Register adds the module's capabilities to the container.
	Register(ctx context.Context, r di.Registrar) error
}

// Starter is optionally implemented by modules that do work once every
// module has registered.
type Starter interface {
	Start(ctx context.Context, r di.Resolver) error
}

// Stopper is optionally implemented by modules that release resources on
// shutdown. Stop runs before the module's scoped instances are dropped.
type Stopper interface {
	Stop(ctx context.Context) error
}

// Status is the lifecycle state of a module in a Registry.
type Status string

const (
	StatusPending    Status = "pending"
	StatusRegistered Status = "registered"
	StatusStarted    Status = "started"
	StatusStopped    Status = "stopped"
	StatusFailed     Status = "failed"
)

// Description holds summary information for the startup display.
type Description struct {
	// Name is the human-readable display name. Defaults to Name().
	Name string
	// Type categorizes the module: "feature", "service", "infrastructure".
	Type string
	// Details is a one-liner shown in the startup summary.
	Details string
}

// Describable is optionally implemented by modules to self-report in the
// startup summary.
type Describable interface {
	Describe() Description
}

// Info is a snapshot of a module in a Registry.
type Info struct {
	Name         string      `json:"name"`
	Status       Status      `json:"status"`
	Capabilities []di.Key    `json:"capabilities,omitempty"`
	Description  Description `json:"description"`
	Error        string      `json:"error,omitempty"`
}
