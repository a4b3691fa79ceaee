package observability

import "context"

// HealthStatus represents the health state of a module or application.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes the health of one module.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// HealthChecker is implemented by modules that can report their health.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// AppHealth aggregates module health. The overall status is the worst
// status reported by any module.
type AppHealth struct {
	Service     string       `json:"service"`
	Version     string       `json:"version,omitempty"`
	ContainerID string       `json:"container_id,omitempty"`
	Status      HealthStatus `json:"status"`
	Modules     []Health     `json:"modules,omitempty"`
}

// NewAppHealth creates an AppHealth with status up.
func NewAppHealth(service, version, containerID string) *AppHealth {
	return &AppHealth{
		Service:     service,
		Version:     version,
		ContainerID: containerID,
		Status:      HealthStatusUp,
	}
}

// Add records a module result and degrades the overall status if needed.
func (h *AppHealth) Add(m Health) {
	h.Modules = append(h.Modules, m)

	switch m.Status {
	case HealthStatusDown:
		h.Status = HealthStatusDown
	case HealthStatusDegraded:
		if h.Status != HealthStatusDown {
			h.Status = HealthStatusDegraded
		}
	}
}

// Healthy reports whether no module is down.
func (h *AppHealth) Healthy() bool {
	return h.Status != HealthStatusDown
}
