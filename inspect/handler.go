package inspect

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/modkit/di"
	apperrors "github.com/kbukum/modkit/errors"
	"github.com/kbukum/modkit/observability"
	"github.com/kbukum/modkit/version"
)

const (
	pathContainer     = "/container"
	pathRegistrations = "/container/registrations"
	pathModules       = "/container/modules"
	pathCapability    = "/container/capabilities/:key"
	pathHealth        = "/healthz"
	pathVersion       = "/version"
)

// HealthFunc reports application health for /healthz.
type HealthFunc func(ctx context.Context) *observability.AppHealth

// ContainerSummary is the body of GET /container.
type ContainerSummary struct {
	ID            string `json:"id"`
	Registrations int    `json:"registrations"`
	Modules       int    `json:"modules"`
	ActiveModules int    `json:"active_modules"`
}

// Handler serves container introspection routes.
type Handler struct {
	container di.Container
	health    HealthFunc
}

// NewHandler creates a handler for c. health may be nil, in which case
// /healthz reports the container alone.
func NewHandler(c di.Container, health HealthFunc) *Handler {
	return &Handler{container: c, health: health}
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET(pathContainer, h.summary)
	r.GET(pathRegistrations, h.registrations)
	r.GET(pathModules, h.modules)
	r.GET(pathCapability, h.capability)
	r.GET(pathHealth, h.healthz)
	r.GET(pathVersion, h.buildInfo)
}

// open answers 503 once the container has been closed; a closed container
// reports no registrations rather than an error.
func (h *Handler) open(c *gin.Context) bool {
	if h.container.Closed() {
		RespondWithError(c, apperrors.ContainerClosed())
		return false
	}
	return true
}

func (h *Handler) summary(c *gin.Context) {
	if !h.open(c) {
		return
	}
	mods := h.container.Modules()
	active := 0
	for _, m := range mods {
		if m.Active {
			active++
		}
	}
	RespondOK(c, ContainerSummary{
		ID:            h.container.ID(),
		Registrations: len(h.container.Registrations()),
		Modules:       len(mods),
		ActiveModules: active,
	})
}

func (h *Handler) registrations(c *gin.Context) {
	if !h.open(c) {
		return
	}
	regs := h.container.Registrations()

	module := c.Query("module")
	scopeName := c.Query("scope")
	if module == "" && scopeName == "" {
		RespondList(c, regs)
		return
	}

	var scope di.Scope
	if scopeName != "" {
		s, err := di.ParseScope(scopeName)
		if err != nil {
			RespondWithError(c, apperrors.Validation(err.Error()).WithDetail("scope", scopeName))
			return
		}
		scope = s
	}

	filtered := make([]di.RegistrationInfo, 0, len(regs))
	for _, r := range regs {
		if module != "" && r.Module != module {
			continue
		}
		if scopeName != "" && r.Scope != scope {
			continue
		}
		filtered = append(filtered, r)
	}
	RespondList(c, filtered)
}

func (h *Handler) modules(c *gin.Context) {
	if !h.open(c) {
		return
	}
	RespondList(c, h.container.Modules())
}

func (h *Handler) capability(c *gin.Context) {
	if !h.open(c) {
		return
	}
	key := c.Param("key")
	info, ok := h.container.Lookup(di.Key(key))
	if !ok {
		RespondWithError(c, apperrors.UnregisteredCapability(key))
		return
	}
	RespondOK(c, info)
}

func (h *Handler) healthz(c *gin.Context) {
	var report *observability.AppHealth
	if h.health != nil {
		report = h.health(c.Request.Context())
	}
	if report == nil {
		report = observability.NewAppHealth("", "", h.container.ID())
	}

	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

func (h *Handler) buildInfo(c *gin.Context) {
	RespondOK(c, version.Get())
}
