package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Pinger is anything whose reachability the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and dependency status.
type HealthHandler struct {
	deps map[string]Pinger
}

// NewHealthHandler creates a health handler over named dependencies.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// Healthcheck godoc
// @Summary Health check
// @Tags healthcheck
// @Produce json
// @Success 200 {object} APIResponse
// @Router /healthcheck [get]
func (h *HealthHandler) Healthcheck(c echo.Context) error {
	status := make(map[string]string, len(h.deps))
	for name, dep := range h.deps {
		if err := dep.Ping(c.Request().Context()); err != nil {
			status[name] = "unavailable"
			continue
		}
		status[name] = "ok"
	}
	return respond(c, http.StatusOK, status, "OK")
}
