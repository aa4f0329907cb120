// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	checks  map[string]func() bool
}

// NewHealthHandler creates a new health handler. Each check reports whether
// an optional dependency is available; failing checks are listed but do not
// change the status code.
func NewHealthHandler(version string, checks map[string]func() bool) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		checks:  checks,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	deps := make(map[string]bool, len(h.checks))
	status := "ok"
	for name, check := range h.checks {
		deps[name] = check()
		if !deps[name] {
			status = "degraded"
		}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":       status,
		"version":      h.version,
		"dependencies": deps,
	})
}
