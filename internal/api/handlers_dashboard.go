// handlers_dashboard.go - Live dashboard handlers
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/campusai/portal/internal/dashboard"
)

// DashboardHandlerImpl implements the DashboardHandler interface
type DashboardHandlerImpl struct {
	hub *dashboard.Hub
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(hub *dashboard.Hub) *DashboardHandlerImpl {
	return &DashboardHandlerImpl{hub: hub}
}

// HandleDashboard returns the current dashboard of the session account,
// connecting upstream on first use
func (h *DashboardHandlerImpl) HandleDashboard(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, h.hub.Get(s.Account.Email).Snapshot())
}

// HandleDashboardStream relays dashboard snapshots via SSE
func (h *DashboardHandlerImpl) HandleDashboardStream(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	stream := h.hub.Get(s.Account.Email)
	updates, stop := stream.Subscribe()
	defer stop()

	startSSE(c)
	if err := writeSSE(c, stream.Snapshot()); err != nil {
		return nil
	}

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			if err := writeSSE(c, snap); err != nil {
				return nil
			}
		case <-heartbeat.C:
			if err := writeSSEComment(c, "keep-alive"); err != nil {
				return nil
			}
		}
	}
}

var _ DashboardHandler = (*DashboardHandlerImpl)(nil)
