// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"
	"encoding/json"

	"github.com/labstack/echo/v4"

	"github.com/campusai/portal/internal/models"
)

// QueueHandler handles the upload queue of the current session
type QueueHandler interface {
	HandleAddFiles(c echo.Context) error
	HandleListQueue(c echo.Context) error
	HandleListQueueMsgpack(c echo.Context) error
	HandleRemoveItem(c echo.Context) error
	HandleClearCompleted(c echo.Context) error
	HandleGetCategory(c echo.Context) error
	HandleSetCategory(c echo.Context) error
	HandleProcess(c echo.Context) error
	HandleQueueEvents(c echo.Context) error
	HandleHistory(c echo.Context) error
	HandleHistoryStats(c echo.Context) error
}

// AccountHandler proxies account, ticket, upload and SmartSolve calls to the backend
type AccountHandler interface {
	HandleLogin(c echo.Context) error
	HandleLogout(c echo.Context) error
	HandleSession(c echo.Context) error
	HandleGetProfile(c echo.Context) error
	HandleUpdateProfile(c echo.Context) error
	HandleGetTickets(c echo.Context) error
	HandleSolveTicket(c echo.Context) error
	HandleGetUploads(c echo.Context) error
	HandleDeleteUpload(c echo.Context) error
	HandleGetSmartSolve(c echo.Context) error
	HandleSolveSmartSolve(c echo.Context) error
}

// DashboardHandler serves the live dashboard mirror
type DashboardHandler interface {
	HandleDashboard(c echo.Context) error
	HandleDashboardStream(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// Backend is the remote campus backend as seen by the proxy handlers.
// This allows mocking in tests
type Backend interface {
	ListingFetcher
	Login(ctx context.Context, email, password string) (*models.LoginResponse, error)
	GetProfile(ctx context.Context, email string) (json.RawMessage, error)
	UpdateProfile(ctx context.Context, email string, update models.ProfileUpdate) (json.RawMessage, error)
	GetTickets(ctx context.Context, email string) (json.RawMessage, error)
	GetTicketsByStatus(ctx context.Context, email string, status models.TicketStatus) (json.RawMessage, error)
	SolveTicket(ctx context.Context, ticketID, solution string) (json.RawMessage, error)
	DeleteFile(ctx context.Context, email string, category models.Category, fileName string) (json.RawMessage, error)
	GetSmartSolveTickets(ctx context.Context, email string) (json.RawMessage, error)
	SolveSmartTickets(ctx context.Context, email string, solutions []models.TicketSolution) (json.RawMessage, error)
}

// HistoryReader reads the upload history ledger.
type HistoryReader interface {
	List(ctx context.Context, account string, limit int) ([]models.HistoryEntry, error)
	Stats(ctx context.Context, account string) (models.HistoryStats, error)
}
