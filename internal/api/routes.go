// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/campusai/portal/internal/dashboard"
	"github.com/campusai/portal/internal/session"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Backend    Backend
	Sessions   *session.Manager
	Workspaces *Workspaces
	Hub        *dashboard.Hub
	History    HistoryReader // nil disables the history endpoints
	Checks     map[string]func() bool
	Version    string
	Logger     *slog.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health    HealthHandler
	Account   AccountHandler
	Queue     QueueHandler
	Dashboard DashboardHandler
	WebSocket *WebSocketHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version, deps.Checks),
		Account:   NewAccountHandler(deps.Backend, deps.Sessions, deps.Workspaces, deps.Logger),
		Queue:     NewQueueHandler(deps.Workspaces, deps.History, deps.Logger),
		Dashboard: NewDashboardHandler(deps.Hub),
		WebSocket: NewWebSocketHandler(deps.Workspaces, deps.Logger),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers, sessions *session.Manager) {
	// Health check
	e.GET("/api/health", handlers.Health.HandleHealth)

	// Login is the only account route without a session
	e.POST("/api/account/login", handlers.Account.HandleLogin)

	authed := e.Group("/api", RequireSession(sessions))

	// Account routes
	account := authed.Group("/account")
	account.POST("/logout", handlers.Account.HandleLogout)
	account.GET("/session", handlers.Account.HandleSession)
	account.GET("/profile", handlers.Account.HandleGetProfile)
	account.PUT("/profile", handlers.Account.HandleUpdateProfile)

	// Remote backend proxies
	authed.GET("/tickets", handlers.Account.HandleGetTickets)
	authed.POST("/tickets/solve", handlers.Account.HandleSolveTicket)
	authed.GET("/uploads", handlers.Account.HandleGetUploads)
	authed.DELETE("/uploads", handlers.Account.HandleDeleteUpload)
	authed.GET("/smartsolve", handlers.Account.HandleGetSmartSolve)
	authed.POST("/smartsolve/solve", handlers.Account.HandleSolveSmartSolve)

	// Upload queue routes
	queue := authed.Group("/queue")
	queue.GET("", handlers.Queue.HandleListQueue)
	queue.GET("/msgpack", handlers.Queue.HandleListQueueMsgpack)
	queue.POST("/files", handlers.Queue.HandleAddFiles)
	queue.DELETE("/:id", handlers.Queue.HandleRemoveItem)
	queue.POST("/clear", handlers.Queue.HandleClearCompleted)
	queue.GET("/category", handlers.Queue.HandleGetCategory)
	queue.PUT("/category", handlers.Queue.HandleSetCategory)
	queue.POST("/process", handlers.Queue.HandleProcess)
	queue.GET("/events", handlers.Queue.HandleQueueEvents)
	queue.GET("/history", handlers.Queue.HandleHistory)
	queue.GET("/history/stats", handlers.Queue.HandleHistoryStats)

	// Dashboard routes
	authed.GET("/dashboard", handlers.Dashboard.HandleDashboard)
	authed.GET("/dashboard/stream", handlers.Dashboard.HandleDashboardStream)

	// WebSocket routes
	authed.GET("/ws/queue", handlers.WebSocket.HandleWebSocket)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler
}
