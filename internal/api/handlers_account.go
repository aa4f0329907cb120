// handlers_account.go - Login and remote backend proxy handlers
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/campusai/portal/internal/models"
	"github.com/campusai/portal/internal/session"
)

// AccountHandlerImpl implements the AccountHandler interface
type AccountHandlerImpl struct {
	backend    Backend
	sessions   *session.Manager
	workspaces *Workspaces
	logger     *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(backend Backend, sessions *session.Manager, workspaces *Workspaces, logger *slog.Logger) *AccountHandlerImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountHandlerImpl{
		backend:    backend,
		sessions:   sessions,
		workspaces: workspaces,
		logger:     logger.With("component", "api"),
	}
}

type loginRequest struct {
	Email    string `json:"accountEmail"`
	Password string `json:"password"`
}

func (r *loginRequest) validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return NewValidationError("accountEmail")
	}
	if r.Password == "" {
		return NewValidationError("password")
	}
	return nil
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	SessionID string         `json:"sessionId"`
	Account   models.Account `json:"account"`
	Message   string         `json:"message,omitempty"`
}

// HandleLogin checks credentials with the backend and starts a session
func (h *AccountHandlerImpl) HandleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}

	resp, err := h.backend.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Info("login rejected", "account", req.Email, "error", err)
		return FromError(err)
	}

	account := resp.Account
	if account.Email == "" {
		account.Email = req.Email
	}
	s := h.sessions.Start(account)
	return c.JSON(http.StatusOK, LoginResult{
		SessionID: s.ID,
		Account:   account,
		Message:   resp.Message,
	})
}

// HandleLogout ends the session and drops its queue
func (h *AccountHandlerImpl) HandleLogout(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	h.sessions.End(s.ID)
	h.workspaces.Drop(s.ID)
	return c.NoContent(http.StatusNoContent)
}

// HandleSession returns the logged-in account
func (h *AccountHandlerImpl) HandleSession(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, s)
}

// proxied writes a backend JSON document through unchanged.
func proxied(c echo.Context, raw json.RawMessage, err error) error {
	if err != nil {
		return FromError(err)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, raw)
}

// HandleGetProfile returns the account profile
func (h *AccountHandlerImpl) HandleGetProfile(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	raw, err := h.backend.GetProfile(c.Request().Context(), s.Account.Email)
	return proxied(c, raw, err)
}

type updateProfileRequest struct {
	Name     string `json:"accountName"`
	IsActive *bool  `json:"isActive"`
}

func (r *updateProfileRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" && r.IsActive == nil {
		return NewBadRequestError("nothing to update", nil)
	}
	return nil
}

// HandleUpdateProfile changes the account name and/or active flag
func (h *AccountHandlerImpl) HandleUpdateProfile(c echo.Context) error {
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	raw, err := h.backend.UpdateProfile(c.Request().Context(), s.Account.Email, models.ProfileUpdate{
		Name:     req.Name,
		IsActive: req.IsActive,
	})
	return proxied(c, raw, err)
}

// HandleGetTickets returns the account's tickets, optionally filtered by ?status=
func (h *AccountHandlerImpl) HandleGetTickets(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	switch status := models.TicketStatus(c.QueryParam("status")); status {
	case "":
		raw, err := h.backend.GetTickets(ctx, s.Account.Email)
		return proxied(c, raw, err)
	case models.TicketStatusPending, models.TicketStatusCompleted:
		raw, err := h.backend.GetTicketsByStatus(ctx, s.Account.Email, status)
		return proxied(c, raw, err)
	default:
		return NewValidationError("status")
	}
}

type solveTicketRequest struct {
	TicketID string `json:"ticketId"`
	Solution string `json:"solution"`
}

func (r *solveTicketRequest) validate() error {
	if strings.TrimSpace(r.TicketID) == "" {
		return NewValidationError("ticketId")
	}
	if strings.TrimSpace(r.Solution) == "" {
		return NewValidationError("solution")
	}
	return nil
}

// HandleSolveTicket answers one ticket
func (h *AccountHandlerImpl) HandleSolveTicket(c echo.Context) error {
	var req solveTicketRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}
	if _, err := currentSession(c); err != nil {
		return err
	}

	raw, err := h.backend.SolveTicket(c.Request().Context(), req.TicketID, req.Solution)
	return proxied(c, raw, err)
}

// HandleGetUploads lists the account's uploaded documents
func (h *AccountHandlerImpl) HandleGetUploads(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	listing, err := h.backend.GetUploads(c.Request().Context(), s.Account.Email)
	if err != nil {
		return FromError(err)
	}
	return c.JSON(http.StatusOK, listing)
}

// HandleDeleteUpload removes one uploaded document (?category=&fileName=)
func (h *AccountHandlerImpl) HandleDeleteUpload(c echo.Context) error {
	cat, err := models.ParseCategory(c.QueryParam("category"))
	if err != nil {
		return NewBadRequestError("invalid category", err)
	}
	fileName := strings.TrimSpace(c.QueryParam("fileName"))
	if fileName == "" {
		return NewValidationError("fileName")
	}
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	raw, err := h.backend.DeleteFile(c.Request().Context(), s.Account.Email, cat, fileName)
	return proxied(c, raw, err)
}

// HandleGetSmartSolve returns the clustered tickets
func (h *AccountHandlerImpl) HandleGetSmartSolve(c echo.Context) error {
	s, err := currentSession(c)
	if err != nil {
		return err
	}
	raw, err := h.backend.GetSmartSolveTickets(c.Request().Context(), s.Account.Email)
	return proxied(c, raw, err)
}

type solveSmartRequest struct {
	Solutions []models.TicketSolution `json:"solutions"`
}

func (r *solveSmartRequest) validate() error {
	if len(r.Solutions) == 0 {
		return NewValidationError("solutions")
	}
	for _, s := range r.Solutions {
		if strings.TrimSpace(s.Solution) == "" {
			return NewValidationError("solution")
		}
	}
	return nil
}

// HandleSolveSmartSolve answers several ticket clusters
func (h *AccountHandlerImpl) HandleSolveSmartSolve(c echo.Context) error {
	var req solveSmartRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if err := req.validate(); err != nil {
		return err
	}
	s, err := currentSession(c)
	if err != nil {
		return err
	}

	raw, err := h.backend.SolveSmartTickets(c.Request().Context(), s.Account.Email, req.Solutions)
	return proxied(c, raw, err)
}

var _ AccountHandler = (*AccountHandlerImpl)(nil)
