// middleware.go - Session resolution for account-scoped routes
package api

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/campusai/portal/internal/session"
)

const sessionContextKey = "portal.session"

// SessionQueryParam carries the session token where headers cannot be set
// (EventSource and WebSocket clients).
const SessionQueryParam = "session"

// sessionToken returns the token sent with the request.
func sessionToken(c echo.Context) string {
	if id := strings.TrimSpace(c.Request().Header.Get(session.HeaderName)); id != "" {
		return id
	}
	return strings.TrimSpace(c.QueryParam(SessionQueryParam))
}

// RequireSession rejects requests without a live session and stores the
// session in the echo context for handlers.
func RequireSession(sessions *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := sessionToken(c)
			if id == "" {
				return NewUnauthorizedError("login required")
			}
			s, err := sessions.Get(id)
			if err != nil {
				return NewUnauthorizedError("session expired, please log in again")
			}
			c.Set(sessionContextKey, s)
			return next(c)
		}
	}
}

// currentSession returns the session stored by RequireSession.
func currentSession(c echo.Context) (session.Session, error) {
	s, ok := c.Get(sessionContextKey).(session.Session)
	if !ok {
		return session.Session{}, NewUnauthorizedError("login required")
	}
	return s, nil
}
