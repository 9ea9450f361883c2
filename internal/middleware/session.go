package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/evenio/event-ticketing/internal/auth"
)

// sessionKey is the context key under which the resolved auth.Session is
// stored by RefreshSession.
const sessionKey = "session"

// SessionVerifier turns a raw refresh token into a Session. Satisfied by
// *auth.Verifier; tests substitute fakes.
type SessionVerifier interface {
	VerifySession(ctx context.Context, raw string) (auth.Session, error)
}

// RefreshSession returns a middleware that authenticates the caller from the
// refresh_token cookie. It runs before any handler I/O: no cookie means 401
// "No token", a failed verification means 401 "Invalid token". On success
// the resolved session is stored in the context for CurrentSession.
func RefreshSession(v SessionVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie("refresh_token")
			if err != nil || cookie.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "No token"})
			}
			sess, err := v.VerifySession(c.Request().Context(), cookie.Value)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "message": "Invalid token"})
			}
			c.Set(sessionKey, sess)
			return next(c)
		}
	}
}

// RequireSessionRole enforces that the session resolved by RefreshSession
// carries one of the allowed roles, rejecting everything else with 403.
func RequireSessionRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, ok := CurrentSession(c)
			if !ok || !allowed[sess.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Forbidden"})
			}
			return next(c)
		}
	}
}

// CurrentSession returns the session stored by RefreshSession, if any.
func CurrentSession(c echo.Context) (auth.Session, bool) {
	sess, ok := c.Get(sessionKey).(auth.Session)
	return sess, ok
}
