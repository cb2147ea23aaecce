package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/translation-hub/hub-auth/internal/core/domain"
)

// SessionReader loads the live state of a session.
type SessionReader interface {
	Session(ctx context.Context, sid string) (domain.SessionState, error)
}

// LoadSession runs after Auth. It rejects tokens whose session has been
// cleared and injects "session" and the live "role", so role checks follow
// logouts and admin changes immediately instead of trusting the token.
func LoadSession(sessions SessionReader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid, _ := c.Get("sid").(string)
			if sid == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
			}

			st, err := sessions.Session(c.Request().Context(), sid)
			if err != nil {
				return err
			}
			if !st.IsAuthenticated {
				return echo.NewHTTPError(http.StatusUnauthorized, "session expired")
			}

			c.Set("session", st)
			c.Set("role", st.Role)
			return next(c)
		}
	}
}
