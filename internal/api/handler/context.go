package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/translation-hub/hub-auth/internal/core/domain"
)

// ctxSession returns the session id and live state injected by the Auth and
// LoadSession middleware. A missing session id means the route was wired
// without Auth.
func ctxSession(c echo.Context) (string, domain.SessionState, error) {
	sid, _ := c.Get("sid").(string)
	if sid == "" {
		return "", domain.SessionState{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	st, _ := c.Get("session").(domain.SessionState)
	return sid, st, nil
}
