package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/translation-hub/hub-auth/internal/core/domain"
	"github.com/translation-hub/hub-auth/internal/core/ports"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type AuthHandler struct {
	authService ports.AuthService
	history     ports.LoginHistory
}

// NewAuthHandler wires the auth routes. history may be nil when the login
// audit is disabled.
func NewAuthHandler(authService ports.AuthService, history ports.LoginHistory) *AuthHandler {
	return &AuthHandler{authService: authService, history: history}
}

// AuthURL returns the Discord consent page URL.
//
// @Summary      Discord authorization URL
// @Tags         auth
// @Produce      json
// @Success      200  {object}  authURLResponse
// @Router       /auth/url [get]
func (h *AuthHandler) AuthURL(c echo.Context) error {
	return c.JSON(http.StatusOK, authURLResponse{URL: h.authService.AuthorizationURL()})
}

// Login redirects the browser to Discord.
//
// @Summary      Start Discord login
// @Tags         auth
// @Success      302
// @Router       /auth/login [get]
func (h *AuthHandler) Login(c echo.Context) error {
	return c.Redirect(http.StatusFound, h.authService.AuthorizationURL())
}

// Callback completes the OAuth flow for the code Discord sent back.
//
// @Summary      Discord OAuth callback
// @Tags         auth
// @Produce      json
// @Param        code   query     string  true   "Authorization code"
// @Param        error  query     string  false  "Provider error"
// @Success      200    {object}  loginResponse
// @Failure      400    {object}  map[string]string
// @Failure      409    {object}  map[string]string
// @Failure      502    {object}  map[string]string
// @Router       /auth/callback [get]
func (h *AuthHandler) Callback(c echo.Context) error {
	var q callbackQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &q); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid query")
	}
	if q.Error != "" {
		msg := "authorization denied: " + q.Error
		if q.ErrorDescription != "" {
			msg += " (" + q.ErrorDescription + ")"
		}
		return echo.NewHTTPError(http.StatusBadRequest, msg)
	}
	if err := c.Validate(&q); err != nil {
		return err
	}

	res, err := h.authService.CompleteLogin(c.Request().Context(), q.Code)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{
		Token:     res.Token,
		SessionID: res.SessionID,
		Session:   NewSessionResponse(res.Session),
	})
}

// Session returns the caller's live session.
//
// @Summary      Current session
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  SessionResponse
// @Failure      401  {object}  map[string]string
// @Router       /v1/session [get]
func (h *AuthHandler) Session(c echo.Context) error {
	_, st, err := ctxSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NewSessionResponse(st))
}

// Refresh re-checks guild membership and re-derives the caller's role.
//
// @Summary      Refresh guild membership
// @Tags         session
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  SessionResponse
// @Failure      401  {object}  map[string]string
// @Router       /v1/session/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	sid, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	st, err := h.authService.RefreshMembership(c.Request().Context(), sid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NewSessionResponse(st))
}

// Logout clears the caller's session.
//
// @Summary      Logout
// @Tags         session
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  map[string]string
// @Router       /v1/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	sid, _, err := ctxSession(c)
	if err != nil {
		return err
	}
	if err := h.authService.Logout(c.Request().Context(), sid); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// AdminGetSession inspects any session by id.
//
// @Summary      Inspect a session
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        sid  path      string  true  "Session id"
// @Success      200  {object}  SessionResponse
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /v1/admin/sessions/{sid} [get]
func (h *AuthHandler) AdminGetSession(c echo.Context) error {
	st, err := h.authService.Session(c.Request().Context(), c.Param("sid"))
	if err != nil {
		return err
	}
	if !st.IsAuthenticated {
		return domain.ErrSessionNotFound
	}
	return c.JSON(http.StatusOK, NewSessionResponse(st))
}

// AdminUpdateRole overrides the role of a session.
//
// @Summary      Update a session's role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        sid   path      string             true  "Session id"
// @Param        body  body      updateRoleRequest  true  "New role"
// @Success      200   {object}  SessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /v1/admin/sessions/{sid}/role [put]
func (h *AuthHandler) AdminUpdateRole(c echo.Context) error {
	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	st, err := h.authService.UpdateRole(c.Request().Context(), c.Param("sid"), domain.Role(req.Role))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, NewSessionResponse(st))
}

// AdminLoginHistory lists a user's recent logins from the audit trail.
//
// @Summary      Login history of a user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id     path      string  true   "Discord user id"
// @Param        limit  query     int     false  "Max entries (default 20, max 100)"
// @Success      200    {array}   loginEventResponse
// @Failure      403    {object}  map[string]string
// @Failure      503    {object}  map[string]string
// @Router       /v1/admin/users/{id}/logins [get]
func (h *AuthHandler) AdminLoginHistory(c echo.Context) error {
	if h.history == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "login audit is disabled")
	}

	limit := defaultHistoryLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxHistoryLimit)
	}

	events, err := h.history.ListByUser(c.Request().Context(), c.Param("id"), int64(limit))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLoginEventResponses(events))
}
