package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/translation-hub/hub-auth/internal/core/domain"
	"github.com/translation-hub/hub-auth/internal/core/ports"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubAuthService struct {
	completeLoginFn func(ctx context.Context, code string) (*ports.LoginResult, error)
	sessionFn       func(ctx context.Context, sid string) (domain.SessionState, error)
	logoutFn        func(ctx context.Context, sid string) error
	updateRoleFn    func(ctx context.Context, sid string, role domain.Role) (domain.SessionState, error)
	refreshFn       func(ctx context.Context, sid string) (domain.SessionState, error)

	mu          sync.Mutex
	subscribers []func(domain.SessionState)
	initial     domain.SessionState
}

func (s *stubAuthService) AuthorizationURL() string {
	return "https://discord.com/api/oauth2/authorize?client_id=1"
}

func (s *stubAuthService) CompleteLogin(ctx context.Context, code string) (*ports.LoginResult, error) {
	return s.completeLoginFn(ctx, code)
}

func (s *stubAuthService) Session(ctx context.Context, sid string) (domain.SessionState, error) {
	return s.sessionFn(ctx, sid)
}

func (s *stubAuthService) Logout(ctx context.Context, sid string) error {
	return s.logoutFn(ctx, sid)
}

func (s *stubAuthService) UpdateRole(ctx context.Context, sid string, role domain.Role) (domain.SessionState, error) {
	return s.updateRoleFn(ctx, sid, role)
}

func (s *stubAuthService) RefreshMembership(ctx context.Context, sid string) (domain.SessionState, error) {
	return s.refreshFn(ctx, sid)
}

func (s *stubAuthService) Subscribe(_ context.Context, _ string, fn func(domain.SessionState)) (func(), error) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
	fn(s.initial)
	return func() {}, nil
}

func (s *stubAuthService) publish(st domain.SessionState) {
	s.mu.Lock()
	subs := append([]func(domain.SessionState){}, s.subscribers...)
	s.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
}

type stubHistory struct {
	gotLimit int64
	events   []domain.LoginEvent
}

func (h *stubHistory) ListByUser(_ context.Context, _ string, limit int64) ([]domain.LoginEvent, error) {
	h.gotLimit = limit
	return h.events, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func serve(e *echo.Echo, c echo.Context, h echo.HandlerFunc) {
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
}

func authedSession() domain.SessionState {
	disc := "0"
	return domain.SessionState{
		User:            &domain.UserProfile{ID: "42", Username: "nelly", Discriminator: disc},
		IsAuthenticated: true,
		Role:            domain.RoleContributor,
		GuildMember:     &domain.GuildMember{Roles: []string{}, JoinedAt: "2024-01-01T00:00:00Z"},
	}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid json %q: %v", rec.Body.String(), err)
	}
	return out
}

// ---------------------------------------------------------------------------
// OAuth flow
// ---------------------------------------------------------------------------

func TestAuthHandler_AuthURLAndLogin(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubAuthService{}, nil)

	rec := httptest.NewRecorder()
	serve(e, e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/url", nil), rec), h.AuthURL)
	if rec.Code != http.StatusOK || !strings.HasPrefix(decode(t, rec)["url"].(string), "https://discord.com/") {
		t.Fatalf("unexpected /auth/url response: %d %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	serve(e, e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/login", nil), rec), h.Login)
	if rec.Code != http.StatusFound || !strings.HasPrefix(rec.Header().Get("Location"), "https://discord.com/") {
		t.Fatalf("expected redirect to discord, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestAuthHandler_Callback_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		completeLoginFn: func(_ context.Context, code string) (*ports.LoginResult, error) {
			if code != "abc" {
				t.Fatalf("unexpected code %q", code)
			}
			return &ports.LoginResult{Token: "jwt", SessionID: "sid-1", Session: authedSession()}, nil
		},
	}
	h := NewAuthHandler(stub, nil)

	rec := httptest.NewRecorder()
	serve(e, e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc", nil), rec), h.Callback)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	resp := decode(t, rec)
	if resp["token"] != "jwt" || resp["session_id"] != "sid-1" {
		t.Fatalf("unexpected response: %v", resp)
	}
	session := resp["session"].(map[string]any)
	if session["role"] != "contributor" || session["is_authenticated"] != true {
		t.Fatalf("unexpected session: %v", session)
	}
	if session["avatar_url"] != "https://cdn.discordapp.com/embed/avatars/0.png" {
		t.Fatalf("unexpected avatar url: %v", session["avatar_url"])
	}
}

func TestAuthHandler_Callback_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		loginErr error
		wantCode int
	}{
		{"missing code", "", nil, http.StatusBadRequest},
		{"provider denied", "?error=access_denied&error_description=The+resource+owner+denied", nil, http.StatusBadRequest},
		{"service error", "?code=abc", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho()
			called := false
			stub := &stubAuthService{
				completeLoginFn: func(context.Context, string) (*ports.LoginResult, error) {
					called = true
					return nil, tt.loginErr
				},
			}
			h := NewAuthHandler(stub, nil)

			rec := httptest.NewRecorder()
			serve(e, e.NewContext(httptest.NewRequest(http.MethodGet, "/auth/callback"+tt.query, nil), rec), h.Callback)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body)
			}
			if called != (tt.loginErr != nil) {
				t.Fatalf("CompleteLogin called=%v", called)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Session routes
// ---------------------------------------------------------------------------

func TestAuthHandler_Session(t *testing.T) {
	e := newEcho()
	h := NewAuthHandler(&stubAuthService{}, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/session", nil), rec)
	c.Set("sid", "sid-1")
	c.Set("session", authedSession())
	serve(e, c, h.Session)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if user := decode(t, rec)["user"].(map[string]any); user["id"] != "42" {
		t.Fatalf("unexpected user: %v", user)
	}

	// Without the auth middleware there is no session id.
	rec = httptest.NewRecorder()
	serve(e, e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/session", nil), rec), h.Session)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthHandler_LogoutAndRefresh(t *testing.T) {
	e := newEcho()
	var loggedOut string
	stub := &stubAuthService{
		logoutFn: func(_ context.Context, sid string) error { loggedOut = sid; return nil },
		refreshFn: func(context.Context, string) (domain.SessionState, error) {
			st := authedSession()
			st.Role = domain.RoleAdmin
			return st, nil
		},
	}
	h := NewAuthHandler(stub, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/session/refresh", nil), rec)
	c.Set("sid", "sid-1")
	serve(e, c, h.Refresh)
	if rec.Code != http.StatusOK || decode(t, rec)["role"] != "admin" {
		t.Fatalf("unexpected refresh response: %d %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodPost, "/v1/logout", nil), rec)
	c.Set("sid", "sid-1")
	serve(e, c, h.Logout)
	if rec.Code != http.StatusNoContent || loggedOut != "sid-1" {
		t.Fatalf("expected 204 logout of sid-1, got %d %q", rec.Code, loggedOut)
	}
}

// ---------------------------------------------------------------------------
// Admin routes
// ---------------------------------------------------------------------------

func TestAuthHandler_AdminUpdateRole(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"valid", `{"role":"admin"}`, http.StatusOK},
		{"unknown role", `{"role":"owner"}`, http.StatusBadRequest},
		{"missing role", `{}`, http.StatusBadRequest},
		{"not json", `nope`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEcho()
			stub := &stubAuthService{
				updateRoleFn: func(_ context.Context, sid string, role domain.Role) (domain.SessionState, error) {
					if sid != "target" || role != domain.RoleAdmin {
						t.Fatalf("unexpected args %q %q", sid, role)
					}
					st := authedSession()
					st.Role = role
					return st, nil
				},
			}
			h := NewAuthHandler(stub, nil)

			req := httptest.NewRequest(http.MethodPut, "/v1/admin/sessions/target/role", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			c.SetParamNames("sid")
			c.SetParamValues("target")
			serve(e, c, h.AdminUpdateRole)

			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, rec.Code, rec.Body)
			}
		})
	}
}

func TestAuthHandler_AdminGetSession_Cleared(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		sessionFn: func(context.Context, string) (domain.SessionState, error) {
			return domain.EmptySession(), nil
		},
	}
	h := NewAuthHandler(stub, nil)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/admin/sessions/x", nil), rec)
	c.SetParamNames("sid")
	c.SetParamValues("x")
	err := h.AdminGetSession(c)
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestAuthHandler_AdminLoginHistory(t *testing.T) {
	e := newEcho()

	// Audit disabled.
	rec := httptest.NewRecorder()
	serve(e, e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), NewAuthHandler(&stubAuthService{}, nil).AdminLoginHistory)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}

	history := &stubHistory{events: []domain.LoginEvent{{
		SessionID: "s", UserID: "42", Role: domain.RoleGuest, Membership: domain.MembershipNotMember,
		LoggedInAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}}}
	h := NewAuthHandler(&stubAuthService{}, history)

	rec = httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=500", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("42")
	serve(e, c, h.AdminLoginHistory)

	if rec.Code != http.StatusOK || history.gotLimit != maxHistoryLimit {
		t.Fatalf("expected 200 with capped limit, got %d limit=%d", rec.Code, history.gotLimit)
	}
	var events []map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &events)
	if len(events) != 1 || events[0]["membership"] != "not_member" {
		t.Fatalf("unexpected events: %v", events)
	}

	rec = httptest.NewRecorder()
	serve(e, e.NewContext(httptest.NewRequest(http.MethodGet, "/?limit=-1", nil), rec), h.AdminLoginHistory)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}
