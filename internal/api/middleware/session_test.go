package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/translation-hub/hub-auth/internal/core/domain"
)

type stubSessions map[string]domain.SessionState

func (s stubSessions) Session(_ context.Context, sid string) (domain.SessionState, error) {
	if sid == "broken" {
		return domain.SessionState{}, errors.New("storage down")
	}
	if st, ok := s[sid]; ok {
		return st, nil
	}
	return domain.EmptySession(), nil
}

func TestLoadSession(t *testing.T) {
	sessions := stubSessions{
		"live": {User: &domain.UserProfile{ID: "1"}, IsAuthenticated: true, Role: domain.RoleAdmin},
	}

	tests := []struct {
		sid      string
		wantCode int
		wantNext bool
	}{
		{"live", http.StatusOK, true},
		{"cleared", http.StatusUnauthorized, false},
		{"", http.StatusUnauthorized, false},
		{"broken", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.sid, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			if tt.sid != "" {
				c.Set("sid", tt.sid)
			}

			called := false
			handler := LoadSession(sessions)(func(c echo.Context) error {
				called = true
				if c.Get("role") != domain.RoleAdmin {
					t.Errorf("live role not injected: %v", c.Get("role"))
				}
				if st, ok := c.Get("session").(domain.SessionState); !ok || st.User.ID != "1" {
					t.Errorf("session not injected")
				}
				return c.NoContent(http.StatusOK)
			})
			if err := handler(c); err != nil {
				e.HTTPErrorHandler(err, c)
			}

			if called != tt.wantNext || rec.Code != tt.wantCode {
				t.Fatalf("next=%v code=%d, want next=%v code=%d", called, rec.Code, tt.wantNext, tt.wantCode)
			}
		})
	}
}
