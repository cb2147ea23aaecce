package ports

import (
	"context"

	"github.com/translation-hub/hub-auth/internal/core/domain"
)

// LoginResult is returned after a successful OAuth callback.
type LoginResult struct {
	// Token is the signed session token the client presents on later calls.
	Token     string
	SessionID string
	Session   domain.SessionState
}

// AuthService drives the Discord login lifecycle.
type AuthService interface {
	AuthorizationURL() string
	CompleteLogin(ctx context.Context, code string) (*LoginResult, error)
	Session(ctx context.Context, sid string) (domain.SessionState, error)
	Logout(ctx context.Context, sid string) error
	UpdateRole(ctx context.Context, sid string, role domain.Role) (domain.SessionState, error)
	RefreshMembership(ctx context.Context, sid string) (domain.SessionState, error)
	Subscribe(ctx context.Context, sid string, fn func(domain.SessionState)) (unsubscribe func(), err error)
}
