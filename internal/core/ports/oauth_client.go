package ports

import (
	"context"

	"github.com/translation-hub/hub-auth/internal/core/domain"
)

// TokenResponse is the provider's token endpoint payload.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope"`
}

// OAuthClient talks to the identity provider on behalf of a user.
type OAuthClient interface {
	AuthorizationURL() string
	ExchangeCode(ctx context.Context, code string) (*TokenResponse, error)
	FetchUser(ctx context.Context, accessToken string) (*domain.UserProfile, error)
	LookupGuildMembership(ctx context.Context, accessToken string) domain.MembershipResult
}
