// Package discord implements the OAuth2 authorization-code flow and the
// guild membership lookup against the Discord HTTP API.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/translation-hub/hub-auth/internal/api/metrics"
	"github.com/translation-hub/hub-auth/internal/core/domain"
	"github.com/translation-hub/hub-auth/internal/core/ports"
)

const (
	DefaultAPIBase = "https://discord.com/api"
	defaultTimeout = 10 * time.Second

	// maxBodyBytes caps how much of a provider response is read.
	maxBodyBytes = 1 << 20
)

// Scopes requested on every authorization.
var Scopes = []string{"identify", "email", "guilds", "guilds.members.read"}

// Config holds the Discord application settings.
type Config struct {
	ClientID     string
	ClientSecret string
	GuildID      string
	RedirectURI  string

	// APIBase defaults to DefaultAPIBase.
	APIBase    string
	HTTPClient *http.Client
}

// Client implements ports.OAuthClient for Discord.
type Client struct {
	config     Config
	httpClient *http.Client
}

var _ ports.OAuthClient = (*Client)(nil)

func New(cfg Config) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{config: cfg, httpClient: client}
}

// AuthorizationURL builds the consent page URL. It is deterministic.
func (c *Client) AuthorizationURL() string {
	params := url.Values{
		"client_id":     {c.config.ClientID},
		"redirect_uri":  {c.config.RedirectURI},
		"response_type": {"code"},
		"scope":         {strings.Join(Scopes, " ")},
	}
	return c.config.APIBase + "/oauth2/authorize?" + params.Encode()
}

// ExchangeCode trades an authorization code for an access token. Any
// failure is reported as domain.ErrTokenExchange; the call is not retried.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*ports.TokenResponse, error) {
	data := url.Values{
		"client_id":     {c.config.ClientID},
		"client_secret": {c.config.ClientSecret},
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {c.config.RedirectURI},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIBase+"/oauth2/token", strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var token ports.TokenResponse
	if _, err := c.doJSON(req, "token", &token); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenExchange, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: missing access token", domain.ErrTokenExchange)
	}
	return &token, nil
}

// FetchUser loads the profile of the token's owner. Any failure is reported
// as domain.ErrFetchUser.
func (c *Client) FetchUser(ctx context.Context, accessToken string) (*domain.UserProfile, error) {
	req, err := c.bearerRequest(ctx, "/users/@me", accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchUser, err)
	}

	var user domain.UserProfile
	if _, err := c.doJSON(req, "user", &user); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchUser, err)
	}
	return &user, nil
}

// LookupGuildMembership fetches the caller's member record in the configured
// guild. A 404 means the caller is not a member; every other failure is
// reported as MembershipCheckFailed with the cause attached.
func (c *Client) LookupGuildMembership(ctx context.Context, accessToken string) domain.MembershipResult {
	path := "/users/@me/guilds/" + url.PathEscape(c.config.GuildID) + "/member"
	req, err := c.bearerRequest(ctx, path, accessToken)
	if err != nil {
		return domain.MembershipResult{Status: domain.MembershipCheckFailed, Err: err}
	}

	var member domain.GuildMember
	status, err := c.doJSON(req, "member", &member)
	switch {
	case status == http.StatusNotFound:
		return domain.MembershipResult{Status: domain.MembershipNotMember}
	case err != nil:
		return domain.MembershipResult{Status: domain.MembershipCheckFailed, Err: err}
	}
	return domain.MembershipResult{Status: domain.MembershipMember, Member: &member}
}

// CheckGuildMembership returns the member record, or nil when the caller is
// not a member or the check could not be completed.
func (c *Client) CheckGuildMembership(ctx context.Context, accessToken string) *domain.GuildMember {
	return c.LookupGuildMembership(ctx, accessToken).Member
}

func (c *Client) bearerRequest(ctx context.Context, path, accessToken string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.APIBase+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// doJSON sends req and decodes a 2xx body into out. It returns the HTTP
// status (0 on transport failure) so callers can branch on it.
func (c *Client) doJSON(req *http.Request, endpoint string, out any) (int, error) {
	start := time.Now()
	outcome := "ok"
	defer func() {
		metrics.ProviderRequestDuration.WithLabelValues(endpoint, outcome).Observe(time.Since(start).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		outcome = "transport_error"
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		outcome = "transport_error"
		return resp.StatusCode, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "http_error"
		return resp.StatusCode, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		outcome = "http_error"
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return resp.StatusCode, nil
}

// APIError is a non-2xx response from Discord.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discord api: status %d: %s", e.StatusCode, e.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
