package discord

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/translation-hub/hub-auth/internal/core/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		GuildID:      "guild-1",
		RedirectURI:  "https://hub.example/auth/callback",
		APIBase:      srv.URL,
	})
}

func TestAuthorizationURL(t *testing.T) {
	c := New(Config{ClientID: "123", RedirectURI: "https://hub.example/auth/callback?x=1"})

	got := c.AuthorizationURL()
	if got != c.AuthorizationURL() {
		t.Fatal("expected a deterministic url")
	}

	u, err := url.Parse(got)
	if err != nil {
		t.Fatal(err)
	}
	if u.Scheme+"://"+u.Host+u.Path != "https://discord.com/api/oauth2/authorize" {
		t.Errorf("unexpected endpoint %q", u.Path)
	}
	q := u.Query()
	checks := map[string]string{
		"client_id":     "123",
		"redirect_uri":  "https://hub.example/auth/callback?x=1",
		"response_type": "code",
		"scope":         "identify email guilds guilds.members.read",
	}
	for k, want := range checks {
		if q.Get(k) != want {
			t.Errorf("%s = %q, want %q", k, q.Get(k), want)
		}
	}
}

func TestExchangeCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/x-www-form-urlencoded" {
			t.Errorf("unexpected content type %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(body))
		want := map[string]string{
			"client_id":     "client-id",
			"client_secret": "client-secret",
			"grant_type":    "authorization_code",
			"code":          "the-code",
			"redirect_uri":  "https://hub.example/auth/callback",
		}
		for k, v := range want {
			if form.Get(k) != v {
				t.Errorf("form %s = %q, want %q", k, form.Get(k), v)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "6qrZcUqja7812RVdnEKjpzOL4CvHBFG",
			"token_type":   "Bearer",
			"expires_in":   604800,
			"scope":        "identify email guilds guilds.members.read",
		})
	})

	tok, err := c.ExchangeCode(context.Background(), "the-code")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if tok.AccessToken != "6qrZcUqja7812RVdnEKjpzOL4CvHBFG" || tok.ExpiresIn != 604800 {
		t.Fatalf("unexpected token: %+v", tok)
	}
}

func TestExchangeCode_Failures(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"bad request": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
		},
		"missing token": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"token_type":"Bearer"}`))
		},
		"not json": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		},
	}

	for name, h := range tests {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, h)
			_, err := c.ExchangeCode(context.Background(), "code")
			if !errors.Is(err, domain.ErrTokenExchange) {
				t.Fatalf("expected ErrTokenExchange, got %v", err)
			}
		})
	}
}

func TestExchangeCode_HonoursContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.ExchangeCode(ctx, "code"); !errors.Is(err, domain.ErrTokenExchange) {
		t.Fatalf("expected ErrTokenExchange, got %v", err)
	}
}

func TestFetchUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/@me" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"80351110224678912","username":"Nelly","discriminator":"1337",
			"avatar":null,"global_name":"Nel","verified":true,"email":"nelly@discord.com","locale":"en-US"}`))
	})

	u, err := c.FetchUser(context.Background(), "tok")
	if err != nil {
		t.Fatalf("FetchUser: %v", err)
	}
	if u.ID != "80351110224678912" || u.Avatar != nil || u.GlobalName == nil || *u.GlobalName != "Nel" {
		t.Fatalf("unexpected profile: %+v", u)
	}

	if _, err := c.FetchUser(context.Background(), "wrong"); !errors.Is(err, domain.ErrFetchUser) {
		t.Fatalf("expected ErrFetchUser, got %v", err)
	}
}

func TestLookupGuildMembership(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantStatus domain.MembershipStatus
	}{
		{"member", http.StatusOK, `{"roles":["1"],"joined_at":"2015-04-26T06:26:56.936000+00:00","deaf":false,"mute":false}`, domain.MembershipMember},
		{"not a member", http.StatusNotFound, `{"message":"Unknown Guild","code":10004}`, domain.MembershipNotMember},
		{"rate limited", http.StatusTooManyRequests, `{"message":"You are being rate limited."}`, domain.MembershipCheckFailed},
		{"server error", http.StatusInternalServerError, ``, domain.MembershipCheckFailed},
		{"garbage body", http.StatusOK, `nope`, domain.MembershipCheckFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/users/@me/guilds/guild-1/member" {
					t.Errorf("unexpected path %q", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			res := c.LookupGuildMembership(context.Background(), "tok")
			if res.Status != tt.wantStatus {
				t.Fatalf("status = %q, want %q (err %v)", res.Status, tt.wantStatus, res.Err)
			}
			if (res.Member != nil) != (tt.wantStatus == domain.MembershipMember) {
				t.Fatalf("member presence mismatch: %+v", res.Member)
			}
			if got := c.CheckGuildMembership(context.Background(), "tok"); (got != nil) != (res.Member != nil) {
				t.Fatal("CheckGuildMembership must collapse to the member record")
			}
		})
	}
}

func TestLookupGuildMembership_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New(Config{GuildID: "g", APIBase: base})
	res := c.LookupGuildMembership(context.Background(), "tok")
	if res.Status != domain.MembershipCheckFailed || res.Err == nil {
		t.Fatalf("expected check_failed with cause, got %+v", res)
	}
}
