package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/translation-hub/hub-auth/internal/api/metrics"
	"github.com/translation-hub/hub-auth/internal/core/domain"
	"github.com/translation-hub/hub-auth/internal/core/ports"
)

// AuthDeps groups the collaborators of AuthService. Guard and Auditor are
// optional.
type AuthDeps struct {
	OAuth      ports.OAuthClient
	Registry   *SessionRegistry
	Classifier *domain.RoleClassifier
	Tokens     *TokenIssuer
	Guard      ports.CodeGuard
	Auditor    ports.LoginAuditor
	Log        zerolog.Logger
}

// AuthService implements the Discord login lifecycle.
type AuthService struct {
	oauth      ports.OAuthClient
	registry   *SessionRegistry
	classifier *domain.RoleClassifier
	tokens     *TokenIssuer
	guard      ports.CodeGuard
	auditor    ports.LoginAuditor
	log        zerolog.Logger

	newSessionID func() string
	now          func() time.Time
}

func NewAuthService(deps AuthDeps) *AuthService {
	return &AuthService{
		oauth:        deps.OAuth,
		registry:     deps.Registry,
		classifier:   deps.Classifier,
		tokens:       deps.Tokens,
		guard:        deps.Guard,
		auditor:      deps.Auditor,
		log:          deps.Log,
		newSessionID: uuid.NewString,
		now:          time.Now,
	}
}

func (s *AuthService) AuthorizationURL() string {
	return s.oauth.AuthorizationURL()
}

// CompleteLogin runs the callback flow strictly in order: exchange, profile,
// membership, role, persist. Nothing is persisted unless the exchange and the
// profile fetch both succeed.
func (s *AuthService) CompleteLogin(ctx context.Context, code string) (*ports.LoginResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domain.ErrMissingCode
	}

	// 1. At most one exchange per code.
	if s.guard != nil {
		fresh, err := s.guard.Claim(ctx, code)
		if err != nil {
			s.log.Warn().Err(err).Msg("code guard unavailable, exchanging anyway")
		} else if !fresh {
			metrics.LoginFailuresTotal.WithLabelValues("code_reused").Inc()
			return nil, domain.ErrCodeAlreadyUsed
		}
	}

	// 2. Exchange the code.
	token, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		metrics.LoginFailuresTotal.WithLabelValues("exchange").Inc()
		return nil, fmt.Errorf("complete login: %w", err)
	}

	// 3. Fetch the profile.
	user, err := s.oauth.FetchUser(ctx, token.AccessToken)
	if err != nil {
		metrics.LoginFailuresTotal.WithLabelValues("profile").Inc()
		return nil, fmt.Errorf("complete login: %w", err)
	}

	// 4. Membership and role.
	membership := s.lookupMembership(ctx, user.ID, token.AccessToken)
	role := s.classifier.Determine(user.ID, membership.Member)

	// 5. Persist into a brand-new session.
	sid := s.newSessionID()
	store, err := s.registry.Open(ctx, sid)
	if err != nil {
		metrics.LoginFailuresTotal.WithLabelValues("persist").Inc()
		return nil, fmt.Errorf("complete login: open session: %w", err)
	}
	if err := store.SetAuth(ctx, *user, token.AccessToken, role, membership.Member); err != nil {
		s.registry.Forget(sid)
		metrics.LoginFailuresTotal.WithLabelValues("persist").Inc()
		return nil, fmt.Errorf("complete login: %w", err)
	}
	metrics.LiveSessions.Set(float64(s.registry.Len()))

	signed, err := s.tokens.Issue(sid, user.ID)
	if err != nil {
		metrics.LoginFailuresTotal.WithLabelValues("token").Inc()
		return nil, fmt.Errorf("complete login: sign session token: %w", err)
	}

	// 6. Audit trail (non-fatal).
	if s.auditor != nil {
		s.auditor.Enqueue(domain.LoginEvent{
			SessionID:  sid,
			UserID:     user.ID,
			Username:   user.Username,
			Role:       role,
			Membership: membership.Status,
			LoggedInAt: s.now().UTC(),
		})
	}

	metrics.LoginsTotal.WithLabelValues(string(role)).Inc()
	s.log.Info().
		Str("session_id", sid).
		Str("user_id", user.ID).
		Str("role", string(role)).
		Str("membership", string(membership.Status)).
		Msg("login completed")

	return &ports.LoginResult{Token: signed, SessionID: sid, Session: store.State()}, nil
}

func (s *AuthService) lookupMembership(ctx context.Context, userID, accessToken string) domain.MembershipResult {
	res := s.oauth.LookupGuildMembership(ctx, accessToken)
	metrics.MembershipChecksTotal.WithLabelValues(string(res.Status)).Inc()

	switch res.Status {
	case domain.MembershipCheckFailed:
		s.log.Warn().Err(res.Err).Str("user_id", userID).Msg("guild membership check failed, treating as non-member")
	case domain.MembershipNotMember:
		s.log.Debug().Str("user_id", userID).Msg("user is not a guild member")
	}
	return res
}

// Session returns the current state of sid.
func (s *AuthService) Session(ctx context.Context, sid string) (domain.SessionState, error) {
	store, err := s.registry.Open(ctx, sid)
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("session: %w", err)
	}
	return store.State(), nil
}

// Logout clears the session's persisted state and notifies its subscribers.
func (s *AuthService) Logout(ctx context.Context, sid string) error {
	store, err := s.registry.Open(ctx, sid)
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	if err := store.ClearAuth(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.registry.Forget(sid)
	metrics.LiveSessions.Set(float64(s.registry.Len()))
	s.log.Info().Str("session_id", sid).Msg("logged out")
	return nil
}

// UpdateRole overrides the role of an authenticated session.
func (s *AuthService) UpdateRole(ctx context.Context, sid string, role domain.Role) (domain.SessionState, error) {
	store, err := s.registry.Open(ctx, sid)
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("update role: %w", err)
	}
	if err := store.UpdateRole(ctx, role); err != nil {
		if errors.Is(err, domain.ErrNotAuthenticated) {
			return domain.SessionState{}, domain.ErrSessionNotFound
		}
		return domain.SessionState{}, err
	}
	s.log.Info().Str("session_id", sid).Str("role", string(role)).Msg("role updated")
	return store.State(), nil
}

// RefreshMembership re-checks guild membership with the stored access token
// and re-derives the role, so tenure gained since login is picked up without
// a new login. A failed check keeps the current membership and role.
func (s *AuthService) RefreshMembership(ctx context.Context, sid string) (domain.SessionState, error) {
	store, err := s.registry.Open(ctx, sid)
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("refresh membership: %w", err)
	}
	state := store.State()
	if !state.IsAuthenticated {
		return domain.SessionState{}, domain.ErrNotAuthenticated
	}

	token, ok, err := store.GetStoredToken(ctx)
	if err != nil {
		return domain.SessionState{}, fmt.Errorf("refresh membership: %w", err)
	}
	if !ok {
		return domain.SessionState{}, domain.ErrNotAuthenticated
	}

	membership := s.lookupMembership(ctx, state.User.ID, token)
	if membership.Status == domain.MembershipCheckFailed {
		return state, nil
	}

	role := s.classifier.Determine(state.User.ID, membership.Member)
	if err := store.SetAuth(ctx, *state.User, token, role, membership.Member); err != nil {
		return domain.SessionState{}, fmt.Errorf("refresh membership: %w", err)
	}
	return store.State(), nil
}

// Subscribe attaches fn to the live session store of sid.
func (s *AuthService) Subscribe(ctx context.Context, sid string, fn func(domain.SessionState)) (func(), error) {
	store, err := s.registry.Open(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}
	return store.Subscribe(fn), nil
}

// SyncObservedSessions reloads observed sessions that another process has
// changed, pushing the new state to their subscribers.
func (s *AuthService) SyncObservedSessions(ctx context.Context) error {
	return s.registry.SyncObserved(ctx)
}

// PruneSessions evicts idle, unobserved session stores from memory.
func (s *AuthService) PruneSessions(maxIdle time.Duration) int {
	n := s.registry.Prune(maxIdle)
	metrics.LiveSessions.Set(float64(s.registry.Len()))
	return n
}
