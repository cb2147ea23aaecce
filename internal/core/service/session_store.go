package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/translation-hub/hub-auth/internal/core/domain"
	"github.com/translation-hub/hub-auth/internal/core/ports"
)

// SessionStore owns one session's persisted keys and its in-memory state.
// Mutations are serialised: persistence, the state swap and subscriber
// notification happen in the same order for every writer. Subscribers must
// not call back into the store's mutators.
type SessionStore struct {
	storage     ports.SessionStorage
	sealer      ports.TokenSealer
	log         zerolog.Logger
	newRevision func() string

	// Guarded by writeMu: the revision last read or written and the token
	// exactly as persisted (sealed when a sealer is configured).
	writeMu     sync.Mutex
	rev         string
	storedToken string

	mu      sync.RWMutex
	state   domain.SessionState
	subs    map[uint64]func(domain.SessionState)
	nextSub uint64
}

// snapshot is a decoded read of every persisted key.
type snapshot struct {
	state       domain.SessionState
	storedToken string
	rev         string
}

// NewSessionStore creates a store over storage and hydrates it from any
// previously persisted session. Corrupt persisted data clears the session;
// only storage failures are returned.
func NewSessionStore(ctx context.Context, storage ports.SessionStorage, sealer ports.TokenSealer, log zerolog.Logger) (*SessionStore, error) {
	s := &SessionStore{
		storage:     storage,
		sealer:      sealer,
		log:         log,
		newRevision: uuid.NewString,
		state:       domain.EmptySession(),
		subs:        make(map[uint64]func(domain.SessionState)),
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	snap, err := s.readLocked(ctx)
	if err != nil {
		return nil, fmt.Errorf("hydrate session: %w", err)
	}
	s.install(snap)
	return s, nil
}

// Sync reloads the session when its persisted revision differs from the one
// this store last saw, which happens when another process wrote or cleared
// it. Subscribers are notified of the reloaded state.
func (s *SessionStore) Sync(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rev, _, err := s.storage.Get(ctx, domain.KeyRevision)
	if err != nil {
		return fmt.Errorf("sync session: %w", err)
	}
	// Sessions persisted without a revision are always reloaded.
	if rev == s.rev && (rev != "" || !s.State().IsAuthenticated) {
		return nil
	}

	snap, err := s.readLocked(ctx)
	if err != nil {
		return fmt.Errorf("sync session: %w", err)
	}
	s.log.Debug().Str("revision", snap.rev).Msg("session changed elsewhere, reloaded")
	s.install(snap)
	return nil
}

// readLocked reads every key of the session. Corrupt data is removed and
// reads as the empty session. Callers hold writeMu.
func (s *SessionStore) readLocked(ctx context.Context) (snapshot, error) {
	raw := make(map[string]string, len(domain.SessionKeys))
	for _, key := range domain.SessionKeys {
		v, ok, err := s.storage.Get(ctx, key)
		if err != nil {
			return snapshot{}, fmt.Errorf("read %s: %w", key, err)
		}
		if ok {
			raw[key] = v
		}
	}

	snap := snapshot{state: domain.EmptySession(), rev: raw[domain.KeyRevision]}
	if raw[domain.KeyUser] == "" || raw[domain.KeyToken] == "" {
		return snap, nil
	}

	state, err := s.decode(raw)
	if err != nil {
		s.log.Warn().Err(err).Msg("discarding unreadable stored session")
		if err := s.storage.Delete(ctx, domain.SessionKeys...); err != nil {
			return snapshot{}, fmt.Errorf("clear unreadable session: %w", err)
		}
		return snapshot{state: domain.EmptySession()}, nil
	}

	snap.state = state
	snap.storedToken = raw[domain.KeyToken]
	return snap, nil
}

func (s *SessionStore) decode(raw map[string]string) (domain.SessionState, error) {
	var user domain.UserProfile
	if err := json.Unmarshal([]byte(raw[domain.KeyUser]), &user); err != nil {
		return domain.SessionState{}, fmt.Errorf("parse %s: %w", domain.KeyUser, err)
	}
	if _, err := s.openToken(raw[domain.KeyToken]); err != nil {
		return domain.SessionState{}, fmt.Errorf("open %s: %w", domain.KeyToken, err)
	}

	state := domain.SessionState{User: &user, IsAuthenticated: true, Role: domain.RoleGuest}

	if v := raw[domain.KeyRole]; v != "" {
		role, err := domain.ParseRole(v)
		if err != nil {
			return domain.SessionState{}, fmt.Errorf("parse %s: %w", domain.KeyRole, err)
		}
		state.Role = role
	}

	if v := raw[domain.KeyGuildMember]; v != "" {
		var member domain.GuildMember
		if err := json.Unmarshal([]byte(v), &member); err != nil {
			return domain.SessionState{}, fmt.Errorf("parse %s: %w", domain.KeyGuildMember, err)
		}
		state.GuildMember = &member
	}

	return state, nil
}

// persistLocked writes the whole session as one batch under a new revision
// and returns that revision. Callers hold writeMu.
func (s *SessionStore) persistLocked(ctx context.Context, state domain.SessionState, storedToken string) (string, error) {
	userJSON, err := json.Marshal(state.User)
	if err != nil {
		return "", fmt.Errorf("encode user: %w", err)
	}

	rev := s.newRevision()
	b := ports.Batch{Set: map[string]string{
		domain.KeyUser:     string(userJSON),
		domain.KeyToken:    storedToken,
		domain.KeyRole:     string(state.Role),
		domain.KeyRevision: rev,
	}}
	if state.GuildMember != nil {
		memberJSON, err := json.Marshal(state.GuildMember)
		if err != nil {
			return "", fmt.Errorf("encode guild member: %w", err)
		}
		b.Set[domain.KeyGuildMember] = string(memberJSON)
	} else {
		b.Delete = []string{domain.KeyGuildMember}
	}

	if err := s.storage.Apply(ctx, b); err != nil {
		return "", err
	}
	return rev, nil
}

// SetAuth persists a freshly authenticated session and publishes it. The
// previous session is replaced wholesale: a nil member removes any stored
// membership record. Either every key is written or none is.
func (s *SessionStore) SetAuth(ctx context.Context, user domain.UserProfile, token string, role domain.Role, member *domain.GuildMember) error {
	role, err := domain.ParseRole(string(role))
	if err != nil {
		return err
	}
	storedToken, err := s.sealToken(token)
	if err != nil {
		return fmt.Errorf("set auth: seal token: %w", err)
	}

	u := user
	var m *domain.GuildMember
	if member != nil {
		mc := *member
		m = &mc
	}
	next := domain.SessionState{User: &u, IsAuthenticated: true, Role: role, GuildMember: m}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rev, err := s.persistLocked(ctx, next, storedToken)
	if err != nil {
		return fmt.Errorf("set auth: %w", err)
	}
	s.install(snapshot{state: next, storedToken: storedToken, rev: rev})
	return nil
}

// ClearAuth removes every persisted key and resets to the empty session.
func (s *SessionStore) ClearAuth(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.storage.Delete(ctx, domain.SessionKeys...); err != nil {
		return fmt.Errorf("clear auth: %w", err)
	}
	s.install(snapshot{state: domain.EmptySession()})
	return nil
}

// UpdateRole persists and publishes a new role for an authenticated session.
// The whole session is rewritten so every key shares one expiry.
func (s *SessionStore) UpdateRole(ctx context.Context, role domain.Role) error {
	role, err := domain.ParseRole(string(role))
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	next := s.State()
	if !next.IsAuthenticated {
		return domain.ErrNotAuthenticated
	}
	next.Role = role

	rev, err := s.persistLocked(ctx, next, s.storedToken)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	s.install(snapshot{state: next, storedToken: s.storedToken, rev: rev})
	return nil
}

// GetStoredToken returns the persisted access token, if any.
func (s *SessionStore) GetStoredToken(ctx context.Context) (string, bool, error) {
	v, ok, err := s.storage.Get(ctx, domain.KeyToken)
	if err != nil || !ok || v == "" {
		return "", false, err
	}
	token, err := s.openToken(v)
	if err != nil {
		return "", false, fmt.Errorf("open stored token: %w", err)
	}
	return token, true, nil
}

// State returns a snapshot of the current session. Callers must treat the
// referenced user and member as read-only.
func (s *SessionStore) State() domain.SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe calls fn with the current state and again after every change.
// The returned func removes the subscription; it is safe to call twice.
func (s *SessionStore) Subscribe(fn func(domain.SessionState)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	current := s.state
	s.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Subscribers reports how many observers are attached.
func (s *SessionStore) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

// install records what is now persisted and publishes its state. Callers
// hold writeMu.
func (s *SessionStore) install(snap snapshot) {
	s.rev = snap.rev
	s.storedToken = snap.storedToken
	s.publish(snap.state)
}

// publish swaps the state and notifies subscribers outside the state lock.
// Callers hold writeMu.
func (s *SessionStore) publish(next domain.SessionState) {
	s.mu.Lock()
	s.state = next
	fns := make([]func(domain.SessionState), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(next)
	}
}

func (s *SessionStore) sealToken(token string) (string, error) {
	if s.sealer == nil {
		return token, nil
	}
	return s.sealer.Seal(token)
}

func (s *SessionStore) openToken(stored string) (string, error) {
	if s.sealer == nil {
		return stored, nil
	}
	return s.sealer.Open(stored)
}
