package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/translation-hub/hub-auth/internal/core/ports"
)

// SessionRegistry hands out one live SessionStore per session id so every
// request and subscriber for a session observes the same state. Cached
// stores are checked against storage on every Open, so writes made by other
// processes sharing the storage are picked up.
type SessionRegistry struct {
	storage ports.SessionStorage
	sealer  ports.TokenSealer
	log     zerolog.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*registryEntry

	// Forget bumps a session's generation while hydrates of it are in
	// flight; a hydrate that started under an older generation is discarded.
	gens     map[string]uint64
	inflight map[string]int
}

type registryEntry struct {
	store    *SessionStore
	lastUsed time.Time
}

func NewSessionRegistry(storage ports.SessionStorage, sealer ports.TokenSealer, log zerolog.Logger) *SessionRegistry {
	return &SessionRegistry{
		storage:  storage,
		sealer:   sealer,
		log:      log,
		now:      time.Now,
		entries:  make(map[string]*registryEntry),
		gens:     make(map[string]uint64),
		inflight: make(map[string]int),
	}
}

// Open returns the live store for sid, hydrating it from storage on first use
// and syncing it with storage on later ones.
func (r *SessionRegistry) Open(ctx context.Context, sid string) (*SessionStore, error) {
	for {
		r.mu.Lock()
		if e, ok := r.entries[sid]; ok {
			e.lastUsed = r.now()
			store := e.store
			r.mu.Unlock()
			if err := store.Sync(ctx); err != nil {
				return nil, err
			}
			return store, nil
		}
		gen := r.gens[sid]
		r.inflight[sid]++
		r.mu.Unlock()

		store, err := NewSessionStore(ctx, scopedStorage{inner: r.storage, prefix: sessionKeyPrefix(sid)}, r.sealer,
			r.log.With().Str("session_id", sid).Logger())

		r.mu.Lock()
		stale := r.gens[sid] != gen
		if r.inflight[sid]--; r.inflight[sid] == 0 {
			delete(r.inflight, sid)
			delete(r.gens, sid)
		}
		if err != nil {
			r.mu.Unlock()
			return nil, err
		}
		if stale {
			// Forgotten while hydrating: what was read may already be gone.
			r.mu.Unlock()
			continue
		}
		// Another request may have hydrated the same session meanwhile.
		if e, ok := r.entries[sid]; ok {
			e.lastUsed = r.now()
			r.mu.Unlock()
			return e.store, nil
		}
		r.entries[sid] = &registryEntry{store: store, lastUsed: r.now()}
		r.mu.Unlock()
		return store, nil
	}
}

// Forget drops the live store for sid and invalidates hydrates of it that
// are still running. Persisted data is untouched.
func (r *SessionRegistry) Forget(sid string) {
	r.mu.Lock()
	delete(r.entries, sid)
	if r.inflight[sid] > 0 {
		r.gens[sid]++
	}
	r.mu.Unlock()
}

// SyncObserved syncs every store that has subscribers, so observers learn of
// changes made by other processes without waiting for a request. It returns
// the first storage error.
func (r *SessionRegistry) SyncObserved(ctx context.Context) error {
	r.mu.Lock()
	stores := make([]*SessionStore, 0, len(r.entries))
	for _, e := range r.entries {
		if e.store.Subscribers() > 0 {
			stores = append(stores, e.store)
		}
	}
	r.mu.Unlock()

	var first error
	for _, st := range stores {
		if err := st.Sync(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Prune evicts stores idle for longer than maxIdle that have no subscribers
// and returns how many were evicted.
func (r *SessionRegistry) Prune(maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for sid, e := range r.entries {
		if e.lastUsed.Before(cutoff) && e.store.Subscribers() == 0 {
			delete(r.entries, sid)
			n++
		}
	}
	return n
}

// Len reports the number of live stores.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func sessionKeyPrefix(sid string) string {
	return "session:" + sid + ":"
}

// scopedStorage namespaces every key under a session prefix.
type scopedStorage struct {
	inner  ports.SessionStorage
	prefix string
}

func (s scopedStorage) Get(ctx context.Context, key string) (string, bool, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s scopedStorage) Apply(ctx context.Context, b ports.Batch) error {
	scoped := ports.Batch{Set: make(map[string]string, len(b.Set)), Delete: s.scope(b.Delete)}
	for k, v := range b.Set {
		scoped.Set[s.prefix+k] = v
	}
	return s.inner.Apply(ctx, scoped)
}

func (s scopedStorage) Delete(ctx context.Context, keys ...string) error {
	return s.inner.Delete(ctx, s.scope(keys)...)
}

func (s scopedStorage) scope(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	scoped := make([]string, len(keys))
	for i, k := range keys {
		scoped[i] = s.prefix + k
	}
	return scoped
}
