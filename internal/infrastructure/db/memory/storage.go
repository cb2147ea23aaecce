// Package memory provides process-local session storage for development
// and tests. Nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"github.com/translation-hub/hub-auth/internal/core/ports"
)

// Storage is a mutex-guarded map implementing ports.SessionStorage.
type Storage struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewStorage() *Storage {
	return &Storage{data: make(map[string]string)}
}

func (s *Storage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *Storage) Apply(_ context.Context, b ports.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range b.Set {
		s.data[k] = v
	}
	for _, k := range b.Delete {
		delete(s.data, k)
	}
	return nil
}

func (s *Storage) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Len reports the number of stored keys.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// CodeGuard remembers claimed authorization codes in memory.
type CodeGuard struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

func NewCodeGuard() *CodeGuard {
	return &CodeGuard{claimed: make(map[string]struct{})}
}

func (g *CodeGuard) Claim(_ context.Context, code string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.claimed[code]; ok {
		return false, nil
	}
	g.claimed[code] = struct{}{}
	return true, nil
}
