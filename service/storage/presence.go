package storage

import (
	"context"
	"sync"
	"time"
)

// Entry is where an identity is currently connected.
type Entry struct {
	ConnID string
	NodeID string
	Since  time.Time
}

// PresenceStore maps an identity to at most one connection.
type PresenceStore interface {
	// Get returns the entry for identity, ok=false when none is registered.
	Get(ctx context.Context, identity string) (Entry, bool, error)
	// Set overwrites the entry and returns the one it replaced.
	Set(ctx context.Context, identity string, e Entry) (prev Entry, replaced bool, err error)
	// Delete removes the entry only if it still points at connID.
	Delete(ctx context.Context, identity, connID string) (bool, error)
	// Touch extends the entry lifetime if it still points at connID.
	Touch(ctx context.Context, identity, connID string) (bool, error)
	// Online reports which of identities have an entry.
	Online(ctx context.Context, identities []string) (map[string]bool, error)
}

// MemoryStore is the single process PresenceStore.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (s *MemoryStore) Get(_ context.Context, identity string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[identity]
	return e, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, identity string, e Entry) (Entry, bool, error) {
	if e.Since.IsZero() {
		e.Since = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.entries[identity]
	s.entries[identity] = e
	return prev, ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, identity, connID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[identity]
	if !ok || e.ConnID != connID {
		return false, nil
	}
	delete(s.entries, identity)
	return true, nil
}

func (s *MemoryStore) Touch(_ context.Context, identity, connID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[identity]
	return ok && e.ConnID == connID, nil
}

func (s *MemoryStore) Online(_ context.Context, identities []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]bool, len(identities))
	for _, id := range identities {
		_, out[id] = s.entries[id]
	}
	return out, nil
}

// Len is the number of registered identities.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
