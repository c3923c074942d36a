package profilestore

import (
	"context"
	"sync"
)

// MemoryStore keeps profiles in a map. Used in tests and by the CLI when no
// database is configured.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Profile
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]Profile)}
}

func (s *MemoryStore) Get(_ context.Context, uid string) (*Profile, error) {
	if uid == "" {
		return nil, ErrEmptyUID
	}

	s.mu.RLock()
	p, ok := s.docs[uid]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) Set(_ context.Context, uid string, p Profile) error {
	if uid == "" {
		return ErrEmptyUID
	}
	p.UID = uid

	s.mu.Lock()
	s.docs[uid] = p
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored profiles.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
