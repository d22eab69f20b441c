package profiler

import (
	"context"
	"sync"
)

// DefaultCapacity is the number of profiles a MemoryStore keeps.
const DefaultCapacity = 100

// MemoryStore keeps the most recent profiles in memory.
type MemoryStore struct {
	mu       sync.Mutex
	capacity int
	profiles map[string]*Profile
	order    []string
}

var _ ProfileStore = (*MemoryStore)(nil)

// NewMemoryStore returns a store holding at most capacity profiles; the
// oldest one is evicted first.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryStore{capacity: capacity, profiles: map[string]*Profile{}}
}

func (s *MemoryStore) Save(_ context.Context, p *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.profiles[p.Token]; !ok {
		s.order = append(s.order, p.Token)
	}
	s.profiles[p.Token] = p

	for len(s.order) > s.capacity {
		delete(s.profiles, s.order[0])
		s.order = s.order[1:]
	}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, token string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[token]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// Len returns the number of stored profiles.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.profiles)
}
