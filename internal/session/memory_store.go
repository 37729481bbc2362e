package session

import (
	"context"
	"sync"
	"time"

	"tally/internal/domain"
)

type memoryEntry struct {
	identity  domain.Identity
	expiresAt time.Time
}

const sweepInterval = time.Minute

// MemoryStore keeps sessions in process memory. Suitable for a single instance and tests.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]memoryEntry
	now       func() time.Time
	nextSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, id string, identity domain.Identity, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !now.Before(s.nextSweep) {
		s.sweepLocked(now)
		s.nextSweep = now.Add(sweepInterval)
	}

	s.sessions[id] = memoryEntry{
		identity:  identity,
		expiresAt: now.Add(ttl),
	}
	return nil
}

// sweepLocked drops expired sessions whose cookies were never presented again.
func (s *MemoryStore) sweepLocked(now time.Time) {
	for id, entry := range s.sessions {
		if !now.Before(entry.expiresAt) {
			delete(s.sessions, id)
		}
	}
}

func (s *MemoryStore) Load(_ context.Context, id string) (domain.Identity, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.sessions[id]
	if !ok {
		return domain.Identity{}, false, nil
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.sessions, id)
		return domain.Identity{}, false, nil
	}
	return entry.identity, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}
