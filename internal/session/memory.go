package session

import (
	"context"
	"time"

	"github.com/huelip/huelip/internal/cache"
	"github.com/huelip/huelip/internal/metrics"
)

// DefaultMemoryCapacity bounds MemoryStore when no capacity is given.
const DefaultMemoryCapacity = 10000

// MemoryStore keeps sessions in process.  When full, the least recently
// used session is dropped.
type MemoryStore struct {
	lru *cache.LRU[string, *Session]
	now func() time.Time
}

// NewMemoryStore returns a store holding at most capacity sessions.
// capacity < 1 selects DefaultMemoryCapacity.
func NewMemoryStore(capacity int) *MemoryStore {
	if capacity < 1 {
		capacity = DefaultMemoryCapacity
	}
	lru := cache.New[string, *Session](capacity)
	lru.OnEvict = func(string, *Session) { metrics.ActiveSessions.Dec() }
	return &MemoryStore{lru: lru, now: time.Now}
}

func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	cp := *s
	if m.lru.Add(s.Token, &cp) {
		metrics.ActiveSessions.Inc()
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	s, ok := m.lru.Get(token)
	if !ok {
		return nil, ErrNotFound
	}
	if s.Expired(m.now()) {
		if m.lru.Remove(token) {
			metrics.ActiveSessions.Dec()
		}
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// Delete is a no-op for unknown tokens.
func (m *MemoryStore) Delete(_ context.Context, token string) error {
	if m.lru.Remove(token) {
		metrics.ActiveSessions.Dec()
	}
	return nil
}

// Len reports how many sessions are held, expired ones included.
func (m *MemoryStore) Len() int { return m.lru.Len() }
