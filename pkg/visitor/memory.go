package visitor

import (
	"context"
	"sync"
	"time"

	"github.com/txn2/storefront/pkg/cart"
)

// MemoryStore implements Store using an in-memory map with TTL-based expiration.
type MemoryStore struct {
	mu       sync.RWMutex
	visitors map[string]*Visitor
	ttl      time.Duration
}

// NewMemoryStore creates a new in-memory visitor store.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		visitors: make(map[string]*Visitor),
		ttl:      ttl,
	}
}

// Create persists a new visitor.
func (s *MemoryStore) Create(_ context.Context, v *Visitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.visitors[v.ID] = v.clone()
	return nil
}

// Get retrieves a visitor by ID. Returns nil, nil if not found or expired.
func (s *MemoryStore) Get(_ context.Context, id string) (*Visitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.visitors[id]
	if !ok {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for not-found
	}
	if time.Now().After(v.ExpiresAt) {
		return nil, nil //nolint:nilnil // Store interface specifies nil,nil for expired
	}
	return v.clone(), nil
}

// Touch updates LastActiveAt and extends ExpiresAt by the store's TTL.
func (s *MemoryStore) Touch(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.visitors[id]
	if !ok {
		return nil
	}

	now := time.Now()
	v.LastActiveAt = now
	v.ExpiresAt = now.Add(s.ttl)
	return nil
}

// Delete removes a visitor.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.visitors, id)
	return nil
}

// SaveCart replaces the guest cart snapshot.
func (s *MemoryStore) SaveCart(_ context.Context, id string, lines []cart.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.visitors[id]
	if !ok {
		return nil
	}
	v.GuestCart = append([]cart.Line{}, lines...)
	return nil
}

// SetUser records the authenticated identity of the visitor.
func (s *MemoryStore) SetUser(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.visitors[id]; ok {
		v.UserID = userID
	}
	return nil
}

// Cleanup removes expired visitors.
func (s *MemoryStore) Cleanup(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, v := range s.visitors {
		if now.After(v.ExpiresAt) {
			delete(s.visitors, id)
		}
	}
	return nil
}

// Len returns the number of stored visitors, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visitors)
}

// Close releases nothing; the map is dropped with the store.
func (*MemoryStore) Close() error {
	return nil
}

// Verify interface compliance.
var _ Store = (*MemoryStore)(nil)
