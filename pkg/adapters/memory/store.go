package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ferrou/turnstile/pkg/domain"
)

// Store implements ports.CheckoutStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Checkout
	mu   sync.Mutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Checkout),
	}
}

// Save persists the checkout, enforcing the optimistic version check.
func (s *Store) Save(ctx context.Context, c *domain.Checkout) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored uint64
	if existing, ok := s.data[c.ID]; ok {
		stored = existing.Version
	}
	if c.Version != stored {
		return fmt.Errorf("%w: have %d, stored %d", domain.ErrVersionConflict, c.Version, stored)
	}

	// Deep copy to ensure isolation from the caller's pointer.
	saved := c.Clone()
	saved.Version = stored + 1
	s.data[c.ID] = saved
	c.Version = saved.Version
	return nil
}

// Load retrieves a checkout from memory.
func (s *Store) Load(ctx context.Context, id string) (*domain.Checkout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.data[id]
	if !ok {
		return nil, domain.ErrCheckoutNotFound
	}
	// Copy on read so callers can't mutate store state through the pointer.
	return c.Clone(), nil
}

// Delete removes a checkout.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

// List returns the stored checkout IDs.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}
