package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/ferrou/turnstile/internal/logging"
	"github.com/ferrou/turnstile/pkg/domain"
	"github.com/ferrou/turnstile/pkg/ports"
)

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager serializes access to checkout sessions. The engine core assumes at
// most one concurrent transition attempt per checkout; the Manager is how
// callers honor that assumption. It uses reference counting to garbage
// collect unused locks and optionally layers a distributed lock on top for
// multi-replica deployments.
type Manager struct {
	store ports.CheckoutStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker  ports.DistributedLocker // Optional distributed locker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides the distributed lock TTL (default 30s).
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new session Manager on the given checkout store.
func NewManager(store ports.CheckoutStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return // Should not happen if paired correctly
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// Load retrieves an existing checkout from the store.
func (m *Manager) Load(ctx context.Context, id string) (*domain.Checkout, error) {
	var c *domain.Checkout
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		c, err = m.store.Load(ctx, id)
		return err
	})
	return c, err
}

// LoadOrStart tries to load a checkout. If not found, it initializes a new
// one at startStep and persists it immediately to reserve the ID.
func (m *Manager) LoadOrStart(ctx context.Context, id, startStep string) (*domain.Checkout, error) {
	var c *domain.Checkout
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		c, err = m.store.Load(ctx, id)
		if err == nil {
			return nil
		}

		if err != domain.ErrCheckoutNotFound {
			return fmt.Errorf("failed to check checkout existence: %w", err)
		}

		c = domain.NewCheckout(id, startStep)
		if err := m.store.Save(ctx, c); err != nil {
			return fmt.Errorf("failed to initialize checkout: %w", err)
		}
		return nil
	})
	return c, err
}

// Save persists the checkout under the session lock. A stale version still
// fails with domain.ErrVersionConflict; the lock only serializes attempts
// within this process group, the version check is the cross-replica backstop.
func (m *Manager) Save(ctx context.Context, c *domain.Checkout) error {
	return m.WithLock(ctx, c.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, c)
	})
}

// Delete removes the checkout from the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying checkout store.
func (m *Manager) Store() ports.CheckoutStore {
	return m.store
}

// WithLock executes a function while holding the lock for the checkout.
//
// The lock is not reentrant: inside fn, read and write through Store(), never
// through Load/Save/LoadOrStart, which take the same lock again.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"checkout_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
