// Package file persists checkouts as JSON files on the local filesystem, one
// file per checkout. It suits single-process CLI use; multi-process hosts
// should pick the Redis adapter instead.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ferrou/turnstile/pkg/domain"
)

// Store implements ports.CheckoutStore using the local filesystem. The
// version check is guarded by a process-wide mutex, so concurrent writers in
// the same process get proper optimistic concurrency; writes themselves are
// atomic (temp file, fsync, rename).
type Store struct {
	BasePath string

	mu sync.Mutex
}

// New creates a Store rooted at basePath. If basePath is empty it defaults
// to ".turnstile/checkouts".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".turnstile", "checkouts")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.BasePath, id+".json")
}

// Save persists the checkout if the caller's version matches the stored one,
// then bumps both. A version of zero means the record must not exist yet.
func (s *Store) Save(ctx context.Context, c *domain.Checkout) error {
	if c.ID == "" {
		return fmt.Errorf("checkout ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(c.ID)
	switch {
	case os.IsNotExist(err):
		if c.Version != 0 {
			return domain.ErrVersionConflict
		}
	case err != nil:
		return err
	default:
		if current.Version != c.Version {
			return domain.ErrVersionConflict
		}
	}

	next := c.Clone()
	next.Version = c.Version + 1
	if err := s.write(next); err != nil {
		return err
	}
	c.Version = next.Version
	return nil
}

// Load retrieves a checkout, or domain.ErrCheckoutNotFound.
func (s *Store) Load(ctx context.Context, id string) (*domain.Checkout, error) {
	if id == "" {
		return nil, fmt.Errorf("checkout ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.read(id)
	if os.IsNotExist(err) {
		return nil, domain.ErrCheckoutNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes the checkout file. Deleting a missing checkout is a no-op.
func (s *Store) Delete(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("checkout ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkout file: %w", err)
	}
	return nil
}

// List returns all stored checkout IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read checkout directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) read(id string) (*domain.Checkout, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, err
	}

	var c domain.Checkout
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout: %w", err)
	}
	return &c, nil
}

// write lands the payload atomically: temp file in the same directory, fsync,
// rename over the destination.
func (s *Store) write(c *domain.Checkout) error {
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure checkout directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkout: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+c.ID+"-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path(c.ID)); err != nil {
		return fmt.Errorf("failed to finalize checkout file: %w", err)
	}
	return nil
}
