package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates access to one checkout across multiple
// replicas. The engine itself assumes at most one concurrent transition per
// checkout; this is how the surrounding system enforces that assumption when
// it runs more than one instance.
type DistributedLocker interface {
	// Lock attempts to acquire a distributed lock for the given key (e.g. the
	// checkout ID). It blocks until the lock is acquired or the context is
	// canceled. Returns an UnlockFunc that MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
