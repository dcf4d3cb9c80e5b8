package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/ferrou/turnstile/pkg/adapters/redis"
	"github.com/ferrou/turnstile/pkg/domain"
	"github.com/ferrou/turnstile/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupClient(t *testing.T) *backend.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)

	return backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
}

func TestRedisStore_Contract(t *testing.T) {
	store := redis.NewFromClient(setupClient(t))
	ports.RunCheckoutStoreContract(t, store)
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()

	c := domain.NewCheckout("chk-ttl", domain.StepCart)
	require.NoError(t, store.Save(ctx, c))

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "chk-ttl")

	// Fast forward past the TTL; the payload key expires inside miniredis.
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "chk-ttl")
	assert.ErrorIs(t, err, domain.ErrCheckoutNotFound)

	// The index is pruned lazily against the wall clock, so wait out the TTL
	// in real time before asserting the cleanup.
	time.Sleep(1200 * time.Millisecond)

	ids, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewCheckout("my-checkout", domain.StepCart)))

	assert.True(t, mr.Exists("custom:app:my-checkout"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, ids, "my-checkout")
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	client := setupClient(t)
	locker := redis.NewLocker(client, "turnstile:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "chk-1", time.Minute)
	require.NoError(t, err)

	// A second acquisition must block until the first is released.
	blocked, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(blocked, "chk-1", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock2, err := locker.Lock(ctx, "chk-1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}
