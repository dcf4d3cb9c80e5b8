package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ferrou/turnstile/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "turnstile:checkout:"

// saveScript performs the optimistic save atomically: compare the stored
// version, write the payload and the bumped version, refresh the TTL, and
// maintain the listing index.
//
// KEYS[1] = payload key, KEYS[2] = version key, KEYS[3] = index key
// ARGV[1] = payload, ARGV[2] = expected version, ARGV[3] = ttl millis (0 = none),
// ARGV[4] = index score, ARGV[5] = checkout id
const saveScript = `
local stored = tonumber(redis.call("GET", KEYS[2]) or "0")
if stored ~= tonumber(ARGV[2]) then
	return -1
end
local next = stored + 1
redis.call("SET", KEYS[1], ARGV[1])
redis.call("SET", KEYS[2], next)
if tonumber(ARGV[3]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[3])
	redis.call("PEXPIRE", KEYS[2], ARGV[3])
end
redis.call("ZADD", KEYS[3], ARGV[4], ARGV[5])
return next
`

// Store implements ports.CheckoutStore on Redis. Checkouts are stored as JSON
// payloads next to an integer version key used for the compare-and-set; a
// sorted set indexes the known IDs for List.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix overrides the default key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithTTL sets an expiration on stored checkouts. Abandoned carts then
// disappear on their own; the index is cleaned up lazily on List.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// NewFromClient creates a Store on an existing Redis client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) payloadKey(id string) string { return s.prefix + id }
func (s *Store) versionKey(id string) string { return s.prefix + id + ":ver" }
func (s *Store) indexKey() string            { return s.prefix + "index" }

// Save persists the checkout if the stored version matches c.Version.
func (s *Store) Save(ctx context.Context, c *domain.Checkout) error {
	next := c.Clone()
	next.Version = c.Version + 1
	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("failed to marshal checkout: %w", err)
	}

	score := float64(0)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).UnixMilli())
	}

	res, err := s.client.Eval(ctx, saveScript,
		[]string{s.payloadKey(c.ID), s.versionKey(c.ID), s.indexKey()},
		payload, c.Version, s.ttl.Milliseconds(), score, c.ID,
	).Int64()
	if err != nil {
		return fmt.Errorf("redis error saving checkout: %w", err)
	}
	if res < 0 {
		return fmt.Errorf("%w: %s at version %d", domain.ErrVersionConflict, c.ID, c.Version)
	}
	c.Version = uint64(res)
	return nil
}

// Load retrieves a checkout by ID.
func (s *Store) Load(ctx context.Context, id string) (*domain.Checkout, error) {
	data, err := s.client.Get(ctx, s.payloadKey(id)).Bytes()
	if errors.Is(err, backend.Nil) {
		return nil, domain.ErrCheckoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis error loading checkout: %w", err)
	}

	var c domain.Checkout
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout %s: %w", id, err)
	}
	return &c, nil
}

// Delete removes a checkout and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.payloadKey(id), s.versionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis error deleting checkout: %w", err)
	}
	return s.client.ZRem(ctx, s.indexKey(), id).Err()
}

// List returns the known checkout IDs. With a TTL configured, index entries
// whose expiry has passed are removed first; the payload keys expired on
// their own.
func (s *Store) List(ctx context.Context) ([]string, error) {
	if s.ttl > 0 {
		now := fmt.Sprintf("%d", time.Now().UnixMilli())
		// Score 0 marks entries without expiry; (0 excludes them.
		if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "(0", now).Err(); err != nil {
			return nil, fmt.Errorf("redis error pruning index: %w", err)
		}
	}
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error listing checkouts: %w", err)
	}
	return ids, nil
}
