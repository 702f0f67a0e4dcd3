// Package ban keeps temporary bans. The Redis store caches running bans as
// TTL keys:
//
//	Key:   ban:<user_id>
//	Value: <expiry unix seconds>
//	TTL:   time until expiry
//
// The Ledger combines the cache with durable storage and an in-process view.
package ban

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// BanPrefix is the Redis key prefix for cached bans.
const BanPrefix = "ban:"

// Store caches ban expiries in Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a new ban cache using the provided Redis client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(userID int64) string {
	return BanPrefix + strconv.FormatInt(userID, 10)
}

// Get returns the cached expiry. found is false when no ban is cached.
func (s *Store) Get(ctx context.Context, userID int64) (time.Time, bool, error) {
	val, err := s.client.Get(ctx, key(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("ban: cache get: %w", err)
	}
	return time.Unix(val, 0), true, nil
}

// Set caches a ban until expiry. Bans already in the past are not cached.
func (s *Store) Set(ctx context.Context, userID int64, expiry time.Time) error {
	ttl := time.Until(expiry)
	if ttl <= 0 {
		return s.Delete(ctx, userID)
	}
	if err := s.client.Set(ctx, key(userID), expiry.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("ban: cache set: %w", err)
	}
	return nil
}

// Delete removes a cached ban immediately.
func (s *Store) Delete(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("ban: cache delete: %w", err)
	}
	return nil
}
