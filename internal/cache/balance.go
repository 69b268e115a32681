// Package cache holds the hot read path for balance projections.
// Postgres stays the source of truth: the cache is refreshed after every
// append and warmed from the database on miss, so losing it only costs a
// round trip.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/reputalia/creditos/internal/models"
)

const defaultTTL = 10 * time.Minute

type BalanceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// Connect to redis and ping it to fail fast on a bad address
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("bad redis address: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

func NewBalanceCache(rdb *redis.Client, ttl time.Duration) *BalanceCache {
	if ttl == 0 {
		ttl = defaultTTL
	}

	return &BalanceCache{rdb: rdb, ttl: ttl}
}

func key(accountID uuid.UUID) string {
	return "balance:" + accountID.String()
}

// Get cached balance
// Second value reports whether the balance was found
func (c *BalanceCache) Get(ctx context.Context, accountID uuid.UUID) (models.Balance, bool) {
	var balance models.Balance

	data, err := c.rdb.Get(ctx, key(accountID)).Bytes()
	if err != nil {
		return balance, false
	}

	if err := json.Unmarshal(data, &balance); err != nil {
		// Stale or corrupted entry, drop it and fall back to the database
		c.rdb.Del(ctx, key(accountID))
		return balance, false
	}

	return balance, true
}

// Set stores the balance, overwriting whatever was cached before
func (c *BalanceCache) Set(ctx context.Context, balance models.Balance) error {
	data, err := json.Marshal(balance)
	if err != nil {
		return fmt.Errorf("failed to encode balance: %w", err)
	}

	if err := c.rdb.Set(ctx, key(balance.AccountID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache balance: %w", err)
	}

	return nil
}

// Invalidate drops the cached balance for the account
func (c *BalanceCache) Invalidate(ctx context.Context, accountID uuid.UUID) error {
	return c.rdb.Del(ctx, key(accountID)).Err()
}
