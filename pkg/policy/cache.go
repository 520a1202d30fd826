package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a process-wide, tenant-scoped cache fronting a Store: the
// serialized policy set for a tenant is fetched once per TTL window
// and invalidated explicitly when a policy write occurs, grounded on
// the teacher's RedisLimiterStore's Addr/Password/DB client setup.
// Policies aren't cached as live Go values (a compiled
// EntityResourceConstraint holds an unexported cel.Program, so callers
// marshal/unmarshal their own serializable snapshot into Get/Set).
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache dials a Redis client for the policy cache.
func NewCache(addr, password string, db int, ttl time.Duration) *Cache {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	return &Cache{client: rdb, ttl: ttl}
}

func cacheKey(tenantID string) string { return fmt.Sprintf("policy:tenant:%s", tenantID) }

// Get fetches the cached snapshot for tenantID. The second return
// value is false on a cache miss (and only then, is the error nil).
func (c *Cache) Get(ctx context.Context, tenantID string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, cacheKey(tenantID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("policy: cache get: %w", err)
	}
	return data, true, nil
}

// Set stores a tenant's serialized policy set snapshot.
func (c *Cache) Set(ctx context.Context, tenantID string, data []byte) error {
	if err := c.client.Set(ctx, cacheKey(tenantID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("policy: cache set: %w", err)
	}
	return nil
}

// Invalidate evicts tenantID's cached snapshot — called after any
// policy/team/role write affecting that tenant.
func (c *Cache) Invalidate(ctx context.Context, tenantID string) error {
	if err := c.client.Del(ctx, cacheKey(tenantID)).Err(); err != nil {
		return fmt.Errorf("policy: cache invalidate: %w", err)
	}
	return nil
}
