package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ListingCache is a read-side cache for the default lot listing. It only
// ever holds committed snapshots, so readers cannot observe half-applied
// consumption. Mutating operations invalidate the tenant's keys; the TTL
// bounds staleness if an invalidation is missed.
type ListingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewListingCache(rdb *redis.Client, ttl time.Duration) *ListingCache {
	return &ListingCache{rdb: rdb, ttl: ttl}
}

func (c *ListingCache) profileKey(tenantID string) string {
	return fmt.Sprintf("stock:profiles:%s", tenantID)
}

func (c *ListingCache) sheetKey(tenantID string) string {
	return fmt.Sprintf("stock:sheets:%s", tenantID)
}

// GetProfiles returns the cached default profile listing, or false on miss.
// Cache errors degrade to a miss; the database stays authoritative.
func (c *ListingCache) GetProfiles(ctx context.Context, tenantID string, dest interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, c.profileKey(tenantID)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

// SetProfiles stores the default profile listing.
func (c *ListingCache) SetProfiles(ctx context.Context, tenantID string, value interface{}) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, c.profileKey(tenantID), data, c.ttl)
}

// GetSheets returns the cached default sheet listing, or false on miss.
func (c *ListingCache) GetSheets(ctx context.Context, tenantID string, dest interface{}) bool {
	if c == nil || c.rdb == nil {
		return false
	}
	data, err := c.rdb.Get(ctx, c.sheetKey(tenantID)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

// SetSheets stores the default sheet listing.
func (c *ListingCache) SetSheets(ctx context.Context, tenantID string, value interface{}) {
	if c == nil || c.rdb == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.rdb.Set(ctx, c.sheetKey(tenantID), data, c.ttl)
}

// Invalidate drops both listings for the tenant after any stock mutation.
func (c *ListingCache) Invalidate(ctx context.Context, tenantID string) {
	if c == nil || c.rdb == nil {
		return
	}
	c.rdb.Del(ctx, c.profileKey(tenantID), c.sheetKey(tenantID))
}
