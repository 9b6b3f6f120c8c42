package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SnapshotCache keeps serialized quote snapshots in Redis so repeated
// session opens against the same quote skip the database. Writes through the
// store invalidate the cached entry.
type SnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSnapshotCache constructs a cache helper. A nil client disables caching.
func NewSnapshotCache(client *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{client: client, ttl: ttl}
}

func snapshotKey(quoteID int64) string {
	return fmt.Sprintf("oferta:quote:%d", quoteID)
}

// Get unmarshals a cached snapshot into dst. It reports whether the key existed.
func (c *SnapshotCache) Get(ctx context.Context, quoteID int64, dst any) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	data, err := c.client.Get(ctx, snapshotKey(quoteID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set serialises the snapshot and stores it with the configured TTL.
func (c *SnapshotCache) Set(ctx context.Context, quoteID int64, v any) error {
	if c == nil || c.client == nil || c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, snapshotKey(quoteID), data, c.ttl).Err()
}

// Invalidate drops the cached snapshot after a persisted edit.
func (c *SnapshotCache) Invalidate(ctx context.Context, quoteID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, snapshotKey(quoteID)).Err()
}
