// Package ratelimit keeps a Redis sliding window over order submissions so a
// misbehaving client cannot flood the order platform through the API.
package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Sliding counts attempts per key inside a rolling time window backed by a
// Redis sorted set. A nil client disables limiting and always admits.
type Sliding struct {
	Client *redis.Client
	Prefix string
}

// Take records one attempt under key and reports whether it fits the window,
// how many attempts remain and when the window resets.
func (s Sliding) Take(ctx context.Context, key string, window time.Duration, max int) (allowed bool, remaining int, resetAt time.Time, err error) {
	resetAt = time.Now().Add(window)
	if s.Client == nil || max <= 0 || window <= 0 {
		return true, max, resetAt, nil
	}

	now := time.Now()
	cutoff := strconv.FormatInt(now.Add(-window).UnixNano(), 10)
	entry := redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()}

	bucket := s.Prefix + key
	pipe := s.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, bucket, "-inf", cutoff)
	pipe.ZAdd(ctx, bucket, entry)
	count := pipe.ZCard(ctx, bucket)
	pipe.Expire(ctx, bucket, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, 0, resetAt, err
	}

	taken := int(count.Val())
	remaining = max - taken
	if remaining < 0 {
		remaining = 0
	}
	return taken <= max, remaining, resetAt, nil
}
