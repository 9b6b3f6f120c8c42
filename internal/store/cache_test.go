package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/mebleko/backend-oferta/internal/quote"
)

func newTestCache(t *testing.T) (*SnapshotCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSnapshotCache(client, 5*time.Minute), mr
}

func cachedQuote() *quote.Quote {
	return &quote.Quote{
		ID:     7,
		Number: "OF/2026/007",
		Status: "draft",
		Products: []quote.Product{{
			Index:    1,
			Quantity: 2,
			Variants: []quote.Variant{{
				ID:            11,
				Selected:      true,
				OriginalPrice: quote.Cost{Net: decimal.NewFromInt(100), Gross: decimal.NewFromInt(123)},
				FinalPrice:    quote.Cost{Net: decimal.NewFromInt(100), Gross: decimal.NewFromInt(123)},
			}},
		}},
	}
}

func TestSnapshotCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	var miss quote.Quote
	hit, err := cache.Get(ctx, 7, &miss)
	if err != nil {
		t.Fatalf("Get before Set: %v", err)
	}
	if hit {
		t.Fatal("expected a miss on an empty cache")
	}

	if err := cache.Set(ctx, 7, cachedQuote()); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got quote.Quote
	hit, err = cache.Get(ctx, 7, &got)
	if err != nil {
		t.Fatalf("Get after Set: %v", err)
	}
	if !hit {
		t.Fatal("expected a hit after Set")
	}
	if got.Number != "OF/2026/007" || len(got.Products) != 1 {
		t.Fatalf("unexpected cached quote: %+v", got)
	}
	if !got.Products[0].Variants[0].OriginalPrice.Net.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("price lost precision: %s", got.Products[0].Variants[0].OriginalPrice.Net)
	}
}

func TestSnapshotCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	if err := cache.Set(ctx, 7, cachedQuote()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := cache.Invalidate(ctx, 7); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	var got quote.Quote
	hit, err := cache.Get(ctx, 7, &got)
	if err != nil {
		t.Fatalf("Get after Invalidate: %v", err)
	}
	if hit {
		t.Fatal("invalidated snapshot must miss")
	}
}

func TestSnapshotCacheExpires(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)

	if err := cache.Set(ctx, 7, cachedQuote()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(6 * time.Minute)

	var got quote.Quote
	hit, err := cache.Get(ctx, 7, &got)
	if err != nil {
		t.Fatalf("Get after expiry: %v", err)
	}
	if hit {
		t.Fatal("expired snapshot must miss")
	}
}

func TestLoadQuoteSnapshotServedFromCache(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	if err := cache.Set(ctx, 7, cachedQuote()); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// no pool wired: a cache hit must never touch the database
	s := &Store{Cache: cache}
	got, err := s.LoadQuoteSnapshot(ctx, 7)
	if err != nil {
		t.Fatalf("LoadQuoteSnapshot: %v", err)
	}
	if got.ID != 7 || got.Number != "OF/2026/007" {
		t.Fatalf("unexpected snapshot: %+v", got)
	}

	if _, err := s.LoadQuoteSnapshot(ctx, 8); err == nil {
		t.Fatal("cache miss without a pool must fail")
	}
}

func TestSnapshotCacheNilClientDisabled(t *testing.T) {
	ctx := context.Background()
	cache := NewSnapshotCache(nil, 5*time.Minute)

	if err := cache.Set(ctx, 7, cachedQuote()); err != nil {
		t.Fatalf("Set on disabled cache: %v", err)
	}
	var got quote.Quote
	hit, err := cache.Get(ctx, 7, &got)
	if err != nil || hit {
		t.Fatalf("disabled cache must always miss without error, hit=%v err=%v", hit, err)
	}
	if err := cache.Invalidate(ctx, 7); err != nil {
		t.Fatalf("Invalidate on disabled cache: %v", err)
	}
}
