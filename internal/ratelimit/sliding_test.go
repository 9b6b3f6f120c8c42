package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestSlidingTake(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	window := Sliding{Client: client, Prefix: "test:submit:"}
	ctx := context.Background()
	per := 2 * time.Second
	max := 2

	for i := 0; i < max; i++ {
		allowed, remaining, _, err := window.Take(ctx, "session-1", per, max)
		if err != nil {
			t.Fatalf("Take %d: %v", i, err)
		}
		if !allowed {
			t.Fatalf("attempt %d should fit the window", i)
		}
		if remaining != max-(i+1) {
			t.Fatalf("attempt %d: remaining = %d", i, remaining)
		}
	}

	allowed, remaining, _, err := window.Take(ctx, "session-1", per, max)
	if err != nil {
		t.Fatalf("Take over limit: %v", err)
	}
	if allowed || remaining != 0 {
		t.Fatalf("window exhausted, got allowed=%v remaining=%d", allowed, remaining)
	}

	mr.FastForward(per)

	allowed, _, _, err = window.Take(ctx, "session-1", per, max)
	if err != nil {
		t.Fatalf("Take after window: %v", err)
	}
	if !allowed {
		t.Fatal("expired window must admit again")
	}
}

func TestSlidingTakeKeysAreIndependent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	window := Sliding{Client: client, Prefix: "test:submit:"}
	ctx := context.Background()

	if allowed, _, _, _ := window.Take(ctx, "session-a", time.Second, 1); !allowed {
		t.Fatal("first attempt for session-a refused")
	}
	if allowed, _, _, _ := window.Take(ctx, "session-a", time.Second, 1); allowed {
		t.Fatal("second attempt for session-a should be refused")
	}
	if allowed, _, _, _ := window.Take(ctx, "session-b", time.Second, 1); !allowed {
		t.Fatal("session-b must not share session-a's window")
	}
}

func TestSlidingTakeNilClientAdmits(t *testing.T) {
	window := Sliding{}
	allowed, remaining, _, err := window.Take(context.Background(), "any", time.Second, 3)
	if err != nil {
		t.Fatalf("Take: %v", err)
	}
	if !allowed || remaining != 3 {
		t.Fatalf("nil client must admit, got allowed=%v remaining=%d", allowed, remaining)
	}
}
