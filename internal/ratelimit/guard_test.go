package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestGuardEnforcesLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	guard := Guard{
		Counter: Sliding{Client: client, Prefix: "test:guard:"},
		Key:     func(*http.Request) string { return "session-1" },
		Window:  time.Second,
		Max:     1,
	}
	protected := guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/submit", nil)

	first := httptest.NewRecorder()
	protected.ServeHTTP(first, req.Clone(req.Context()))
	if first.Code != http.StatusOK {
		t.Fatalf("first attempt: status %d", first.Code)
	}

	second := httptest.NewRecorder()
	protected.ServeHTTP(second, req.Clone(req.Context()))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second attempt: status %d, want 429", second.Code)
	}
	if got := second.Header().Get("X-RateLimit-Limit"); got != "1" {
		t.Fatalf("X-RateLimit-Limit = %q", got)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Fatal("429 must carry Retry-After")
	}
}

func TestGuardFailsOpenOnRedisError(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	t.Cleanup(func() { _ = client.Close() })

	var reported error
	guard := Guard{
		Counter: Sliding{Client: client, Prefix: "test:guard:"},
		Key:     func(*http.Request) string { return "session-1" },
		Window:  time.Second,
		Max:     1,
		OnError: func(err error) { reported = err },
	}
	protected := guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	protected.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/submit", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("request must proceed when Redis is down, status %d", rr.Code)
	}
	if reported == nil {
		t.Fatal("expected the Redis error to be reported")
	}
}

func TestGuardWithoutKeyPassesThrough(t *testing.T) {
	guard := Guard{Window: time.Second, Max: 1}
	protected := guard.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	protected.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/submit", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
}
