package resilience

import (
	"context"
	"testing"
	"time"
)

func TestBreakerOpensOnFailureRatio(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(4, 0.5, time.Minute)

	b.Report(ctx, true)
	b.Report(ctx, false)
	b.Report(ctx, false)
	if b.State() != Closed {
		t.Fatalf("breaker opened before min requests, state %s", b.State())
	}

	b.Report(ctx, false)
	if b.State() != Open {
		t.Fatalf("expected open after 3/4 failures, state %s", b.State())
	}
	if b.Allow(ctx) {
		t.Fatal("open breaker must refuse requests")
	}
}

func TestBreakerStaysClosedOnHealthyTraffic(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(3, 0.5, time.Minute)
	for i := 0; i < 20; i++ {
		b.Report(ctx, true)
	}
	b.Report(ctx, false)
	if b.State() != Closed {
		t.Fatalf("single failure in healthy traffic opened the breaker, state %s", b.State())
	}
	if !b.Allow(ctx) {
		t.Fatal("closed breaker must allow requests")
	}
}

func TestBreakerHalfOpenProbeClosesOnSuccess(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(1, 0.5, 5*time.Millisecond)
	b.Report(ctx, false)
	if b.State() != Open {
		t.Fatalf("expected open, state %s", b.State())
	}

	time.Sleep(10 * time.Millisecond)
	if !b.Allow(ctx) {
		t.Fatal("cool-off elapsed, probe must be allowed")
	}
	if b.State() != HalfOpen {
		t.Fatalf("expected half_open after probe admission, state %s", b.State())
	}

	b.Report(ctx, true)
	if b.State() != Closed {
		t.Fatalf("successful probe must close, state %s", b.State())
	}
}

func TestBreakerHalfOpenProbeReopensOnFailure(t *testing.T) {
	ctx := context.Background()
	b := NewBreaker(1, 0.5, 5*time.Millisecond)
	b.Report(ctx, false)

	time.Sleep(10 * time.Millisecond)
	if !b.Allow(ctx) {
		t.Fatal("cool-off elapsed, probe must be allowed")
	}
	b.Report(ctx, false)
	if b.State() != Open {
		t.Fatalf("failed probe must reopen, state %s", b.State())
	}
	if b.Allow(ctx) {
		t.Fatal("reopened breaker must refuse requests")
	}
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		Closed:   "closed",
		Open:     "open",
		HalfOpen: "half_open",
		State(9): "unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}

func TestBackoffGrowsExponentially(t *testing.T) {
	base := 100 * time.Millisecond
	for attempt, want := range map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 400 * time.Millisecond,
	} {
		if got := Backoff(base, attempt, 0); got != want {
			t.Errorf("Backoff(attempt %d) = %s, want %s", attempt, got, want)
		}
	}
}

func TestBackoffJitterStaysWithinBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 50; i++ {
		d := Backoff(base, 2, 0.2)
		if d < 160*time.Millisecond || d > 240*time.Millisecond {
			t.Fatalf("jittered backoff %s outside [160ms, 240ms]", d)
		}
	}
}
