package ratelimit

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock returns a limiter whose clock the test advances by hand.
func fakeClock(t *testing.T, limit Limit) (*Limiter, func(time.Duration)) {
	t.Helper()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newLimiter(limit, func() time.Time { return now })
	return l, func(d time.Duration) { now = now.Add(d) }
}

func TestPerMinute(t *testing.T) {
	got := PerMinute(30, 5)
	if got.Rate != 0.5 || got.Burst != 5 {
		t.Errorf("PerMinute(30, 5) = %+v, want {0.5 5}", got)
	}
}

func TestAllow_Burst(t *testing.T) {
	l, _ := fakeClock(t, Limit{Rate: 1, Burst: 3})

	for i := 0; i < 3; i++ {
		if !l.Allow("k") {
			t.Fatalf("request %d rejected within burst", i+1)
		}
	}
	if l.Allow("k") {
		t.Error("request after burst exhaustion should be rejected")
	}
}

func TestAllow_Refill(t *testing.T) {
	l, advance := fakeClock(t, Limit{Rate: 10, Burst: 2})
	l.Allow("k")
	l.Allow("k")
	if l.Allow("k") {
		t.Fatal("expected rejection after burst")
	}

	advance(200 * time.Millisecond)
	if !l.Allow("k") || !l.Allow("k") {
		t.Error("expected two tokens after 200ms at 10/s")
	}
	if l.Allow("k") {
		t.Error("expected rejection after refilled tokens used")
	}
}

func TestTokens_CappedAtBurst(t *testing.T) {
	l, advance := fakeClock(t, Limit{Rate: 100, Burst: 4})
	l.Allow("k")
	advance(time.Hour)

	if got := l.Tokens("k"); got != 4 {
		t.Errorf("Tokens() = %v, want 4", got)
	}
	if got := l.Tokens("k"); got != 4 {
		t.Errorf("Tokens() consumed a token: got %v", got)
	}
}

func TestAllow_KeysIndependent(t *testing.T) {
	l, _ := fakeClock(t, Limit{Rate: 0, Burst: 1})
	if !l.Allow("a") || !l.Allow("b") {
		t.Fatal("first request per key should be allowed")
	}
	if l.Allow("a") {
		t.Error("second request for a should be rejected")
	}
}

func TestAllow_Concurrent(t *testing.T) {
	l, _ := fakeClock(t, Limit{Rate: 0, Burst: 50})

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("k") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want 50", allowed)
	}
}

func TestNewToolLimiters(t *testing.T) {
	tl := NewToolLimiters()
	for name := range DefaultLimits {
		if tl[name] == nil {
			t.Errorf("missing limiter for %s", name)
		}
	}
}

func TestCheckLimit(t *testing.T) {
	tl := NewToolLimitersFrom(map[string]Limit{"episim_simulate": {Rate: 0, Burst: 1}})

	if err := CheckLimit(tl, "episim_simulate"); err != nil {
		t.Fatalf("first call error = %v", err)
	}
	err := CheckLimit(tl, "episim_simulate")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("second call error = %v, want ErrRateLimited", err)
	}

	for i := 0; i < 10; i++ {
		if err := CheckLimit(tl, "unknown_tool"); err != nil {
			t.Fatalf("unlimited tool error = %v", err)
		}
	}
}
