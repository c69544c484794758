// Package ratelimit throttles MCP tool calls with per-key token buckets.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is returned by CheckLimit when a tool's bucket is empty.
var ErrRateLimited = errors.New("rate limit exceeded")

// Limit describes one bucket: Rate tokens per second, holding at most Burst.
type Limit struct {
	Rate  float64
	Burst int
}

// PerMinute builds a Limit from a per-minute rate.
func PerMinute(n float64, burst int) Limit {
	return Limit{Rate: n / 60.0, Burst: burst}
}

// Limiter is a token bucket limiter keyed by string. Buckets start full.
// It is safe for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	limit   Limit
	buckets map[string]*bucket
	nowFunc func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// NewLimiter creates a limiter allowing rate tokens per second with the given burst.
func NewLimiter(rate float64, burst int) *Limiter {
	return newLimiter(Limit{Rate: rate, Burst: burst}, time.Now)
}

func newLimiter(limit Limit, now func() time.Time) *Limiter {
	return &Limiter{
		limit:   limit,
		buckets: make(map[string]*bucket),
		nowFunc: now,
	}
}

// Allow consumes one token for key and reports whether one was available.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.refill(key)
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// Tokens returns the tokens currently available for key without consuming any.
func (l *Limiter) Tokens(key string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refill(key).tokens
}

// refill brings key's bucket up to date. Caller holds l.mu.
func (l *Limiter) refill(key string) *bucket {
	now := l.nowFunc()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(l.limit.Burst), last: now}
		l.buckets[key] = b
		return b
	}
	if elapsed := now.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = min(b.tokens+l.limit.Rate*elapsed, float64(l.limit.Burst))
		b.last = now
	}
	return b
}

// ToolLimiters maps MCP tool names to their limiters.
type ToolLimiters map[string]*Limiter

// DefaultLimits are the per-tool limits used by the MCP server. Simulations
// and ensembles are the expensive calls; listing is cheap.
var DefaultLimits = map[string]Limit{
	"episim_simulate":      PerMinute(30, 5),
	"episim_ensemble":      PerMinute(6, 2),
	"episim_network":       PerMinute(30, 5),
	"episim_list_networks": PerMinute(60, 10),
	"episim_backup":        PerMinute(5, 2),
}

// NewToolLimiters creates limiters for every tool in DefaultLimits.
func NewToolLimiters() ToolLimiters {
	return NewToolLimitersFrom(DefaultLimits)
}

// NewToolLimitersFrom creates limiters from an explicit limit table.
func NewToolLimitersFrom(limits map[string]Limit) ToolLimiters {
	tl := make(ToolLimiters, len(limits))
	for name, lim := range limits {
		tl[name] = newLimiter(lim, time.Now)
	}
	return tl
}

// CheckLimit consumes a token for toolName. Tools without a limiter are
// never throttled.
func CheckLimit(limiters ToolLimiters, toolName string) error {
	limiter, ok := limiters[toolName]
	if !ok {
		return nil
	}
	if !limiter.Allow(toolName) {
		return fmt.Errorf("%w for %s, please try again shortly", ErrRateLimited, toolName)
	}
	return nil
}
