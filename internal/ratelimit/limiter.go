// Package ratelimit implements the dual token-bucket admission controller
// that every outbound call to the target backend passes through. One bucket
// smooths the per-second ceiling, the other the per-hour ceiling; both must
// hold a token before a call executes.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/spaceferry/spaceferry/internal/debug"
	"github.com/spaceferry/spaceferry/internal/telemetry"
)

// CooldownPeriod is how long the controller backs off after the remote
// service reports too-many-requests, before any further admission.
const CooldownPeriod = 60 * time.Second

// Options configures a Limiter.
type Options struct {
	Enabled           bool
	RequestsPerSecond float64
	RequestsPerHour   float64
	Verbose           bool
}

// rateLimited is implemented by errors that represent a too-many-requests
// response from the remote service (see cma.APIError).
type rateLimited interface {
	RateLimited() bool
}

// bucket is a single token bucket with continuous refill. Token count is
// recomputed from elapsed wall clock before every read or deduction and
// never goes negative.
type bucket struct {
	capacity   float64
	tokens     float64
	refillRate float64 // tokens per second
	lastRefill time.Time
}

func (b *bucket) refill(now time.Time) {
	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed <= 0 {
		return
	}
	b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.refillRate)
	b.lastRefill = now
}

// waitNeeded returns how long until one full token is available, or zero.
func (b *bucket) waitNeeded() time.Duration {
	if b.tokens >= 1 {
		return 0
	}
	ms := math.Ceil((1 - b.tokens) / b.refillRate * 1000)
	return time.Duration(ms) * time.Millisecond
}

// Limiter gates calls against the per-second and per-hour request budgets.
// It is owned by exactly one migration run; buckets and counters are
// process-local and never shared across processes.
type Limiter struct {
	mu      sync.Mutex
	second  bucket
	hour    bucket
	enabled bool
	verbose bool

	startedAt time.Time
	admitted  int64
	throttled int64
	waited    time.Duration
	cooldowns int64

	// Test seams. Production uses time.Now and time.Sleep.
	now   func() time.Time
	sleep func(time.Duration)
}

// New builds a Limiter. A disabled limiter admits everything immediately
// and skips cooldown handling.
func New(opts Options) *Limiter {
	now := time.Now()
	l := &Limiter{
		enabled:   opts.Enabled,
		verbose:   opts.Verbose,
		startedAt: now,
		now:       time.Now,
		sleep:     time.Sleep,
	}
	l.second = bucket{
		capacity:   opts.RequestsPerSecond,
		tokens:     opts.RequestsPerSecond,
		refillRate: opts.RequestsPerSecond,
		lastRefill: now,
	}
	l.hour = bucket{
		capacity:   opts.RequestsPerHour,
		tokens:     opts.RequestsPerHour,
		refillRate: opts.RequestsPerHour / 3600,
		lastRefill: now,
	}
	return l
}

// Admit runs op once both buckets hold a token, deducting one from each.
// If op fails with a too-many-requests error the limiter sleeps the full
// cooldown, zeroes the second bucket, caps the hour bucket at half its
// capacity, and re-raises the error; retrying is the caller's job.
func (l *Limiter) Admit(ctx context.Context, op func(context.Context) error) error {
	if l == nil || !l.enabled {
		return op(ctx)
	}

	l.waitForTokens()

	err := op(ctx)
	if err == nil {
		return nil
	}

	var rl rateLimited
	if errors.As(err, &rl) && rl.RateLimited() {
		debug.Logf("ratelimit: remote reported too many requests, cooling down %s\n", CooldownPeriod)
		l.sleep(CooldownPeriod)
		l.mu.Lock()
		now := l.now()
		l.second.tokens = 0
		l.second.lastRefill = now
		l.hour.refill(now)
		l.hour.tokens = math.Min(l.hour.tokens, l.hour.capacity*0.5)
		l.cooldowns++
		l.mu.Unlock()
		telemetry.CountCooldown(ctx)
	}
	return err
}

// waitForTokens blocks until both buckets can supply a token, then deducts
// one from each and updates the diagnostics counters.
func (l *Limiter) waitForTokens() {
	var totalWait time.Duration

	l.mu.Lock()
	for {
		now := l.now()
		l.second.refill(now)
		l.hour.refill(now)

		wait := l.second.waitNeeded()
		if hw := l.hour.waitNeeded(); hw > wait {
			wait = hw
		}
		if wait == 0 {
			break
		}

		totalWait += wait
		if l.verbose {
			debug.Logf("ratelimit: waiting %s for token refill\n", wait)
		}
		l.mu.Unlock()
		l.sleep(wait)
		l.mu.Lock()
	}

	l.second.tokens--
	l.hour.tokens--
	l.admitted++
	if totalWait > 0 {
		l.throttled++
		l.waited += totalWait
	}
	l.mu.Unlock()

	telemetry.CountAdmission(context.Background(), totalWait)
}

// ObserveSecondRemaining clamps the second bucket down to the remaining
// budget reported by the remote service. Clamping never raises the token
// count; this only matters when the budget is shared with other clients.
func (l *Limiter) ObserveSecondRemaining(remaining float64) {
	if l == nil || !l.enabled {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.second.refill(l.now())
	l.second.tokens = math.Min(l.second.tokens, remaining)
}

// Stats is a diagnostics snapshot of the limiter's counters.
type Stats struct {
	Admitted  int64
	Throttled int64
	WaitTime  time.Duration
	Cooldowns int64
	StartedAt time.Time
	Elapsed   time.Duration
}

// Stats returns the running counters since the limiter was built.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		Admitted:  l.admitted,
		Throttled: l.throttled,
		WaitTime:  l.waited,
		Cooldowns: l.cooldowns,
		StartedAt: l.startedAt,
		Elapsed:   l.now().Sub(l.startedAt),
	}
}
