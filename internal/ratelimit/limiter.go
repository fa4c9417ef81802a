// Package ratelimit implements the global and per-domain QPS gate the
// (out-of-scope) crawler is required to honor before reaching insurer
// sites: a token bucket per scope plus a per-domain circuit breaker that
// trips on hostile HTTP responses.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/policyrag/policyrag/internal/core/domain"
	"github.com/policyrag/policyrag/internal/logger"
)

// State is one of the circuit breaker's three states (§4.1, "State machines").
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

const (
	defaultCooldown         = 300 * time.Second
	defaultFailureThreshold = 3
)

// Config holds the limiter's rates and breaker settings. Callers fill it
// themselves (DefaultConfig gives the defaults); nothing in this repository
// loads the GLOBAL_QPS/PER_DOMAIN_QPS/CIRCUIT_BREAKER_ENABLED keys into it.
type Config struct {
	GlobalQPS             float64
	PerDomainQPS          float64
	CircuitBreakerEnabled bool
	CooldownDuration      time.Duration
	FailureThreshold      int
}

// DefaultConfig matches spec.md §4.1/§6's stated defaults.
func DefaultConfig() Config {
	return Config{
		GlobalQPS:             0.8,
		PerDomainQPS:          0.8,
		CircuitBreakerEnabled: true,
		CooldownDuration:      defaultCooldown,
		FailureThreshold:      defaultFailureThreshold,
	}
}

// Stats mirrors original_source's RateLimiter.get_stats().
type Stats struct {
	TotalRequests        int64
	BlockedRequests      int64
	CircuitBreakerTrips  int64
	ActiveDomains        int
	CircuitBreakersOpen  int
}

// breaker is the per-domain circuit breaker. Exactly one acquire is allowed
// to observe StateHalfOpen after a cooldown; its outcome (recordSuccess /
// recordFailure) deterministically resolves to Closed or a fresh Open.
type breaker struct {
	mu        sync.Mutex
	state     State
	openedAt  time.Time
	failures  int
	cooldown  time.Duration
	threshold int
}

func newBreaker(cooldown time.Duration, threshold int) *breaker {
	return &breaker{state: StateClosed, cooldown: cooldown, threshold: threshold}
}

// admit reports whether a request may proceed, transitioning Open->HalfOpen
// for exactly one caller once the cooldown has elapsed.
func (b *breaker) admit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		return false // a probe is already in flight
	case StateOpen:
		if time.Since(b.openedAt) >= b.cooldown {
			b.state = StateHalfOpen
			return true
		}
		return false
	default:
		return false
	}
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.state = StateClosed
	b.openedAt = time.Time{}
}

func (b *breaker) recordFailure(trip bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	if trip || b.failures >= b.threshold {
		b.state = StateOpen
		b.openedAt = time.Now()
		b.failures = 0
		return true
	}
	return false
}

func (b *breaker) snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// domainScope pairs a domain's token bucket with its breaker.
type domainScope struct {
	bucket  *rate.Limiter
	breaker *breaker
}

// Limiter is the crawler-facing rate limiter: one global token bucket plus
// one token bucket and circuit breaker per domain.
type Limiter struct {
	cfg    Config
	global *rate.Limiter

	mu      sync.Mutex
	domains map[string]*domainScope

	statsMu sync.Mutex
	stats   Stats
}

// New constructs a Limiter. Both scopes use capacity = 2*QPS, refill = QPS/sec.
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:     cfg,
		global:  rate.NewLimiter(rate.Limit(cfg.GlobalQPS), burst(cfg.GlobalQPS)),
		domains: make(map[string]*domainScope),
	}
}

func burst(qps float64) int {
	b := int(qps * 2)
	if b < 1 {
		b = 1
	}
	return b
}

func (l *Limiter) domainScopeFor(domain string) *domainScope {
	l.mu.Lock()
	defer l.mu.Unlock()
	d, ok := l.domains[domain]
	if !ok {
		d = &domainScope{
			bucket:  rate.NewLimiter(rate.Limit(l.cfg.PerDomainQPS), burst(l.cfg.PerDomainQPS)),
			breaker: newBreaker(l.cfg.CooldownDuration, l.cfg.FailureThreshold),
		}
		l.domains[domain] = d
	}
	return d
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

// Acquire blocks until a token is available under both the global and
// domain buckets, or returns ErrCircuitOpen immediately if the domain's
// breaker is tripped. It honors ctx cancellation.
func (l *Limiter) Acquire(ctx context.Context, rawURL string) error {
	l.statsMu.Lock()
	l.stats.TotalRequests++
	l.statsMu.Unlock()

	domainName := hostOf(rawURL)

	if l.cfg.CircuitBreakerEnabled {
		scope := l.domainScopeFor(domainName)
		if !scope.breaker.admit() {
			l.statsMu.Lock()
			l.stats.BlockedRequests++
			l.statsMu.Unlock()
			return fmt.Errorf("ratelimit: domain %s: %w", domainName, domain.ErrCircuitOpen)
		}
	}

	if err := l.global.Wait(ctx); err != nil {
		return fmt.Errorf("ratelimit: global bucket: %w", waitErr(ctx, err))
	}
	scope := l.domainScopeFor(domainName)
	if err := scope.bucket.Wait(ctx); err != nil {
		return fmt.Errorf("ratelimit: domain %s bucket: %w", domainName, waitErr(ctx, err))
	}

	logger.Debug("ratelimit: acquired permission for %s", domainName)
	return nil
}

// waitErr reports a wait the bucket refused because it would overrun ctx's
// deadline as context.DeadlineExceeded.
func waitErr(ctx context.Context, err error) error {
	if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

// TryAcquire is Acquire's non-blocking variant.
func (l *Limiter) TryAcquire(rawURL string) bool {
	l.statsMu.Lock()
	l.stats.TotalRequests++
	l.statsMu.Unlock()

	domainName := hostOf(rawURL)

	if l.cfg.CircuitBreakerEnabled {
		scope := l.domainScopeFor(domainName)
		if !scope.breaker.admit() {
			l.statsMu.Lock()
			l.stats.BlockedRequests++
			l.statsMu.Unlock()
			return false
		}
	}

	globalRes := l.global.Reserve()
	if !globalRes.OK() || globalRes.Delay() > 0 {
		globalRes.Cancel()
		return false
	}
	scope := l.domainScopeFor(domainName)
	if !scope.bucket.Allow() {
		globalRes.Cancel() // hand the global token back rather than burn it on a domain-level miss
		return false
	}
	return true
}

// RecordSuccess resets the domain's breaker to Closed (including after a
// successful HalfOpen probe).
func (l *Limiter) RecordSuccess(rawURL string) {
	if !l.cfg.CircuitBreakerEnabled {
		return
	}
	scope := l.domainScopeFor(hostOf(rawURL))
	scope.breaker.recordSuccess()
}

// RecordFailure advances the domain's failure counter. statusCode 403 or
// 429 trips the breaker immediately; otherwise it trips once the
// consecutive-failure threshold is reached. A HalfOpen probe that fails
// reopens with a fresh cooldown.
func (l *Limiter) RecordFailure(rawURL string, statusCode int) {
	if !l.cfg.CircuitBreakerEnabled {
		return
	}
	domainName := hostOf(rawURL)
	scope := l.domainScopeFor(domainName)
	forceTrip := statusCode == 403 || statusCode == 429
	if scope.breaker.recordFailure(forceTrip) {
		l.statsMu.Lock()
		l.stats.CircuitBreakerTrips++
		l.statsMu.Unlock()
		logger.Warn("ratelimit: circuit breaker tripped for %s (status=%d)", domainName, statusCode)
	}
}

// Stats reports current counters.
func (l *Limiter) Stats() Stats {
	l.statsMu.Lock()
	out := l.stats
	l.statsMu.Unlock()

	l.mu.Lock()
	out.ActiveDomains = len(l.domains)
	for _, d := range l.domains {
		if d.breaker.snapshot() == StateOpen {
			out.CircuitBreakersOpen++
		}
	}
	l.mu.Unlock()
	return out
}

// ResetBreaker manually clears a domain's breaker to Closed.
func (l *Limiter) ResetBreaker(domainName string) {
	l.mu.Lock()
	scope, ok := l.domains[domainName]
	l.mu.Unlock()
	if !ok {
		return
	}
	scope.breaker.recordSuccess()
	logger.Info("ratelimit: circuit breaker manually reset for %s", domainName)
}
