package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/httputil"
	"github.com/platinummonkey/tenancy/pkg/observability"
)

// DefaultMaxBuckets bounds the number of client keys tracked in memory
const DefaultMaxBuckets = 10000

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the time window for rate limiting
	WindowDuration time.Duration
	// BurstSize allows temporary bursts above the rate (in-memory limiter only)
	BurstSize int
}

// DefaultRateLimitConfig suits the credential endpoints: signin, signup and
// password reset.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerWindow: 10,
		WindowDuration:    time.Minute,
		BurstSize:         5,
	}
}

// Limiter decides whether the request identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RateLimitRecorder counts rejected requests
type RateLimitRecorder interface {
	RecordRateLimited(limiter string)
}

// RateLimiter is an in-process token bucket limiter. Buckets live in an LRU
// so a flood of distinct client addresses cannot grow memory without bound.
type RateLimiter struct {
	config  RateLimitConfig
	buckets *lru.Cache[string, *bucket]
	mu      sync.Mutex
	now     func() time.Time
}

type bucket struct {
	tokens     int
	lastUpdate time.Time
	mu         sync.Mutex
}

// NewRateLimiter creates an in-memory limiter tracking at most maxBuckets keys
func NewRateLimiter(config RateLimitConfig, maxBuckets int) (*RateLimiter, error) {
	if maxBuckets <= 0 {
		maxBuckets = DefaultMaxBuckets
	}
	cache, err := lru.New[string, *bucket](maxBuckets)
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket cache: %w", err)
	}
	return &RateLimiter{
		config:  config,
		buckets: cache,
		now:     time.Now,
	}, nil
}

func (rl *RateLimiter) capacity() int {
	return rl.config.RequestsPerWindow + rl.config.BurstSize
}

func (rl *RateLimiter) bucketFor(key string) *bucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets.Get(key)
	if !ok {
		b = &bucket{tokens: rl.capacity(), lastUpdate: rl.now()}
		rl.buckets.Add(key, b)
	}
	return b
}

// Allow takes one token from the key's bucket
func (rl *RateLimiter) Allow(_ context.Context, key string) (bool, error) {
	b := rl.bucketFor(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := rl.now()
	elapsed := now.Sub(b.lastUpdate)

	tokensToAdd := int(elapsed.Seconds() * float64(rl.config.RequestsPerWindow) / rl.config.WindowDuration.Seconds())
	if tokensToAdd > 0 {
		b.tokens += tokensToAdd
		if b.tokens > rl.capacity() {
			b.tokens = rl.capacity()
		}
		b.lastUpdate = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true, nil
	}
	return false, nil
}

// Remaining returns the number of remaining tokens for a key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	b, ok := rl.buckets.Peek(key)
	rl.mu.Unlock()
	if !ok {
		return rl.capacity()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokens
}

// Len is the number of tracked keys
func (rl *RateLimiter) Len() int {
	return rl.buckets.Len()
}

// RateLimit limits requests per client address. Limiter errors fail open.
func RateLimit(name string, limiter Limiter, recorder RateLimitRecorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), name+":"+clientIP(r))
			if err != nil {
				observability.FromContext(r.Context()).
					WithError(err).
					WithField("limiter", name).
					Warn("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				if recorder != nil {
					recorder.RecordRateLimited(name)
				}
				httputil.WriteError(w, r, apperr.TooManyRequests("Too many requests"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
