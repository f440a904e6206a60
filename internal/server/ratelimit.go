package server

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"skillpick/internal/errors"

	"golang.org/x/time/rate"
)

// limiterIdleTimeout is how long an unused per-client bucket is kept
const limiterIdleTimeout = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per client key (IP or API key) and
// evicts buckets nobody used for limiterIdleTimeout.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	stopOnce sync.Once
	logger   *errors.Logger
}

// NewRateLimiter allows requestsPerMin sustained requests per client with
// bursts of up to burstCapacity.
func NewRateLimiter(requestsPerMin, burstCapacity int, logger *errors.Logger) *RateLimiter {
	rl := &RateLimiter{
		limit:   rate.Every(time.Minute / time.Duration(max(requestsPerMin, 1))),
		burst:   max(burstCapacity, 1),
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
		logger:  logger,
	}
	go rl.evictLoop()
	return rl
}

// Allow takes one token from the key's bucket
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// GetStats is reported by the health endpoint
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.Lock()
	active := len(rl.buckets)
	rl.mu.Unlock()

	return map[string]any{
		"active_limiters": active,
		"rate_per_minute": float64(rl.limit) * 60,
		"burst_capacity":  rl.burst,
	}
}

func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(limiterIdleTimeout)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			rl.evictIdle(now.Add(-limiterIdleTimeout))
		case <-rl.stop:
			return
		}
	}
}

// evictIdle drops buckets last used before cutoff
func (rl *RateLimiter) evictIdle(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
	rl.logger.Debug("Idle rate limit buckets evicted", "remaining", len(rl.buckets))
}

// Close stops eviction; safe to call more than once
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// rateLimitMiddleware answers 429 once a client's bucket is empty
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := getRateLimitKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if key != "" && !s.RateLimiter.Allow(key) {
				s.logger.Info("Rate limit exceeded", "endpoint", r.URL.Path, "client_ip", getClientIP(r))
				s.metrics.RecordRateLimitHit(r.Context(), r.Pattern)
				s.writeError(w, r, errors.NewRateLimitedError(errors.ErrCodeRateLimitExceeded, "Too many requests", nil))
				return
			}
			next(w, r)
		}
	}
}

// getRateLimitKey picks the bucket a request counts against; "" means the
// request is not limited
func getRateLimitKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if apiKey := requestAPIKey(r); apiKey != "" {
			return "api:" + apiKey
		}
	}
	if byIP {
		return "ip:" + getClientIP(r)
	}
	return ""
}

// getClientIP prefers the first valid X-Forwarded-For entry, then X-Real-IP,
// then the connection's remote address
func getClientIP(r *http.Request) string {
	for candidate := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		if addr, err := netip.ParseAddr(strings.TrimSpace(candidate)); err == nil {
			return addr.String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
