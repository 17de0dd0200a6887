// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/carterperez-dev/crm-backend/internal/core"
)

const (
	bucketIdleTTL = 10 * time.Minute
	sweepEvery    = 5 * time.Minute
)

type RateLimitConfig struct {
	Name     string
	Limit    redis_rate.Limit
	KeyFunc  func(*http.Request) string
	FailOpen bool
}

// RateLimiter enforces a GCRA limit in redis. When redis errors, or no client
// was given, each process enforces the limit on its own token buckets.
type RateLimiter struct {
	shared *redis_rate.Limiter
	local  *bucketStore
	cfg    RateLimitConfig
}

type decision struct {
	allowed    bool
	remaining  int
	retryAfter time.Duration
	resetAfter time.Duration
}

func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}
	if cfg.Name == "" {
		cfg.Name = "global"
	}

	rl := &RateLimiter{
		local: newBucketStore(cfg.Limit),
		cfg:   cfg,
	}
	if rdb != nil {
		rl.shared = redis_rate.NewLimiter(rdb)
	}
	return rl
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := core.Key("ratelimit", rl.cfg.Name, rl.cfg.KeyFunc(r))

		d, err := rl.check(r.Context(), key)
		if err != nil {
			if !rl.cfg.FailOpen {
				core.JSON(w, http.StatusServiceUnavailable, core.ErrorResponse{
					Error: "service unavailable",
					Code:  "UNAVAILABLE",
				})
				return
			}
			slog.Warn("rate limit check failed, allowing request",
				"limiter", rl.cfg.Name,
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}

		hdr := w.Header()
		hdr.Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Limit.Rate))
		hdr.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
		hdr.Set("X-RateLimit-Reset",
			strconv.FormatInt(time.Now().Add(d.resetAfter).Unix(), 10))

		if !d.allowed {
			seconds := max(1, int(math.Ceil(d.retryAfter.Seconds())))
			hdr.Set("Retry-After", strconv.Itoa(seconds))
			core.JSON(w, http.StatusTooManyRequests, core.ErrorResponse{
				Error: fmt.Sprintf("rate limit exceeded, retry after %d seconds", seconds),
				Code:  "RATE_LIMITED",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) check(ctx context.Context, key string) (decision, error) {
	if rl.shared != nil {
		res, err := rl.shared.Allow(ctx, key, rl.cfg.Limit)
		if err == nil {
			return decision{
				allowed:    res.Allowed > 0,
				remaining:  res.Remaining,
				retryAfter: res.RetryAfter,
				resetAfter: res.ResetAfter,
			}, nil
		}
		slog.Debug("redis rate limit unavailable, using local buckets",
			"limiter", rl.cfg.Name,
			"error", err,
		)
	}
	return rl.local.take(key), nil
}

func KeyByIP(r *http.Request) string {
	return "ip:" + ClientIP(r)
}

// ClientIP prefers the proxy supplied address nearest to us.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return strings.TrimSpace(hops[len(hops)-1])
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// bucketStore keeps one token bucket per key. Idle buckets are swept lazily
// on access rather than by a background goroutine.
type bucketStore struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	every     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

func newBucketStore(limit redis_rate.Limit) *bucketStore {
	period := limit.Period
	if period <= 0 {
		period = time.Minute
	}
	perSecond := rate.Limit(0)
	if limit.Rate > 0 {
		perSecond = rate.Every(period / time.Duration(limit.Rate))
	}
	return &bucketStore{
		buckets:   make(map[string]*bucket),
		every:     perSecond,
		burst:     max(limit.Burst, 1),
		lastSweep: time.Now(),
		now:       time.Now,
	}
}

func (s *bucketStore) take(key string) decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= sweepEvery {
		for k, b := range s.buckets {
			if now.Sub(b.lastSeen) > bucketIdleTTL {
				delete(s.buckets, k)
			}
		}
		s.lastSweep = now
	}

	b, ok := s.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(s.every, s.burst)}
		s.buckets[key] = b
	}
	b.lastSeen = now

	d := decision{allowed: b.lim.AllowN(now, 1)}
	tokens := b.lim.TokensAt(now)
	d.remaining = max(0, int(tokens))

	if s.every > 0 {
		refill := time.Duration(float64(time.Second) / float64(s.every))
		d.resetAfter = refill
		if !d.allowed {
			d.retryAfter = time.Duration((1 - tokens) * float64(refill))
		}
	}
	return d
}

func PerWindow(requests, burst int, window time.Duration) redis_rate.Limit {
	if window <= 0 {
		window = time.Minute
	}
	return redis_rate.Limit{Rate: requests, Burst: burst, Period: window}
}

func PerMinute(requests, burst int) redis_rate.Limit {
	return PerWindow(requests, burst, time.Minute)
}
