package middleware

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// RateLimiter implements token bucket rate limiting per client IP. Buckets
// idle long enough to have refilled completely are evicted, which leaves
// the limiting unchanged and bounds memory by the number of recent clients.
type RateLimiter struct {
	visitors sync.Map // key -> *visitor
	rate     rate.Limit
	burst    int
	idle     time.Duration

	lastPrune atomic.Int64
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64
}

// NewRateLimiter allows perMinute requests per minute per client with the
// given burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 1
	}
	if burst <= 0 {
		burst = perMinute
	}
	every := time.Minute / time.Duration(perMinute)
	rl := &RateLimiter{
		rate:  rate.Every(every),
		burst: burst,
		idle:  max(time.Duration(burst)*every, time.Minute),
	}
	rl.lastPrune.Store(time.Now().UnixNano())
	return rl
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	now := time.Now()
	v, ok := rl.visitors.Load(key)
	if !ok {
		v, _ = rl.visitors.LoadOrStore(key, &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)})
	}
	vis := v.(*visitor)
	vis.lastSeen.Store(now.UnixNano())

	last := rl.lastPrune.Load()
	if now.UnixNano()-last > int64(rl.idle) && rl.lastPrune.CompareAndSwap(last, now.UnixNano()) {
		rl.Prune(now.Add(-rl.idle))
	}
	return vis.limiter
}

// Prune drops the buckets of clients not seen since before and returns how
// many were removed.
func (rl *RateLimiter) Prune(before time.Time) int {
	cutoff := before.UnixNano()
	removed := 0
	rl.visitors.Range(func(key, v any) bool {
		if v.(*visitor).lastSeen.Load() < cutoff {
			rl.visitors.Delete(key)
			removed++
		}
		return true
	})
	return removed
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	n := 0
	rl.visitors.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Allow checks if a request should be allowed for the given key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Handler returns the Fiber middleware.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limiter := rl.getLimiter("ip:" + c.IP())
		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.burst))

		if !limiter.Allow() {
			c.Set("X-RateLimit-Remaining", "0")
			c.Set(fiber.HeaderRetryAfter, "60")
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"message": "Too many messages, please try again later",
			})
		}

		c.Set("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
		return c.Next()
	}
}
