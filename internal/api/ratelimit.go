package api

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RateLimitConfig holds rate limiter configuration.
type RateLimitConfig struct {
	RPS   int // requests per second
	Burst int // burst size
}

// bucketIdle is how long a client may stay quiet before its credit
// entry is swept.
const bucketIdle = 10 * time.Minute

// RateLimiter grants each client IP a credit balance that refills at
// RPS per second up to Burst. Idle entries are swept lazily on the
// request path, so the limiter needs no background goroutine.
type RateLimiter struct {
	mu        sync.Mutex
	credits   map[string]*clientCredit
	rps       float64
	burst     float64
	lastSweep time.Time
}

type clientCredit struct {
	balance float64
	seen    time.Time
}

// NewRateLimiter builds a limiter from cfg.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		credits: make(map[string]*clientCredit),
		rps:     float64(cfg.RPS),
		burst:   float64(cfg.Burst),
	}
}

// Allow spends one credit for ip at the given instant, reporting
// whether the request may proceed.
func (rl *RateLimiter) Allow(ip string, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > bucketIdle {
		rl.sweepLocked(now)
		rl.lastSweep = now
	}

	cc, ok := rl.credits[ip]
	if !ok {
		cc = &clientCredit{balance: rl.burst, seen: now}
		rl.credits[ip] = cc
	}

	cc.balance += now.Sub(cc.seen).Seconds() * rl.rps
	if cc.balance > rl.burst {
		cc.balance = rl.burst
	}
	cc.seen = now

	if cc.balance < 1 {
		return false
	}
	cc.balance--
	return true
}

// sweepLocked drops entries for clients idle past bucketIdle. Callers
// hold rl.mu.
func (rl *RateLimiter) sweepLocked(now time.Time) {
	for ip, cc := range rl.credits {
		if now.Sub(cc.seen) > bucketIdle {
			delete(rl.credits, ip)
		}
	}
}

// Middleware adapts the limiter to fiber. Probe and metrics paths are
// exempt.
func (rl *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Path() {
		case "/healthz", "/readyz", "/metrics":
			return c.Next()
		}

		if !rl.Allow(c.IP(), time.Now()) {
			return problemResponse(c, fiber.StatusTooManyRequests,
				"rate_limited", "Too Many Requests",
				"Request rate limit exceeded")
		}
		return c.Next()
	}
}
