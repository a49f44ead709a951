package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/mescon/neonclock/internal/clock"
)

// staleAfter is how long an idle client keeps its limiter.
const staleAfter = 10 * time.Minute

// RateLimiter is a per-IP token bucket limiter.
type RateLimiter struct {
	mu          sync.Mutex
	clients     map[string]*clientLimiter
	limit       rate.Limit
	interval    time.Duration
	burst       int
	clk         clock.Clock
	lastCleanup time.Time
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows n requests per interval with the given burst.
func NewRateLimiter(n int, interval time.Duration, burst int, clocks ...clock.Clock) *RateLimiter {
	clk := clock.OrReal(clocks...)
	return &RateLimiter{
		clients:     make(map[string]*clientLimiter),
		limit:       rate.Limit(float64(n) / interval.Seconds()),
		interval:    interval,
		burst:       burst,
		clk:         clk,
		lastCleanup: clk.Now(),
	}
}

// Allow reports whether a request from ip may proceed.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.clk.Now()
	if now.Sub(rl.lastCleanup) >= staleAfter/2 {
		rl.cleanupLocked(now)
	}

	cl, ok := rl.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

func (rl *RateLimiter) cleanupLocked(now time.Time) {
	threshold := now.Add(-staleAfter)
	for ip, cl := range rl.clients {
		if cl.lastSeen.Before(threshold) {
			delete(rl.clients, ip)
		}
	}
	rl.lastCleanup = now
}

// Middleware returns a Gin middleware that rate limits requests
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.Allow(c.ClientIP()) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Too many requests",
				"retry_after": rl.interval.Seconds(),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

var (
	// LoginLimiter: 5 attempts per minute, burst of 5
	LoginLimiter = NewRateLimiter(5, time.Minute, 5)

	// APILimiter: 300 requests per minute per IP, burst of 60.
	// Touch panels send bursts of timer commands.
	APILimiter = NewRateLimiter(300, time.Minute, 60)
)
