package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter hands out a token bucket per client IP. Auth endpoints sit
// behind it to slow down credential stuffing.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows roughly max requests per window for each client IP.
func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(window / time.Duration(max)),
		burst:   max / 5,
	}
	if rl.burst < 1 {
		rl.burst = 1
	}
	go rl.cleanup(window)
	return rl
}

// Middleware rejects requests over the per-IP budget with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		rl.mu.Lock()
		b, ok := rl.buckets[ip]
		if !ok {
			b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
			rl.buckets[ip] = b
		}
		b.lastSeen = time.Now()
		rl.mu.Unlock()

		if !b.limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) cleanup(idle time.Duration) {
	ticker := time.NewTicker(idle)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		for ip, b := range rl.buckets {
			if time.Since(b.lastSeen) > idle {
				delete(rl.buckets, ip)
			}
		}
		rl.mu.Unlock()
	}
}
