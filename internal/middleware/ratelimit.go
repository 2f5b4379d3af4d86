package middleware

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rohhann12/keeping-track-of-it/pkg/response"
	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 3 * time.Minute
	limiterIdleAfter  = 5 * time.Minute
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter throttles requests per client IP. Used on the public auth
// routes to slow down credential guessing.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	rps      rate.Limit
	burst    int
	stop     chan struct{}
	once     sync.Once
}

// NewRateLimiter allows rps requests per second per IP with the given burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		limiters: make(map[string]*ipLimiter),
		rps:      rate.Limit(rps),
		burst:    burst,
		stop:     make(chan struct{}),
	}
	go rl.sweep()
	return rl
}

func (rl *RateLimiter) getLimiter(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.limiters[ip]
	if !exists {
		v = &ipLimiter{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.limiters[ip] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(limiterSweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, v := range rl.limiters {
				if time.Since(v.lastSeen) > limiterIdleAfter {
					delete(rl.limiters, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Close stops the background sweeper.
func (rl *RateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}

// Middleware rejects over-limit requests with 429 and a Retry-After hint.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getLimiter(c.ClientIP()).Allow() {
			retry := 1
			if rl.rps > 0 {
				retry = int(math.Ceil(1 / float64(rl.rps)))
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			response.TooManyRequests(c, "too many requests, please try again later")
			c.Abort()
			return
		}
		c.Next()
	}
}
