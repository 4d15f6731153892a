package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"guardianangel/config"

	"github.com/gin-gonic/gin"
)

// InMemoryRateLimiter is a sliding-window request budget per key (client IP).
type InMemoryRateLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	limit    int
	window   time.Duration
	now      func() time.Time
}

func NewInMemoryRateLimiter(cfg config.RateLimitConfig) *InMemoryRateLimiter {
	return &InMemoryRateLimiter{
		requests: make(map[string][]time.Time),
		limit:    cfg.Requests,
		window:   cfg.Window,
		now:      time.Now,
	}
}

// Allow records a request for key. When the budget is spent it returns false and how
// long until the oldest request leaves the window.
func (r *InMemoryRateLimiter) Allow(key string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	valid := prune(r.requests[key], now.Add(-r.window))
	if len(valid) >= r.limit {
		r.requests[key] = valid
		return false, valid[0].Add(r.window).Sub(now)
	}
	r.requests[key] = append(valid, now)
	return true, 0
}

func prune(times []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(times) && !times[i].After(cutoff) {
		i++
	}
	return times[i:]
}

// Sweep drops keys with no requests left in the window.
func (r *InMemoryRateLimiter) Sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.window)
	for k, times := range r.requests {
		if valid := prune(times, cutoff); len(valid) == 0 {
			delete(r.requests, k)
		} else {
			r.requests[k] = valid
		}
	}
}

// Run sweeps once a minute until stop is closed.
func (r *InMemoryRateLimiter) Run(stop <-chan struct{}) {
	tick := time.NewTicker(time.Minute)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			r.Sweep()
		case <-stop:
			return
		}
	}
}

// RateLimit returns a middleware that limits by client IP.
func RateLimit(limiter *InMemoryRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter.limit <= 0 {
			c.Next()
			return
		}
		ok, retry := limiter.Allow(c.ClientIP())
		if !ok {
			secs := int(retry.Seconds())
			if secs < 1 {
				secs = 1
			}
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
