package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const idleClientTTL = 5 * time.Minute

// RateLimiter throttles requests per client key. Handler keys by
// gin's ClientIP, which only honours X-Forwarded-For from trusted proxies.
type RateLimiter struct {
	every rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewRateLimiter allows requestsPerMinute per client with a burst of a
// tenth of that. Zero or less returns nil, which lets everything through.
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}
	return &RateLimiter{
		every:   rate.Limit(float64(requestsPerMinute) / 60),
		burst:   max(requestsPerMinute/10, 1),
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow spends one token from key's bucket.
func (r *RateLimiter) Allow(key string) bool {
	if r == nil {
		return true
	}
	return r.bucketFor(key).AllowN(r.now(), 1)
}

// retryAfter is the whole number of seconds until one token refills.
func (r *RateLimiter) retryAfter() string {
	return strconv.Itoa(int(math.Ceil(1 / float64(r.every))))
}

func (r *RateLimiter) Handler() gin.HandlerFunc {
	if r == nil {
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			c.Header("Retry-After", r.retryAfter())
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests, please slow down"})
			return
		}
		c.Next()
	}
}

func (r *RateLimiter) bucketFor(key string) *rate.Limiter {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastSweep) >= idleClientTTL {
		for k, b := range r.buckets {
			if now.Sub(b.seen) > idleClientTTL {
				delete(r.buckets, k)
			}
		}
		r.lastSweep = now
	}

	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(r.every, r.burst)}
		r.buckets[key] = b
	}
	b.seen = now
	return b.limiter
}
